package repository

import (
	"context"

	"GeziTrip-POI/internal/domain/model"
)

// POIShardStore 地域ごとのローカルデータセット（シャード）を管理するストア
// シャードファイルの所有者はこの層のみで、他のコンポーネントは直接触らない
type POIShardStore interface {
	// Open シャードを準備して開く。冪等で、同一地域への並行呼び出しは
	// single-flightで1回の初期化に合流する。準備できない場合は model.ErrUnavailable
	Open(ctx context.Context, country string) error

	// Query 都市・カテゴリ・正規化部分一致の条件で読み取る
	// 一次読み取り失敗時は短い待機の後に1回だけ再試行し、それでも失敗したら空を返す
	Query(ctx context.Context, q *model.POIQuery) ([]model.POI, error)

	// CategoryCounts 都市単位のカテゴリ別件数（GROUP BY）を返す
	CategoryCounts(ctx context.Context, country, city string) (map[string]int, error)
}

package repository

import (
	"context"

	"GeziTrip-POI/internal/domain/model"
)

// OverlayRepository 端末ごとのオーバーレイストア
// 解決済み・リモート発見のポイントを追記し、次回検索でローカルデータとして見えるようにする
type OverlayRepository interface {
	// Upsert 地域＋都市＋カテゴリ＋名前＋座標をキーに追記・更新する
	Upsert(ctx context.Context, poi *model.POI) error

	// Query シャードと同じ条件形式で読み取る
	Query(ctx context.Context, q *model.POIQuery) ([]model.POI, error)
}

package repository

import (
	"context"

	"GeziTrip-POI/internal/domain/model"
)

// MatchCacheRepository 共有マッチキャッシュ（リモート協調リソース）
// このシステムは冪等なread/upsertのみを発行し、分散ロックは行わない
type MatchCacheRepository interface {
	// BatchMatch ポイント群をキー（正準化名＋round5座標、item_id優先）で一括照会する
	// 結果はリクエストと同順で並ぶ
	BatchMatch(ctx context.Context, items []model.MatchQuery, city string) ([]model.MatchResult, error)

	// BatchUpsert 新規に解決されたポイント群を冪等にupsertする
	BatchUpsert(ctx context.Context, entries []model.MatchUpsert) error
}

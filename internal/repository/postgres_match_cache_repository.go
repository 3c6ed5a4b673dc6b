package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
	"GeziTrip-POI/internal/infrastructure/database"
)

// PostgresMatchCacheRepository 共有マッチキャッシュの直接接続実装
// REST経由（Supabase）を使わない構成向けで、契約はSupabase実装と同一
type PostgresMatchCacheRepository struct {
	client *database.PostgreSQLClient
}

// NewPostgresMatchCacheRepository 新しい直接接続マッチキャッシュリポジトリを作成する
func NewPostgresMatchCacheRepository(client *database.PostgreSQLClient) repository.MatchCacheRepository {
	return &PostgresMatchCacheRepository{
		client: client,
	}
}

// BatchMatch キーとitem_idの両ベクトルで一括照会し、item_id優先でマージする
func (r *PostgresMatchCacheRepository) BatchMatch(ctx context.Context, items []model.MatchQuery, city string) ([]model.MatchResult, error) {
	if len(items) == 0 {
		return []model.MatchResult{}, nil
	}

	keys := make([]string, 0, len(items))
	itemIDs := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, MatchKey(it.Name, it.Lat, it.Lng))
		if it.ItemID != "" {
			itemIDs = append(itemIDs, it.ItemID)
		}
	}

	const selectCols = "key, place_id, rating, hours_json, g_lat5, g_lon5, item_id"

	byKey := map[string]matchRow{}
	if err := r.scanInto(ctx, byKey, "key",
		fmt.Sprintf("SELECT %s FROM poi_match WHERE key = ANY($1)", selectCols), pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("マッチキャッシュのキー照会に失敗: %w", err)
	}

	byID := map[string]matchRow{}
	if len(itemIDs) > 0 {
		if err := r.scanInto(ctx, byID, "item_id",
			fmt.Sprintf("SELECT %s FROM poi_match WHERE item_id = ANY($1)", selectCols), pq.Array(itemIDs)); err != nil {
			return nil, fmt.Errorf("マッチキャッシュのID照会に失敗: %w", err)
		}
	}

	results := make([]model.MatchResult, 0, len(items))
	for i, it := range items {
		key := keys[i]
		row, ok := byID[it.ItemID]
		if !ok || it.ItemID == "" {
			row, ok = byKey[key]
		}
		res := model.MatchResult{
			Key: key,
			Lat: helper.Round5(it.Lat),
			Lng: helper.Round5(it.Lng),
		}
		if ok && row.PlaceID != "" {
			res.Matched = true
			res.CanonicalID = row.PlaceID
			res.Rating = row.Rating
			res.Hours = row.HoursJSON
			res.GLat = row.GLat5
			res.GLng = row.GLon5
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *PostgresMatchCacheRepository) scanInto(ctx context.Context, dst map[string]matchRow, indexBy, query string, arg interface{}) error {
	rows, err := r.client.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row matchRow
		var itemID sql.NullString
		if err := rows.Scan(&row.Key, &row.PlaceID, &row.Rating, &row.HoursJSON, &row.GLat5, &row.GLon5, &itemID); err != nil {
			return err
		}
		if itemID.Valid {
			v := itemID.String
			row.ItemID = &v
		}
		switch indexBy {
		case "key":
			dst[row.Key] = row
		case "item_id":
			if row.ItemID != nil {
				dst[*row.ItemID] = row
			}
		}
	}
	return rows.Err()
}

// BatchUpsert ON CONFLICT(key) DO UPDATE による冪等upsert
func (r *PostgresMatchCacheRepository) BatchUpsert(ctx context.Context, entries []model.MatchUpsert) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	for _, e := range entries {
		if e.CanonicalID == "" || e.Name == "" {
			continue
		}
		_, err := r.client.DB.ExecContext(ctx, `
			INSERT INTO poi_match (key, name_norm, lat5, lon5, city, place_id, rating, hours_json, g_lat5, g_lon5, item_id, updated_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (key) DO UPDATE SET
				place_id   = EXCLUDED.place_id,
				rating     = COALESCE(EXCLUDED.rating, poi_match.rating),
				hours_json = COALESCE(EXCLUDED.hours_json, poi_match.hours_json),
				g_lat5     = COALESCE(EXCLUDED.g_lat5, poi_match.g_lat5),
				g_lon5     = COALESCE(EXCLUDED.g_lon5, poi_match.g_lon5),
				item_id    = COALESCE(EXCLUDED.item_id, poi_match.item_id),
				updated_ms = EXCLUDED.updated_ms`,
			MatchKey(e.Name, e.Lat, e.Lng), helper.CanonicalName(e.Name),
			helper.Round5(e.Lat), helper.Round5(e.Lng), nullable(e.City),
			e.CanonicalID, e.Rating, e.Hours, e.GLat, e.GLng, nullable(e.ItemID), now,
		)
		if err != nil {
			return fmt.Errorf("マッチキャッシュへのupsertに失敗: %w", err)
		}
	}
	return nil
}

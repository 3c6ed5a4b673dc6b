package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
	"GeziTrip-POI/internal/infrastructure/database"
)

// SupabaseMatchCacheRepository 共有マッチキャッシュ（poi_matchテーブル）のREST実装
type SupabaseMatchCacheRepository struct {
	client *database.SupabaseClient
}

// NewSupabaseMatchCacheRepository 新しいマッチキャッシュリポジトリを作成する
func NewSupabaseMatchCacheRepository(client *database.SupabaseClient) repository.MatchCacheRepository {
	return &SupabaseMatchCacheRepository{
		client: client,
	}
}

// matchRow poi_matchテーブルの1行
type matchRow struct {
	Key       string   `json:"key"`       // canonical(name)@lat5,lon5 のシードキー
	NameNorm  string   `json:"name_norm"`
	Lat5      float64  `json:"lat5"`      // シード座標（不変）
	Lon5      float64  `json:"lon5"`
	City      *string  `json:"city"`
	PlaceID   string   `json:"place_id"`
	Rating    *float64 `json:"rating"`
	HoursJSON *string  `json:"hours_json"`
	GLat5     *float64 `json:"g_lat5"` // プロバイダ正規座標
	GLon5     *float64 `json:"g_lon5"`
	ItemID    *string  `json:"item_id"`
	UpdatedMS int64    `json:"updated_ms"`
}

// MatchKey シードキー（正準化名＋round5座標）を組み立てる
func MatchKey(name string, lat, lng float64) string {
	return fmt.Sprintf("%s@%v,%v", helper.CanonicalName(name), helper.Round5(lat), helper.Round5(lng))
}

// BatchMatch キーとitem_idの両ベクトルで一括照会し、item_id優先でマージする
// 応答はリクエストと同順
func (r *SupabaseMatchCacheRepository) BatchMatch(ctx context.Context, items []model.MatchQuery, city string) ([]model.MatchResult, error) {
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

	byKey, err := r.fetchRows("key", keys)
	if err != nil {
		return nil, fmt.Errorf("マッチキャッシュのキー照会に失敗: %w", err)
	}
	byID := map[string]matchRow{}
	if len(itemIDs) > 0 {
		rows, err := r.fetchRows("item_id", itemIDs)
		if err != nil {
			return nil, fmt.Errorf("マッチキャッシュのID照会に失敗: %w", err)
		}
		for k, v := range rows {
			byID[k] = v
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

// fetchRows 指定カラムのIN照会を実行して、カラム値 → 行 のマップを返す
func (r *SupabaseMatchCacheRepository) fetchRows(column string, values []string) (map[string]matchRow, error) {
	data, count, err := r.client.GetClient().From("poi_match").
		Select("*", "exact", false).
		In(column, values).
		Execute()
	if err != nil {
		return nil, err
	}
	_ = count

	var rows []matchRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("マッチキャッシュ行のJSONアンマーシャル失敗: %w", err)
	}

	out := make(map[string]matchRow, len(rows))
	for _, row := range rows {
		switch column {
		case "key":
			out[row.Key] = row
		case "item_id":
			if row.ItemID != nil {
				out[*row.ItemID] = row
			}
		}
	}
	return out, nil
}

// BatchUpsert 解決済みポイント群を冪等にupsertする（キー衝突時は更新）
func (r *SupabaseMatchCacheRepository) BatchUpsert(ctx context.Context, entries []model.MatchUpsert) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	rows := make([]matchRow, 0, len(entries))
	for _, e := range entries {
		if e.CanonicalID == "" || e.Name == "" {
			continue
		}
		row := matchRow{
			Key:       MatchKey(e.Name, e.Lat, e.Lng),
			NameNorm:  helper.CanonicalName(e.Name),
			Lat5:      helper.Round5(e.Lat),
			Lon5:      helper.Round5(e.Lng),
			PlaceID:   e.CanonicalID,
			Rating:    e.Rating,
			HoursJSON: e.Hours,
			GLat5:     e.GLat,
			GLon5:     e.GLng,
			UpdatedMS: now,
		}
		if e.City != "" {
			city := e.City
			row.City = &city
		}
		if e.ItemID != "" {
			id := e.ItemID
			row.ItemID = &id
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("マッチキャッシュ行のJSONマーシャル失敗: %w", err)
	}

	_, _, err = r.client.GetClient().From("poi_match").
		Insert(string(data), true, "key", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("マッチキャッシュへのupsertに失敗: %w", err)
	}
	return nil
}

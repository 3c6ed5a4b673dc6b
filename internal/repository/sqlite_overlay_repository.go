package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
	"GeziTrip-POI/internal/infrastructure/database"
)

// SQLiteOverlayRepository 端末ごとのオーバーレイストア
// 解決済み・リモート発見のポイントをバンドルシャードの上に重ねる
type SQLiteOverlayRepository struct {
	db *sql.DB
}

// NewSQLiteOverlayRepository 新しいオーバーレイストアを作成する
// dataDir 配下に poi_user.db を持ち、無ければスキーマごと作る
func NewSQLiteOverlayRepository(dataDir string) (*SQLiteOverlayRepository, error) {
	return newSQLiteOverlayRepositoryAt(filepath.Join(dataDir, "poi_user.db"))
}

// NewSQLiteOverlayRepositoryInMemory テスト用のメモリ内オーバーレイストアを作成する
func NewSQLiteOverlayRepositoryInMemory() (*SQLiteOverlayRepository, error) {
	return newSQLiteOverlayRepositoryAt(":memory:")
}

func newSQLiteOverlayRepositoryAt(path string) (*SQLiteOverlayRepository, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("オーバーレイDBのオープンに失敗: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS poi_user (
		id        TEXT PRIMARY KEY,
		country   TEXT NOT NULL,
		city      TEXT NOT NULL,
		category  TEXT NOT NULL,
		name      TEXT NOT NULL,
		name_norm TEXT NOT NULL,
		lat       REAL NOT NULL,
		lon       REAL NOT NULL,
		address   TEXT,
		place_id  TEXT,
		dedup_key TEXT NOT NULL UNIQUE
	);
	CREATE INDEX IF NOT EXISTS idx_poi_user_city ON poi_user(country, city);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("オーバーレイスキーマの作成に失敗: %w", err)
	}

	return &SQLiteOverlayRepository{db: db}, nil
}

// Upsert 地域＋都市＋カテゴリ＋名前＋座標をキーに冪等へ書き込む
func (r *SQLiteOverlayRepository) Upsert(ctx context.Context, poi *model.POI) error {
	if poi.Name == "" || !poi.HasValidCoords() {
		return fmt.Errorf("不正なPOIはオーバーレイに保存できません: %q", poi.Name)
	}

	id := poi.ID
	if id == "" {
		id = uuid.NewString()
	}
	dedupKey := fmt.Sprintf("%s|%s|%s|%s|%v,%v",
		poi.Country, helper.Normalize(poi.City), poi.Category,
		helper.Normalize(poi.Name), helper.Round6(poi.Lat), helper.Round6(poi.Lng))

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO poi_user (id, country, city, category, name, name_norm, lat, lon, address, place_id, dedup_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO UPDATE SET
			place_id = COALESCE(excluded.place_id, poi_user.place_id),
			address  = COALESCE(excluded.address, poi_user.address)`,
		id, poi.Country, poi.City, poi.Category, poi.Name, helper.Normalize(poi.Name),
		poi.Lat, poi.Lng, poi.Address, nullable(poi.CanonicalID), dedupKey,
	)
	if err != nil {
		return fmt.Errorf("オーバーレイへのupsertに失敗: %w", err)
	}
	return nil
}

// Query シャードと同じ条件形式で読み取る
func (r *SQLiteOverlayRepository) Query(ctx context.Context, q *model.POIQuery) ([]model.POI, error) {
	where := "country = ?"
	args := []interface{}{q.Country}

	if q.City != "" {
		where += " AND city = ?"
		args = append(args, q.City)
	}
	if q.Category != "" {
		where += " AND category = ?"
		args = append(args, q.Category)
	}
	if t := helper.Normalize(q.Text); len([]rune(t)) >= 2 {
		where += " AND name_norm LIKE ?"
		args = append(args, "%"+t+"%")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, country, city, category, name, lat, lon, address, place_id FROM poi_user WHERE %s LIMIT %d", where, limit),
		args...)
	if err != nil {
		return []model.POI{}, nil
	}
	defer rows.Close()

	var out []model.POI
	for rows.Next() {
		var p model.POI
		var address, placeID sql.NullString
		if err := rows.Scan(&p.ID, &p.Country, &p.City, &p.Category, &p.Name, &p.Lat, &p.Lng, &address, &placeID); err != nil {
			continue
		}
		p.Address = address.String
		p.CanonicalID = placeID.String
		p.Source = model.SourceLocal
		out = append(out, p)
	}
	return helper.FilterMalformed(out), nil
}

// Close DBを閉じる
func (r *SQLiteOverlayRepository) Close() error {
	return r.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

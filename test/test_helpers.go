package test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
	"GeziTrip-POI/internal/infrastructure/database"
	repoImpl "GeziTrip-POI/internal/repository"
)

// setupTestEnvironment .envを読み込む（無くてもエラーにしない）
func setupTestEnvironment() {
	_ = godotenv.Load("../.env")
	_ = godotenv.Load(".env")
}

// buildTestShard 統合テスト用のシャード資産を組み立てて資産ディレクトリのパスを返す
func buildTestShard(dir, country string) error {
	db, err := database.OpenSQLite(filepath.Join(dir, fmt.Sprintf("poi_%s.db", country)))
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE poi (
		id TEXT PRIMARY KEY,
		country TEXT NOT NULL,
		city TEXT NOT NULL,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		name_norm TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		address TEXT,
		place_id TEXT
	)`); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"tr-001", "TR", "Ankara", model.CategorySights, "Anıtkabir", "anitkabir", 39.9251, 32.8365},
		{"tr-002", "TR", "Ankara", model.CategorySights, "Ankara Kalesi", "ankara kalesi", 39.9412, 32.8640},
		{"tr-003", "TR", "Ankara", model.CategoryMuseums, "Anadolu Medeniyetleri Müzesi", "anadolu medeniyetleri muzesi", 39.9382, 32.8626},
		{"tr-004", "TR", "İstanbul", model.CategorySights, "Galata Kulesi", "galata kulesi", 41.0256, 28.9744},
		{"tr-005", "TR", "İstanbul", model.CategorySights, "Topkapı Sarayı", "topkapi sarayi", 41.0115, 28.9833},
		{"tr-006", "TR", "İstanbul", model.CategoryCafes, "Mandabatmaz", "mandabatmaz", 41.0330, 28.9780},
	}
	for _, r := range rows {
		if _, err := db.Exec(
			"INSERT INTO poi (id, country, city, category, name, name_norm, lat, lon) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			r...,
		); err != nil {
			return err
		}
	}
	return nil
}

// setupSupabaseMatchCache Supabase REST経由のマッチキャッシュをセットアップする
func setupSupabaseMatchCache() (repository.MatchCacheRepository, func(), error) {
	client, err := database.NewSupabaseClient()
	if err != nil {
		return nil, nil, err
	}
	if err := client.HealthCheck(); err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	return repoImpl.NewSupabaseMatchCacheRepository(client), cleanup, nil
}

// hasGoogleMapsKey Google Maps APIキーが設定されているか
func hasGoogleMapsKey() bool {
	return os.Getenv("GOOGLE_MAPS_API_KEY") != ""
}

// hasSupabaseConfig Supabase接続設定が揃っているか
func hasSupabaseConfig() bool {
	return os.Getenv("SUPABASE_URL") != "" && os.Getenv("SUPABASE_ANON_KEY") != ""
}

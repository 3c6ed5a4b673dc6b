package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
	"GeziTrip-POI/internal/infrastructure/database"
)

const (
	// これ未満のファイルはコピー失敗とみなして再プロビジョニングする
	minShardBytes = 16 * 1024

	// 一次読み取り失敗後、再試行までの待機
	queryRetryDelay = 150 * time.Millisecond

	defaultQueryLimit = 50
)

// SQLiteShardStore 地域ごとのシャードファイルを管理するローカルデータセットストア
// バンドル資産からの初回コピー・スキーマ検証・1回限りの修復を担う
type SQLiteShardStore struct {
	assetDir string // 読み取り専用のバンドル資産ディレクトリ
	dataDir  string // 書き込み可能な端末ローカルディレクトリ

	group singleflight.Group

	mu        sync.Mutex
	handles   map[string]*sql.DB
	validated map[string]bool // プロセス内で一度だけ検証する
	repaired  map[string]bool // 修復は地域ごとに1回だけ（ループさせない）
}

// NewSQLiteShardStore 新しいシャードストアを作成する
func NewSQLiteShardStore(assetDir, dataDir string) repository.POIShardStore {
	return &SQLiteShardStore{
		assetDir:  assetDir,
		dataDir:   dataDir,
		handles:   make(map[string]*sql.DB),
		validated: make(map[string]bool),
		repaired:  make(map[string]bool),
	}
}

// Open シャードを準備して開く
// 同一地域への並行呼び出しはsingle-flightで1回の初期化に合流し、全員が同じ結果を受け取る
func (s *SQLiteShardStore) Open(ctx context.Context, country string) error {
	_, err, _ := s.group.Do(country, func() (interface{}, error) {
		return nil, s.openOnce(country)
	})
	return err
}

func (s *SQLiteShardStore) openOnce(country string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[country]; ok {
		return nil
	}

	destPath, err := s.provision(country)
	if err != nil {
		return err
	}

	db, err := database.OpenSQLite(destPath)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}

	// スキーマ検証はプロセス内で初回オープン時に1度だけ行う
	if !s.validated[country] {
		if !shardSchemaOK(db) && !s.repaired[country] {
			log.Printf("⚠️ シャード %s のスキーマ検証に失敗。再プロビジョニングします", country)
			s.repaired[country] = true
			db.Close()
			if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("%w: 破損シャードの削除に失敗: %v", model.ErrUnavailable, err)
			}
			if _, err := s.provision(country); err != nil {
				return err
			}
			db, err = database.OpenSQLite(destPath)
			if err != nil {
				return fmt.Errorf("%w: %v", model.ErrUnavailable, err)
			}
			// 2回目の検証結果に関わらず検証済みとする（修復は1回限り）
		}
		s.validated[country] = true
	}

	s.handles[country] = db
	return nil
}

// provision 目的ファイルが無い・小さすぎる場合にバンドル資産からコピーする
func (s *SQLiteShardStore) provision(country string) (string, error) {
	assetPath := filepath.Join(s.assetDir, fmt.Sprintf("poi_%s.db", country))
	if _, err := os.Stat(assetPath); err != nil {
		return "", fmt.Errorf("%w: バンドル資産 %s が見つかりません", model.ErrUnavailable, assetPath)
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: データディレクトリの作成に失敗: %v", model.ErrUnavailable, err)
	}

	destPath := filepath.Join(s.dataDir, fmt.Sprintf("poi_%s.db", country))
	info, err := os.Stat(destPath)
	if err == nil && info.Size() >= minShardBytes {
		return destPath, nil
	}

	if err := copyFile(assetPath, destPath); err != nil {
		return "", fmt.Errorf("%w: シャードのコピーに失敗: %v", model.ErrUnavailable, err)
	}
	log.Printf("📦 シャード %s を %s へプロビジョニングしました", country, destPath)
	return destPath, nil
}

// Query 条件付き読み取り。一次失敗時は1回だけ再試行し、それでも駄目なら空を返す
// 呼び出し側は空を「より広い条件で再検索せよ」と解釈する（シャード破損とは見なさない）
func (s *SQLiteShardStore) Query(ctx context.Context, q *model.POIQuery) ([]model.POI, error) {
	if err := s.Open(ctx, q.Country); err != nil {
		return nil, err
	}

	s.mu.Lock()
	db := s.handles[q.Country]
	s.mu.Unlock()

	rows, err := s.queryRows(ctx, db, q)
	if err != nil {
		log.Printf("⚠️ シャード読み取りに失敗、再試行します: %v", err)
		time.Sleep(queryRetryDelay)
		rows, err = s.queryRows(ctx, db, q)
		if err != nil {
			log.Printf("⚠️ シャード読み取りの再試行も失敗、空の結果を返します: %v", err)
			return []model.POI{}, nil
		}
	}
	return rows, nil
}

func (s *SQLiteShardStore) queryRows(ctx context.Context, db *sql.DB, q *model.POIQuery) ([]model.POI, error) {
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)

	if q.City != "" {
		where = append(where, "city = ?")
		args = append(args, q.City)
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if t := helper.Normalize(q.Text); len([]rune(t)) >= 2 {
		where = append(where, "name_norm LIKE ?")
		args = append(args, "%"+t+"%")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	sqlText := "SELECT id, country, city, category, name, lat, lon, address, place_id FROM poi"
	for i, w := range where {
		if i == 0 {
			sqlText += " WHERE " + w
		} else {
			sqlText += " AND " + w
		}
	}
	sqlText += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("シャードクエリの実行に失敗: %w", err)
	}
	defer rows.Close()

	var out []model.POI
	for rows.Next() {
		var p model.POI
		var address, placeID sql.NullString
		if err := rows.Scan(&p.ID, &p.Country, &p.City, &p.Category, &p.Name, &p.Lat, &p.Lng, &address, &placeID); err != nil {
			return nil, fmt.Errorf("シャード行の読み取りに失敗: %w", err)
		}
		p.Address = address.String
		p.CanonicalID = placeID.String
		p.Source = model.SourceLocal
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("シャード行の走査に失敗: %w", err)
	}
	return helper.FilterMalformed(out), nil
}

// CategoryCounts 都市単位のカテゴリ別件数（GROUP BY）
func (s *SQLiteShardStore) CategoryCounts(ctx context.Context, country, city string) (map[string]int, error) {
	if err := s.Open(ctx, country); err != nil {
		return nil, err
	}

	s.mu.Lock()
	db := s.handles[country]
	s.mu.Unlock()

	sqlText := "SELECT category, COUNT(*) AS n FROM poi"
	var args []interface{}
	if city != "" {
		sqlText += " WHERE city = ?"
		args = append(args, city)
	}
	sqlText += " GROUP BY category"

	counts := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c] = 0
	}

	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return counts, nil
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			continue
		}
		if _, ok := counts[category]; ok {
			counts[category] = n
		}
	}
	return counts, nil
}

// shardSchemaOK 期待するスキーマオブジェクト（poiテーブル）の存在確認
func shardSchemaOK(db *sql.DB) bool {
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'poi'").Scan(&name)
	return err == nil && name == "poi"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

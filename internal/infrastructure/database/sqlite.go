package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // CGO不要のPure-Go SQLiteドライバ
)

// OpenSQLite SQLiteファイルを開いて接続を確認する
// 端末ローカルのシャード・オーバーレイの両方で共用する
func OpenSQLite(path string) (*sql.DB, error) {
	connStr := path
	if path == ":memory:" {
		// メモリDBは共有キャッシュにしないと接続プールが別DBを見てしまう
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("SQLite接続の初期化に失敗: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLiteへの接続に失敗: %w", err)
	}

	return db, nil
}

package repository

import (
	"context"

	"GeziTrip-POI/internal/domain/model"
)

// PlacesOptions リモートプレイス検索の共通オプション
type PlacesOptions struct {
	Center       *model.LatLng // 検索の中心座標（任意）
	City         string
	Category     string // プロバイダのtype語彙へ変換済みの値を渡す
	Limit        int
	SessionToken string // autocomplete の課金セッション用（任意）
}

// PlacesProvider リモートのプレイス検索プロバイダ（ブラックボックスとして扱う）
// どの呼び出しもタイムアウト付きcontextで発行すること
type PlacesProvider interface {
	// Autocomplete 入力補完スタイルの検索
	Autocomplete(ctx context.Context, text string, opts *PlacesOptions) ([]model.RemoteHit, error)

	// TextSearch テキスト検索（autocompleteが空のときのフォールバック）
	TextSearch(ctx context.Context, text string, opts *PlacesOptions) ([]model.RemoteHit, error)
}

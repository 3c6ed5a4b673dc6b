package model

import "math"

// LatLng 緯度経度を表す基本的な型（検索・スコアリングで使用）
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsValid 緯度経度が有限値かどうかを返す
func (l LatLng) IsValid() bool {
	return !math.IsNaN(l.Lat) && !math.IsInf(l.Lat, 0) &&
		!math.IsNaN(l.Lng) && !math.IsInf(l.Lng, 0)
}

// POI Point of Interest（興味のあるスポット）を表すモデル
// ローカルシャード・オーバーレイ・リモート検索の結果を共通の形で扱う
type POI struct {
	ID          string   `json:"id" db:"id"`                       // シャード内で安定なローカルID
	Name        string   `json:"name" db:"name"`                   // スポット名
	Category    string   `json:"category" db:"category"`           // カテゴリ（固定6種）
	Lat         float64  `json:"lat" db:"lat"`                     // シード緯度（照合キーとして不変）
	Lng         float64  `json:"lon" db:"lon"`                     // シード経度
	Address     string   `json:"address,omitempty" db:"address"`   // 住所（空でも可）
	City        string   `json:"city" db:"city"`                   // 都市名
	Country     string   `json:"country" db:"country"`             // 国コード（シャード単位）
	Source      string   `json:"source"`                           // "local" | "remote"
	CanonicalID string   `json:"place_id,omitempty" db:"place_id"` // リモートプロバイダの正規ID（未解決ならば空）
	Rating      *float64 `json:"rating,omitempty"`
	Hours       *string  `json:"opening_hours,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`
}

// ToLatLng POIのシード座標をLatLng型に変換
func (p *POI) ToLatLng() LatLng {
	return LatLng{Lat: p.Lat, Lng: p.Lng}
}

// HasValidCoords 座標が有限値かどうか（非有限はMalformedRecordとして除外する）
func (p *POI) HasValidCoords() bool {
	return p.ToLatLng().IsValid()
}

// IsResolved 正規IDを持っているか（持っていれば再解決の対象にしない）
func (p *POI) IsResolved() bool {
	return p.CanonicalID != ""
}

// POIQuery ローカルシャード・オーバーレイへの検索条件
type POIQuery struct {
	Country  string // シャードの地域コード（必須）
	City     string // 空なら地域全体
	Category string // 空ならカテゴリ絞り込みなし
	Text     string // 正規化した部分一致で name を絞り込む（2文字未満は無視）
	Limit    int    // 0 ならデフォルト50
}

// POISearchRequest ハイブリッド検索のリクエスト
type POISearchRequest struct {
	Country         string  `json:"country"`
	City            string  `json:"city"`
	Category        string  `json:"category"`
	Text            string  `json:"q"`
	Center          *LatLng `json:"center,omitempty"`
	Limit           int     `json:"limit"`
	MinLocalResults int     `json:"min_local_results"` // 0 ならデフォルト3
}

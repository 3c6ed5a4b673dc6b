package model

import "errors"

// ErrUnavailable ローカルシャードが準備できない場合のエラー
// 上位層では「ローカルデータなし」として扱い、致命的エラーにはしない
var ErrUnavailable = errors.New("local dataset unavailable")

// RemoteHitSource リモートヒットの取得経路
type RemoteHitSource string

const (
	HitSourceAutocomplete RemoteHitSource = "autocomplete"
	HitSourceTextSearch   RemoteHitSource = "textsearch"
	HitSourceMatchCache   RemoteHitSource = "matchcache"
)

// RemoteHit リモートプロバイダの生ヒット
// 経路ごとにフィールドの有無が異なるため、境界で即座にPOI形へ正規化する
type RemoteHit struct {
	Source      RemoteHitSource `json:"source"`
	Name        string          `json:"name"`
	CanonicalID string          `json:"place_id"`
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lon"`
	Address     string          `json:"address,omitempty"`      // textsearch のみ
	Rating      *float64        `json:"rating,omitempty"`       // textsearch / matchcache
	Hours       *string         `json:"opening_hours,omitempty"`
	PriceLevel  *int            `json:"price_level,omitempty"`
}

// ToPOI リモートヒットを内部POI形へ正規化する
func (h *RemoteHit) ToPOI(city, category string) POI {
	cat := category
	if cat == "" {
		cat = CategorySights
	}
	return POI{
		ID:          h.CanonicalID,
		Name:        h.Name,
		Category:    cat,
		Lat:         h.Lat,
		Lng:         h.Lng,
		Address:     h.Address,
		City:        city,
		Source:      SourceRemote,
		CanonicalID: h.CanonicalID,
		Rating:      h.Rating,
		Hours:       h.Hours,
		PriceLevel:  h.PriceLevel,
	}
}

// ResolveStatus 解決処理の終端状態
// Unidentified → {CacheHit | FallbackMatched | Unresolved} の一方向遷移で、後戻りはしない
type ResolveStatus string

const (
	ResolveStatusAlready         ResolveStatus = "already_resolved" // 入力時点で正規ID保持
	ResolveStatusCacheHit        ResolveStatus = "cache_hit"
	ResolveStatusFallbackMatched ResolveStatus = "fallback_matched"
	ResolveStatusUnresolved      ResolveStatus = "unresolved"
)

// ResolvedPoint 解決結果：元のポイント＋解決情報
// シード座標（Point.Lat/Lng）は照合キーとして保持し、プロバイダ座標は別フィールドで持つ
type ResolvedPoint struct {
	Point     POI           `json:"point"`
	Resolved  bool          `json:"resolved"`
	Status    ResolveStatus `json:"status"`
	Score     float64       `json:"score,omitempty"`         // fallback_matched のときのみ意味を持つ
	Canonical *LatLng       `json:"canonical_pos,omitempty"` // プロバイダが返した表示・経路用座標
}

// MatchQuery 共有マッチキャッシュへのバッチ照会1件分
type MatchQuery struct {
	ItemID string  `json:"item_id,omitempty"` // 安定したポイント固有ID（あれば優先キー）
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"` // round5済みシード座標
	Lng    float64 `json:"lon"`
	City   string  `json:"city,omitempty"`
}

// MatchResult マッチキャッシュの応答1件分（リクエストと同順で並ぶ）
type MatchResult struct {
	Matched     bool     `json:"matched"`
	Key         string   `json:"key,omitempty"`
	CanonicalID string   `json:"place_id,omitempty"`
	Lat         float64  `json:"lat"` // シード座標のエコー
	Lng         float64  `json:"lon"`
	GLat        *float64 `json:"g_lat,omitempty"` // プロバイダ正規座標
	GLng        *float64 `json:"g_lon,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Hours       *string  `json:"opening_hours,omitempty"`
}

// MatchUpsert マッチキャッシュへの書き戻し1件分（冪等upsert）
type MatchUpsert struct {
	ItemID      string   `json:"item_id,omitempty"`
	Name        string   `json:"name"`
	Lat         float64  `json:"lat"` // round5済みシード座標（キーの一部として不変）
	Lng         float64  `json:"lon"`
	City        string   `json:"city,omitempty"`
	CanonicalID string   `json:"place_id"`
	GLat        *float64 `json:"g_lat,omitempty"`
	GLng        *float64 `json:"g_lon,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Hours       *string  `json:"opening_hours,omitempty"`
}

package model

import domain "GeziTrip-POI/internal/domain/model"

// POISearchResponse GET /api/poi/search のレスポンス
type POISearchResponse struct {
	Results []domain.POI `json:"results"`
	Count   int          `json:"count"`
}

// ResolveRequest POST /api/poi/resolve のリクエストボディ
type ResolveRequest struct {
	Items []domain.POI `json:"items"`
	City  string       `json:"city"`
}

// ResolveResponse POST /api/poi/resolve のレスポンス
type ResolveResponse struct {
	Results       []domain.ResolvedPoint `json:"results"`
	ResolvedCount int                    `json:"resolved_count"`
}

// CategoryCountsResponse GET /api/poi/categories のレスポンス
type CategoryCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

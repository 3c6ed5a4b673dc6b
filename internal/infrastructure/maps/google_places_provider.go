package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
)

// GooglePlacesProvider Google Places APIを使用したリモートプレイス検索の実装
type GooglePlacesProvider struct {
	apiKey     string
	httpClient *http.Client
}

// NewGooglePlacesProvider 新しいプロバイダを生成する
func NewGooglePlacesProvider(apiKey string) *GooglePlacesProvider {
	return &GooglePlacesProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Autocomplete 入力補完スタイルの単発検索（Find Place From Text）
// 座標・place_idまで一度に返るため、補完用途の一次呼び出しとして使う
func (g *GooglePlacesProvider) Autocomplete(ctx context.Context, text string, opts *repository.PlacesOptions) ([]model.RemoteHit, error) {
	endpoint := "https://maps.googleapis.com/maps/api/place/findplacefromtext/json"
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("language", "tr")
	params.Set("input", text)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id,name,geometry,formatted_address")
	if opts != nil {
		if opts.Center != nil && opts.Center.IsValid() {
			params.Set("locationbias", fmt.Sprintf("circle:8000@%f,%f", opts.Center.Lat, opts.Center.Lng))
		}
		if opts.SessionToken != "" {
			params.Set("sessiontoken", opts.SessionToken)
		}
	}

	var apiResp findPlaceResponse
	if err := g.getJSON(ctx, endpoint, params, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != "OK" && apiResp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("Places APIからエラーステータスが返されました: %s", apiResp.Status)
	}

	hits := make([]model.RemoteHit, 0, len(apiResp.Candidates))
	for _, c := range apiResp.Candidates {
		hits = append(hits, model.RemoteHit{
			Source:      model.HitSourceAutocomplete,
			Name:        c.Name,
			CanonicalID: c.PlaceID,
			Lat:         c.Geometry.Location.Lat,
			Lng:         c.Geometry.Location.Lng,
			Address:     c.FormattedAddress,
		})
	}
	return limitHits(hits, opts), nil
}

// TextSearch テキスト検索（カテゴリはtype語彙に変換済みの値を受け取る）
func (g *GooglePlacesProvider) TextSearch(ctx context.Context, text string, opts *repository.PlacesOptions) ([]model.RemoteHit, error) {
	endpoint := "https://maps.googleapis.com/maps/api/place/textsearch/json"
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("language", "tr")
	params.Set("region", "tr")
	params.Set("query", text)
	if opts != nil {
		if opts.Center != nil && opts.Center.IsValid() {
			params.Set("location", fmt.Sprintf("%f,%f", opts.Center.Lat, opts.Center.Lng))
			params.Set("radius", "8000")
		}
		if opts.Category != "" {
			params.Set("type", opts.Category)
		}
	}

	var apiResp textSearchResponse
	if err := g.getJSON(ctx, endpoint, params, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != "OK" && apiResp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("Places APIからエラーステータスが返されました: %s", apiResp.Status)
	}

	hits := make([]model.RemoteHit, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		var rating *float64
		if r.Rating != 0 {
			v := r.Rating
			rating = &v
		}
		var price *int
		if r.PriceLevel != nil {
			price = r.PriceLevel
		}
		address := r.FormattedAddress
		if address == "" {
			address = r.Vicinity
		}
		hits = append(hits, model.RemoteHit{
			Source:      model.HitSourceTextSearch,
			Name:        r.Name,
			CanonicalID: r.PlaceID,
			Lat:         r.Geometry.Location.Lat,
			Lng:         r.Geometry.Location.Lng,
			Address:     address,
			Rating:      rating,
			PriceLevel:  price,
		})
	}
	return limitHits(hits, opts), nil
}

// getJSON リクエストを組み立てて実行し、JSONレスポンスをパースする
func (g *GooglePlacesProvider) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	return nil
}

func limitHits(hits []model.RemoteHit, opts *repository.PlacesOptions) []model.RemoteHit {
	if opts == nil || opts.Limit <= 0 || len(hits) <= opts.Limit {
		return hits
	}
	return hits[:opts.Limit]
}

// --- Google Places APIのレスポンスをパースするための構造体 ---

type placeLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
type placeGeometry struct {
	Location placeLocation `json:"location"`
}

type findPlaceResponse struct {
	Candidates []struct {
		PlaceID          string        `json:"place_id"`
		Name             string        `json:"name"`
		Geometry         placeGeometry `json:"geometry"`
		FormattedAddress string        `json:"formatted_address"`
	} `json:"candidates"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type textSearchResponse struct {
	Results []struct {
		PlaceID          string        `json:"place_id"`
		Name             string        `json:"name"`
		Geometry         placeGeometry `json:"geometry"`
		FormattedAddress string        `json:"formatted_address"`
		Vicinity         string        `json:"vicinity"`
		Rating           float64       `json:"rating"`
		PriceLevel       *int          `json:"price_level"`
		Types            []string      `json:"types"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

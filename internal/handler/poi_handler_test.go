package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/model"
)

// stubSearchUseCase 受け取ったリクエストを記録して固定結果を返す
type stubSearchUseCase struct {
	lastReq *domain.POISearchRequest
	results []domain.POI
	counts  map[string]int
}

func (s *stubSearchUseCase) Search(ctx context.Context, req *domain.POISearchRequest) ([]domain.POI, error) {
	s.lastReq = req
	return s.results, nil
}

func (s *stubSearchUseCase) CategoryCounts(ctx context.Context, country, city string) (map[string]int, error) {
	return s.counts, nil
}

// stubResolveUseCase 全件fallback_matched扱いで返す
type stubResolveUseCase struct {
	lastCity string
}

func (s *stubResolveUseCase) ResolveBatch(ctx context.Context, points []domain.POI, city string) ([]domain.ResolvedPoint, error) {
	s.lastCity = city
	out := make([]domain.ResolvedPoint, len(points))
	for i, p := range points {
		out[i] = domain.ResolvedPoint{Point: p, Resolved: true, Status: domain.ResolveStatusFallbackMatched}
	}
	return out, nil
}

func (s *stubResolveUseCase) WaitPersist() {}

func setupTestRouter(search *stubSearchUseCase, resolve *stubResolveUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPOIHandler(search, resolve)
	r := gin.New()
	r.GET("/api/poi/search", h.Search)
	r.GET("/api/poi/categories", h.CategoryCounts)
	r.POST("/api/poi/resolve", h.Resolve)
	return r
}

// TestPOIHandler_Search クエリパラメータの取り込みとレスポンス形式
func TestPOIHandler_Search(t *testing.T) {
	search := &stubSearchUseCase{results: []domain.POI{
		{ID: "tr-001", Name: "Anıtkabir", Category: domain.CategorySights, Lat: 39.9251, Lng: 32.8365, City: "Ankara", Country: "TR", Source: domain.SourceLocal},
	}}
	router := setupTestRouter(search, &stubResolveUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/poi/search?city=Ankara&category=sights&q=anit&limit=10&lat=39.92&lon=32.83", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp model.POISearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Anıtkabir", resp.Results[0].Name)

	// ハンドラーがリクエストを正しく組み立てている
	require.NotNil(t, search.lastReq)
	assert.Equal(t, "TR", search.lastReq.Country)
	assert.Equal(t, "Ankara", search.lastReq.City)
	assert.Equal(t, "sights", search.lastReq.Category)
	assert.Equal(t, "anit", search.lastReq.Text)
	assert.Equal(t, 10, search.lastReq.Limit)
	require.NotNil(t, search.lastReq.Center)
	assert.Equal(t, 39.92, search.lastReq.Center.Lat)
}

// TestPOIHandler_Search_InvalidParams 数値パラメータの形式エラーは400
func TestPOIHandler_Search_InvalidParams(t *testing.T) {
	router := setupTestRouter(&stubSearchUseCase{}, &stubResolveUseCase{})

	t.Run("limitが数値でない", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/poi/search?limit=abc", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("latが数値でない", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/poi/search?lat=xx&lon=32.83", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestPOIHandler_Resolve バッチ解決のリクエスト・レスポンス形式
func TestPOIHandler_Resolve(t *testing.T) {
	resolve := &stubResolveUseCase{}
	router := setupTestRouter(&stubSearchUseCase{}, resolve)

	body := `{"city":"Ankara","items":[{"name":"Anıtkabir","lat":39.9251,"lon":32.8365}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/poi/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp model.ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ResolvedCount)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Anıtkabir", resp.Results[0].Point.Name)
	assert.Equal(t, "Ankara", resolve.lastCity)
}

// TestPOIHandler_Resolve_InvalidJSON 壊れたボディは400
func TestPOIHandler_Resolve_InvalidJSON(t *testing.T) {
	router := setupTestRouter(&stubSearchUseCase{}, &stubResolveUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/poi/resolve", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestPOIHandler_CategoryCounts カテゴリ別件数のレスポンス形式
func TestPOIHandler_CategoryCounts(t *testing.T) {
	search := &stubSearchUseCase{counts: map[string]int{
		domain.CategorySights: 12,
		domain.CategoryCafes:  3,
	}}
	router := setupTestRouter(search, &stubResolveUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/poi/categories?city=Ankara", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp model.CategoryCountsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.Counts[domain.CategorySights])
	assert.Equal(t, 3, resp.Counts[domain.CategoryCafes])
}

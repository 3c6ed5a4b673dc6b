package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domain "GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/usecase"
	"GeziTrip-POI/model"
)

// POIHandler POI検索・解決に関するHTTPハンドラー
type POIHandler struct {
	searchUseCase  usecase.HybridSearchUseCase
	resolveUseCase usecase.ResolveUseCase
}

// NewPOIHandler POIHandlerの新しいインスタンスを作成
func NewPOIHandler(searchUseCase usecase.HybridSearchUseCase, resolveUseCase usecase.ResolveUseCase) *POIHandler {
	return &POIHandler{
		searchUseCase:  searchUseCase,
		resolveUseCase: resolveUseCase,
	}
}

// Search GET /api/poi/search - ハイブリッドPOI検索
func (h *POIHandler) Search(c *gin.Context) {
	req := &domain.POISearchRequest{
		Country:  c.DefaultQuery("country", "TR"),
		City:     c.Query("city"),
		Category: c.Query("category"),
		Text:     c.Query("q"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": "Invalid limit value",
			})
			return
		}
		req.Limit = limit
	}

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_parameter",
				"message": "Invalid lat/lon values",
			})
			return
		}
		req.Center = &domain.LatLng{Lat: lat, Lng: lon}
	}

	results, err := h.searchUseCase.Search(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to search POIs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.POISearchResponse{Results: results, Count: len(results)})
}

// Resolve POST /api/poi/resolve - 未解決ポイントのバッチ解決
func (h *POIHandler) Resolve(c *gin.Context) {
	var req model.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	results, err := h.resolveUseCase.ResolveBatch(c.Request.Context(), req.Items, req.City)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to resolve points: " + err.Error(),
		})
		return
	}

	resolved := 0
	for _, r := range results {
		if r.Resolved {
			resolved++
		}
	}
	c.JSON(http.StatusOK, model.ResolveResponse{Results: results, ResolvedCount: resolved})
}

// CategoryCounts GET /api/poi/categories - カテゴリ別件数
func (h *POIHandler) CategoryCounts(c *gin.Context) {
	country := c.DefaultQuery("country", "TR")
	city := c.Query("city")

	counts, err := h.searchUseCase.CategoryCounts(c.Request.Context(), country, city)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to count categories: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.CategoryCountsResponse{Counts: counts})
}

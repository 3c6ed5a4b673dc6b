package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GeziTrip-POI/internal/domain/model"
)

// TestResolveBatch_AlreadyResolved 正規ID保持のポイントはネットワークゼロで素通しされる
func TestResolveBatch_AlreadyResolved(t *testing.T) {
	cache := &fakeMatchCache{}
	provider := &fakePlacesProvider{}
	uc, err := NewResolveUseCase(cache, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	points := []model.POI{
		{ID: "p1", Name: "Anıtkabir", CanonicalID: "ChIJ1", Lat: 39.9251, Lng: 32.8365},
		{ID: "p2", Name: "Ankara Kalesi", CanonicalID: "ChIJ2", Lat: 39.9412, Lng: 32.8640},
	}

	results, err := uc.ResolveBatch(context.Background(), points, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Resolved)
		assert.Equal(t, model.ResolveStatusAlready, r.Status)
	}

	assert.Equal(t, 0, cache.matchCalls)
	assert.Equal(t, 0, provider.textSearchCallCount())
}

// TestResolveBatch_MalformedPoints 不正なポイントはネットワークを呼ばずunresolvedになる
func TestResolveBatch_MalformedPoints(t *testing.T) {
	cache := &fakeMatchCache{}
	provider := &fakePlacesProvider{}
	uc, err := NewResolveUseCase(cache, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "", Lat: 39.9, Lng: 32.8},
	}, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Resolved)
	assert.Equal(t, model.ResolveStatusUnresolved, results[0].Status)
	assert.Equal(t, 0, cache.matchCalls)
	assert.Equal(t, 0, provider.textSearchCallCount())
}

// TestResolveBatch_CacheHit マッチキャッシュのヒットはフォールバックを起こさない
func TestResolveBatch_CacheHit(t *testing.T) {
	gLat, gLng := 39.92505, 32.83648
	rating := 4.7
	cache := &fakeMatchCache{byItemID: map[string]model.MatchResult{
		"p1": {Matched: true, CanonicalID: "ChIJAnit", GLat: &gLat, GLng: &gLng, Rating: &rating},
	}}
	provider := &fakePlacesProvider{}
	uc, err := NewResolveUseCase(cache, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "Anıtkabir", Lat: 39.9251, Lng: 32.8365},
	}, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.True(t, r.Resolved)
	assert.Equal(t, model.ResolveStatusCacheHit, r.Status)
	assert.Equal(t, "ChIJAnit", r.Point.CanonicalID)
	// シード座標は照合キーとして不変のまま
	assert.Equal(t, 39.9251, r.Point.Lat)
	// プロバイダ座標は別フィールドに載る
	require.NotNil(t, r.Canonical)
	assert.Equal(t, gLat, r.Canonical.Lat)
	require.NotNil(t, r.Point.Rating)
	assert.Equal(t, rating, *r.Point.Rating)

	assert.Equal(t, 1, cache.matchCalls)
	assert.Equal(t, 0, provider.textSearchCallCount())
	// キャッシュヒットは書き戻さない（新規解決分のみが対象）
	uc.WaitPersist()
	assert.Equal(t, 0, cache.upsertCount())
}

// TestResolveBatch_FallbackMatched キャッシュミス → カスケード1段目で解決し書き戻す
func TestResolveBatch_FallbackMatched(t *testing.T) {
	cache := &fakeMatchCache{}
	overlay := &fakeOverlayRepository{}
	provider := &fakePlacesProvider{textSearchByQuery: map[string][]model.RemoteHit{
		"Anıtkabir Ankara": {
			{Source: model.HitSourceTextSearch, Name: "Anıtkabir", CanonicalID: "ChIJAnit", Lat: 39.9252, Lng: 32.8366},
		},
	}}
	uc, err := NewResolveUseCase(cache, provider, overlay, DefaultResolverConfig())
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "Anıtkabir", Category: model.CategorySights, Lat: 39.9251, Lng: 32.8365},
	}, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.True(t, r.Resolved)
	assert.Equal(t, model.ResolveStatusFallbackMatched, r.Status)
	assert.Equal(t, "ChIJAnit", r.Point.CanonicalID)
	assert.Greater(t, r.Score, 0.9)
	require.NotNil(t, r.Canonical)
	assert.Equal(t, 39.9252, r.Canonical.Lat)

	// 1段目でヒットしたので発行クエリは1つだけ
	assert.Equal(t, []string{"Anıtkabir Ankara"}, provider.issuedQueries())

	// 新規解決分はマッチキャッシュとオーバーレイの両方へ書き戻される
	uc.WaitPersist()
	assert.Equal(t, 1, cache.upsertCount())
	assert.Equal(t, 1, overlay.upsertCount())
}

// TestResolveBatch_CascadeVariantOrder 前段が空のときだけ次のバリアントが発行される
func TestResolveBatch_CascadeVariantOrder(t *testing.T) {
	provider := &fakePlacesProvider{textSearchByQuery: map[string][]model.RemoteHit{
		// 1段目「名前＋都市」は空、2段目「カテゴリ＋名前＋都市」でヒット
		"restaurants Hacı Arif Bey Ankara": {
			{Source: model.HitSourceTextSearch, Name: "Hacı Arif Bey", CanonicalID: "ChIJHaci", Lat: 39.9181, Lng: 32.8541},
		},
	}}
	uc, err := NewResolveUseCase(nil, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "Hacı Arif Bey", Category: model.CategoryRestaurants, Lat: 39.9180, Lng: 32.8540},
	}, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.ResolveStatusFallbackMatched, results[0].Status)

	// 2段目で打ち切られ、3段目「名前のみ」は発行されない
	assert.Equal(t, []string{"Hacı Arif Bey Ankara", "restaurants Hacı Arif Bey Ankara"}, provider.issuedQueries())
}

// TestResolveBatch_ThresholdRejects 低スコア候補しか無ければunresolvedのまま
func TestResolveBatch_ThresholdRejects(t *testing.T) {
	provider := &fakePlacesProvider{textSearchByQuery: map[string][]model.RemoteHit{
		// 名前が全く違い、距離も遠い候補だけが返る
		"Anıtkabir Ankara": {
			{Source: model.HitSourceTextSearch, Name: "Balıkçı Mehmet", CanonicalID: "ChIJFar", Lat: 41.0256, Lng: 28.9744},
		},
	}}
	uc, err := NewResolveUseCase(nil, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "Anıtkabir", Lat: 39.9251, Lng: 32.8365},
	}, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Resolved)
	assert.Equal(t, model.ResolveStatusUnresolved, results[0].Status)
	assert.Empty(t, results[0].Point.CanonicalID)
}

// TestResolveBatch_QueryCacheReuse 同一キーの再解決はネットワークを再発行しない
func TestResolveBatch_QueryCacheReuse(t *testing.T) {
	provider := &fakePlacesProvider{textSearchByQuery: map[string][]model.RemoteHit{
		"Anıtkabir Ankara": {
			{Source: model.HitSourceTextSearch, Name: "Anıtkabir", CanonicalID: "ChIJAnit", Lat: 39.9252, Lng: 32.8366},
		},
	}}
	uc, err := NewResolveUseCase(nil, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	point := model.POI{ID: "p1", Name: "Anıtkabir", Lat: 39.9251, Lng: 32.8365}

	_, err = uc.ResolveBatch(context.Background(), []model.POI{point}, "Ankara")
	require.NoError(t, err)
	first := provider.textSearchCallCount()

	_, err = uc.ResolveBatch(context.Background(), []model.POI{point}, "Ankara")
	require.NoError(t, err)
	assert.Equal(t, first, provider.textSearchCallCount())
}

// TestResolveBatch_PartialFailure 1点の失敗がバッチ全体を道連れにしない
func TestResolveBatch_PartialFailure(t *testing.T) {
	provider := &fakePlacesProvider{textSearchByQuery: map[string][]model.RemoteHit{
		"Anıtkabir Ankara": {
			{Source: model.HitSourceTextSearch, Name: "Anıtkabir", CanonicalID: "ChIJAnit", Lat: 39.9252, Lng: 32.8366},
		},
		// もう1点にはどのバリアントもヒットしない
	}}
	uc, err := NewResolveUseCase(nil, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "Anıtkabir", Lat: 39.9251, Lng: 32.8365},
		{ID: "p2", Name: "Bilinmeyen Mekan", Lat: 39.9000, Lng: 32.8000},
	}, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, model.ResolveStatusFallbackMatched, results[0].Status)
	assert.Equal(t, model.ResolveStatusUnresolved, results[1].Status)
}

// TestResolveBatch_CacheErrorFallsBack キャッシュ照会失敗はフォールバックで吸収される
func TestResolveBatch_CacheErrorFallsBack(t *testing.T) {
	cache := &fakeMatchCache{matchErr: assert.AnError}
	provider := &fakePlacesProvider{textSearchByQuery: map[string][]model.RemoteHit{
		"Anıtkabir Ankara": {
			{Source: model.HitSourceTextSearch, Name: "Anıtkabir", CanonicalID: "ChIJAnit", Lat: 39.9252, Lng: 32.8366},
		},
	}}
	uc, err := NewResolveUseCase(cache, provider, nil, DefaultResolverConfig())
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "Anıtkabir", Lat: 39.9251, Lng: 32.8365},
	}, "Ankara")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.ResolveStatusFallbackMatched, results[0].Status)
}

// TestResolveBatch_FallbackDisabled フォールバック無効ならキャッシュミスはunresolvedで止まる
func TestResolveBatch_FallbackDisabled(t *testing.T) {
	cache := &fakeMatchCache{}
	provider := &fakePlacesProvider{}
	config := DefaultResolverConfig()
	config.FallbackEnabled = false
	uc, err := NewResolveUseCase(cache, provider, nil, config)
	require.NoError(t, err)

	results, err := uc.ResolveBatch(context.Background(), []model.POI{
		{ID: "p1", Name: "Anıtkabir", Lat: 39.9251, Lng: 32.8365},
	}, "Ankara")
	require.NoError(t, err)
	assert.Equal(t, model.ResolveStatusUnresolved, results[0].Status)
	assert.Equal(t, 1, cache.matchCalls)
	assert.Equal(t, 0, provider.textSearchCallCount())
}

package usecase

import (
	"context"
	"strings"
	"sync"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
)

// fakeShardStore メモリ上の行に対して実装と同じ条件形式を適用するスタブ
type fakeShardStore struct {
	mu         sync.Mutex
	rows       []model.POI
	counts     map[string]int
	openErr    error
	queryCalls int
}

func (f *fakeShardStore) Open(ctx context.Context, country string) error {
	return f.openErr
}

func (f *fakeShardStore) Query(ctx context.Context, q *model.POIQuery) ([]model.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.openErr != nil {
		return nil, f.openErr
	}

	text := helper.Normalize(q.Text)
	if len([]rune(text)) < 2 {
		text = ""
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	var out []model.POI
	for _, p := range f.rows {
		if p.Country != q.Country {
			continue
		}
		if q.City != "" && p.City != q.City {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if text != "" && !strings.Contains(helper.Normalize(p.Name), text) {
			continue
		}
		p.Source = model.SourceLocal
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeShardStore) CategoryCounts(ctx context.Context, country, city string) (map[string]int, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	counts := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c] = f.counts[c]
	}
	return counts, nil
}

// fakeOverlayRepository upsertを記録するだけのメモリ実装
type fakeOverlayRepository struct {
	mu       sync.Mutex
	rows     []model.POI
	upserted []model.POI
}

func (f *fakeOverlayRepository) Upsert(ctx context.Context, poi *model.POI) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, *poi)
	return nil
}

func (f *fakeOverlayRepository) Query(ctx context.Context, q *model.POIQuery) ([]model.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.POI
	for _, p := range f.rows {
		if p.Country != q.Country {
			continue
		}
		if q.City != "" && p.City != q.City {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeOverlayRepository) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted)
}

// fakePlacesProvider クエリ文字列ごとに応答を返し、呼び出し履歴を記録するスタブ
type fakePlacesProvider struct {
	mu                sync.Mutex
	autocompleteHits  []model.RemoteHit
	autocompleteErr   error
	textSearchByQuery map[string][]model.RemoteHit // 未登録クエリは空ヒット
	textSearchErr     error
	autocompleteCalls int
	textSearchCalls   []string // 発行されたクエリの並び
}

func (f *fakePlacesProvider) Autocomplete(ctx context.Context, text string, opts *repository.PlacesOptions) ([]model.RemoteHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autocompleteCalls++
	if f.autocompleteErr != nil {
		return nil, f.autocompleteErr
	}
	return f.autocompleteHits, nil
}

func (f *fakePlacesProvider) TextSearch(ctx context.Context, text string, opts *repository.PlacesOptions) ([]model.RemoteHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textSearchCalls = append(f.textSearchCalls, text)
	if f.textSearchErr != nil {
		return nil, f.textSearchErr
	}
	return f.textSearchByQuery[text], nil
}

func (f *fakePlacesProvider) textSearchCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.textSearchCalls)
}

func (f *fakePlacesProvider) issuedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.textSearchCalls))
	copy(out, f.textSearchCalls)
	return out
}

// fakeMatchCache 事前登録したキー（item_id）で照合するスタブ
type fakeMatchCache struct {
	mu           sync.Mutex
	byItemID     map[string]model.MatchResult
	matchErr     error
	matchCalls   int
	upsertedSets [][]model.MatchUpsert
}

func (f *fakeMatchCache) BatchMatch(ctx context.Context, queries []model.MatchQuery, city string) ([]model.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchCalls++
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	out := make([]model.MatchResult, len(queries))
	for i, q := range queries {
		if m, ok := f.byItemID[q.ItemID]; ok {
			out[i] = m
		} else {
			out[i] = model.MatchResult{Matched: false, Lat: q.Lat, Lng: q.Lng}
		}
	}
	return out, nil
}

func (f *fakeMatchCache) BatchUpsert(ctx context.Context, entries []model.MatchUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertedSets = append(f.upsertedSets, entries)
	return nil
}

func (f *fakeMatchCache) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.upsertedSets {
		n += len(s)
	}
	return n
}

package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
)

// SearchConfig ハイブリッド検索のチューニング値
type SearchConfig struct {
	DefaultLimit    int           // 結果の上限（既定50）
	BrowseLimit     int           // テキストなし閲覧リストの件数（既定20）
	MinLocalResults int           // これ未満ならリモートフォールバックする（既定3）
	WidenRowCap     int           // カテゴリ拡大時の行キャップ（既定200）
	ScanCap         int           // 件数集計フォールバックの全表走査上限（既定500）
	RemoteTimeout   time.Duration // リモート呼び出しのタイムアウト（既定9秒）
	PersistCap      int           // 1回の検索でオーバーレイへ保存する上限（既定10）
}

// DefaultSearchConfig 既定の検索設定を返す
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit:    50,
		BrowseLimit:     20,
		MinLocalResults: 3,
		WidenRowCap:     200,
		ScanCap:         500,
		RemoteTimeout:   9 * time.Second,
		PersistCap:      10,
	}
}

// HybridSearchUseCase ローカル優先のハイブリッドPOI検索
type HybridSearchUseCase interface {
	// Search ローカルシャードを先に読み、結果が薄い場合のみ条件を広げ、
	// テキストクエリがあるときに限ってリモートへフォールバックする
	Search(ctx context.Context, req *model.POISearchRequest) ([]model.POI, error)

	// CategoryCounts 都市のカテゴリ別件数。GROUP BYが全ゼロなら
	// 上限付き全表走査＋カテゴリ推定で数え直す
	CategoryCounts(ctx context.Context, country, city string) (map[string]int, error)
}

// hybridSearchUseCaseImpl HybridSearchUseCaseの実装
type hybridSearchUseCaseImpl struct {
	shardStore     repository.POIShardStore
	overlayRepo    repository.OverlayRepository // 任意（nilならオーバーレイなし）
	placesProvider repository.PlacesProvider    // 任意（nilならリモートフォールバックなし）
	config         SearchConfig

	// セッション内で同じ正規IDを重ねて保存しないための集合
	persistedIDs sync.Map
}

// NewHybridSearchUseCase 新しいHybridSearchUseCaseインスタンスを作成
func NewHybridSearchUseCase(
	shardStore repository.POIShardStore,
	overlayRepo repository.OverlayRepository,
	placesProvider repository.PlacesProvider,
	config SearchConfig,
) HybridSearchUseCase {
	return &hybridSearchUseCaseImpl{
		shardStore:     shardStore,
		overlayRepo:    overlayRepo,
		placesProvider: placesProvider,
		config:         config,
	}
}

// Search ハイブリッド検索の本体
func (u *hybridSearchUseCaseImpl) Search(ctx context.Context, req *model.POISearchRequest) ([]model.POI, error) {
	limit := req.Limit
	if limit <= 0 || limit > u.config.DefaultLimit {
		limit = u.config.DefaultLimit
	}
	minLocal := req.MinLocalResults
	if minLocal <= 0 {
		minLocal = u.config.MinLocalResults
	}
	hasText := len([]rune(helper.Normalize(req.Text))) >= 2

	// Step 1: 完全一致フィルタ（都市＋カテゴリ＋部分一致）でローカルを読む
	exact := u.queryLocal(ctx, &model.POIQuery{
		Country:  req.Country,
		City:     req.City,
		Category: req.Category,
		Text:     req.Text,
		Limit:    limit,
	})

	// テキストありでローカル完全一致が出たら即返す（拡大もリモートもしない）
	if hasText && len(exact) > 0 {
		return truncate(exact, limit), nil
	}

	results := exact

	// Step 2: カテゴリ指定ありで件数不足なら、カテゴリなしで広げて推定分類する
	if req.Category != "" && len(results) < limit {
		widened := u.widenByCategory(ctx, req, limit)
		results = helper.MergePOIs(results, widened)
	}

	// Step 3: テキストなしなら安定した閲覧リストを返す（リモートは呼ばない）
	if !hasText {
		n := u.config.BrowseLimit
		if n > limit {
			n = limit
		}
		return truncate(results, n), nil
	}

	// Step 4: テキストありでローカルが閾値未満ならリモートへフォールバック
	if len(results) < minLocal && u.placesProvider != nil {
		remote := u.searchRemote(ctx, req)
		if len(remote) > 0 {
			u.persistRemoteHits(req, remote)
			results = helper.MergePOIs(results, remote)
		}
	}

	return truncate(results, limit), nil
}

// queryLocal シャードとオーバーレイを同条件で読み、マージして返す
// シャードがUnavailableでも「ローカルデータなし」として空扱いにする
func (u *hybridSearchUseCaseImpl) queryLocal(ctx context.Context, q *model.POIQuery) []model.POI {
	var sets [][]model.POI

	rows, err := u.shardStore.Query(ctx, q)
	if err != nil {
		log.Printf("⚠️ ローカルシャードが利用できません（ローカルなしで継続）: %v", err)
	} else {
		sets = append(sets, rows)
	}

	if u.overlayRepo != nil {
		overlayRows, err := u.overlayRepo.Query(ctx, q)
		if err == nil {
			sets = append(sets, overlayRows)
		}
	}

	return helper.MergePOIs(sets...)
}

// widenByCategory カテゴリフィルタを外した行をクライアント側で推定分類して絞り込む
// 都市スコープが空なら地域全体までもう一段広げる
func (u *hybridSearchUseCaseImpl) widenByCategory(ctx context.Context, req *model.POISearchRequest, limit int) []model.POI {
	pool := u.queryLocal(ctx, &model.POIQuery{
		Country: req.Country,
		City:    req.City,
		Text:    req.Text,
		Limit:   u.config.WidenRowCap,
	})
	if len(pool) == 0 && req.City != "" {
		pool = u.queryLocal(ctx, &model.POIQuery{
			Country: req.Country,
			Text:    req.Text,
			Limit:   u.config.WidenRowCap,
		})
	}

	out := make([]model.POI, 0, limit)
	for _, p := range pool {
		if helper.EffectiveCategory(&p) != req.Category {
			continue
		}
		p.Category = req.Category
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// searchRemote autocomplete → 空ならtextsearch の順でリモートを呼ぶ
// 失敗はこの検索経路だけを「リモートなし」に落とし、エラーは伝播させない
func (u *hybridSearchUseCaseImpl) searchRemote(ctx context.Context, req *model.POISearchRequest) []model.POI {
	callCtx, cancel := context.WithTimeout(ctx, u.config.RemoteTimeout)
	defer cancel()

	opts := &repository.PlacesOptions{
		Center:   req.Center,
		City:     req.City,
		Limit:    u.config.DefaultLimit,
		Category: model.PlaceTypeFor(req.Category),
	}

	hits, err := u.placesProvider.Autocomplete(callCtx, req.Text, opts)
	if err != nil {
		log.Printf("⚠️ autocomplete失敗（textsearchへ切替）: %v", err)
		hits = nil
	}
	if len(hits) == 0 {
		hits, err = u.placesProvider.TextSearch(callCtx, req.Text, opts)
		if err != nil {
			log.Printf("⚠️ textsearch失敗（ローカル結果のみで継続）: %v", err)
			return nil
		}
	}

	out := make([]model.POI, 0, len(hits))
	for _, h := range hits {
		p := h.ToPOI(req.City, req.Category)
		p.Country = req.Country
		out = append(out, p)
	}
	return helper.FilterMalformed(out)
}

// persistRemoteHits リモートヒットをオーバーレイへ黙って保存する（上限付き・セッション内重複なし）
// 失敗はログのみで、検索結果には影響させない
func (u *hybridSearchUseCaseImpl) persistRemoteHits(req *model.POISearchRequest, hits []model.POI) {
	if u.overlayRepo == nil {
		return
	}

	toSave := make([]model.POI, 0, u.config.PersistCap)
	for _, h := range hits {
		if len(toSave) >= u.config.PersistCap {
			break
		}
		if h.CanonicalID == "" {
			continue
		}
		if _, loaded := u.persistedIDs.LoadOrStore(h.CanonicalID, struct{}{}); loaded {
			continue
		}
		toSave = append(toSave, h)
	}
	if len(toSave) == 0 {
		return
	}

	go func(pois []model.POI) {
		ctx, cancel := context.WithTimeout(context.Background(), u.config.RemoteTimeout)
		defer cancel()
		for _, p := range pois {
			if err := u.overlayRepo.Upsert(ctx, &p); err != nil {
				log.Printf("⚠️ オーバーレイ保存に失敗（無視）: %v", err)
			}
		}
	}(toSave)
}

// CategoryCounts カテゴリ別件数の取得
func (u *hybridSearchUseCaseImpl) CategoryCounts(ctx context.Context, country, city string) (map[string]int, error) {
	counts, err := u.shardStore.CategoryCounts(ctx, country, city)
	if err != nil {
		counts = emptyCounts()
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total > 0 {
		return counts, nil
	}

	// GROUP BYが全ゼロ → カテゴリ列が信頼できないシャード。走査して推定分類で数える
	rows := u.queryLocal(ctx, &model.POIQuery{Country: country, City: city, Limit: u.config.ScanCap})
	counts = emptyCounts()
	for _, p := range rows {
		counts[helper.EffectiveCategory(&p)]++
	}
	return counts, nil
}

func emptyCounts() map[string]int {
	counts := make(map[string]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c] = 0
	}
	return counts
}

func truncate(pois []model.POI, n int) []model.POI {
	if len(pois) <= n {
		return pois
	}
	return pois[:n]
}

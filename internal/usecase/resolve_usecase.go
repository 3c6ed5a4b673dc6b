package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
	"GeziTrip-POI/internal/domain/repository"
	"GeziTrip-POI/internal/domain/service"
)

// ResolverConfig エンティティ解決のチューニング値
type ResolverConfig struct {
	Concurrency     int                  // フォールバックの同時実行数（既定6）
	RemoteTimeout   time.Duration        // リモート呼び出し1回あたりのタイムアウト（既定9秒）
	FallbackEnabled bool                 // falseならマッチキャッシュ照会のみ
	Scorer          service.ScorerConfig // スコアリング設定
}

// DefaultResolverConfig 既定の解決設定を返す
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Concurrency:     6,
		RemoteTimeout:   9 * time.Second,
		FallbackEnabled: true,
		Scorer:          service.DefaultScorerConfig(),
	}
}

// ResolveUseCase 正規IDを持たないポイント群をリモートの正規レコードへ解決する
type ResolveUseCase interface {
	// ResolveBatch バッチ解決。二段構え：
	// 1) 共有マッチキャッシュへの一括照会
	// 2) 未解決分への並行数制限付きファジーフォールバック（3段カスケード・早期打ち切り）
	// 個々のリモート失敗はそのポイントだけをunresolvedに落とし、バッチ全体は完走する
	ResolveBatch(ctx context.Context, points []model.POI, city string) ([]model.ResolvedPoint, error)

	// WaitPersist 進行中のfire-and-forget書き戻しが終わるまで待つ（シャットダウン時用）
	WaitPersist()
}

// resolveUseCaseImpl ResolveUseCaseの実装
// クエリ結果キャッシュと保存済み集合はこのインスタンス（＝セッション）の寿命で持つ
type resolveUseCaseImpl struct {
	matchCache repository.MatchCacheRepository // 任意
	provider   repository.PlacesProvider       // 任意
	overlay    repository.OverlayRepository    // 任意
	scorer     *service.MatchScorer
	config     ResolverConfig
	pool       *ants.Pool

	queryCache sync.Map // 正規化キー → []model.RemoteHit（プロセス寿命、追記のみ）
	persistWG  sync.WaitGroup
}

// NewResolveUseCase 新しいResolveUseCaseインスタンスを作成
func NewResolveUseCase(
	matchCache repository.MatchCacheRepository,
	provider repository.PlacesProvider,
	overlay repository.OverlayRepository,
	config ResolverConfig,
) (ResolveUseCase, error) {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultResolverConfig().Concurrency
	}
	pool, err := ants.NewPool(config.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("ワーカープールの作成に失敗: %w", err)
	}
	return &resolveUseCaseImpl{
		matchCache: matchCache,
		provider:   provider,
		overlay:    overlay,
		scorer:     service.NewMatchScorer(config.Scorer),
		config:     config,
		pool:       pool,
	}, nil
}

// ResolveBatch バッチ解決の本体
func (u *resolveUseCaseImpl) ResolveBatch(ctx context.Context, points []model.POI, city string) ([]model.ResolvedPoint, error) {
	results := make([]model.ResolvedPoint, len(points))

	// Step 1: 区分け。正規ID保持はそのまま通す（ネットワーク呼び出しゼロ）
	var pending []int
	for i, p := range points {
		results[i] = model.ResolvedPoint{Point: p}
		switch {
		case p.IsResolved():
			results[i].Resolved = true
			results[i].Status = model.ResolveStatusAlready
		case p.Name == "" || !p.HasValidCoords():
			results[i].Status = model.ResolveStatusUnresolved
		default:
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return results, nil
	}

	// Step 2: 共有マッチキャッシュへの一括照会
	pending = u.lookupMatchCache(ctx, results, pending, city)

	// Step 3: 並行数制限付きファジーフォールバック
	if u.config.FallbackEnabled && u.provider != nil && len(pending) > 0 {
		u.fuzzyFallback(ctx, results, pending, city)
	}
	for _, i := range pending {
		if results[i].Status == "" {
			results[i].Status = model.ResolveStatusUnresolved
		}
	}

	// Step 4: 新規解決分の書き戻し（fire-and-forget）
	u.persistResolved(results, city)

	return results, nil
}

// lookupMatchCache キャッシュヒットを反映し、未解決のままのインデックスを返す
// シード座標は照合キーとして保持し、プロバイダ座標はCanonicalへ入れる
func (u *resolveUseCaseImpl) lookupMatchCache(ctx context.Context, results []model.ResolvedPoint, pending []int, city string) []int {
	if u.matchCache == nil {
		return pending
	}

	queries := make([]model.MatchQuery, 0, len(pending))
	for _, i := range pending {
		p := results[i].Point
		queries = append(queries, model.MatchQuery{
			ItemID: p.ID,
			Name:   p.Name,
			Lat:    helper.Round5(p.Lat),
			Lng:    helper.Round5(p.Lng),
			City:   city,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, u.config.RemoteTimeout)
	defer cancel()
	matches, err := u.matchCache.BatchMatch(callCtx, queries, city)
	if err != nil || len(matches) != len(pending) {
		log.Printf("⚠️ マッチキャッシュ照会に失敗（フォールバックで継続）: %v", err)
		return pending
	}

	var still []int
	for pos, i := range pending {
		m := matches[pos]
		if !m.Matched || m.CanonicalID == "" {
			still = append(still, i)
			continue
		}
		results[i].Resolved = true
		results[i].Status = model.ResolveStatusCacheHit
		results[i].Point.CanonicalID = m.CanonicalID
		results[i].Point.Rating = m.Rating
		results[i].Point.Hours = m.Hours
		if m.GLat != nil && m.GLng != nil {
			results[i].Canonical = &model.LatLng{Lat: *m.GLat, Lng: *m.GLng}
		}
	}
	return still
}

// fuzzyFallback 未解決ポイントごとにカスケード検索＋スコアリングを並行実行する
func (u *resolveUseCaseImpl) fuzzyFallback(ctx context.Context, results []model.ResolvedPoint, pending []int, city string) {
	var wg sync.WaitGroup
	for _, i := range pending {
		i := i
		wg.Add(1)
		err := u.pool.Submit(func() {
			defer wg.Done()
			u.resolveOne(ctx, &results[i], city)
		})
		if err != nil {
			wg.Done()
			results[i].Status = model.ResolveStatusUnresolved
		}
	}
	wg.Wait()
}

// resolveOne 1ポイント分の3段カスケード＋スコアリング
// 失敗・タイムアウトはこのポイントだけをunresolvedに落とす
func (u *resolveUseCaseImpl) resolveOne(ctx context.Context, rp *model.ResolvedPoint, city string) {
	p := rp.Point
	hits := u.searchCascade(ctx, &p, city)
	if len(hits) == 0 {
		rp.Status = model.ResolveStatusUnresolved
		return
	}

	// 候補をplace_idで一意化してからスコアリング
	seen := make(map[string]struct{}, len(hits))
	var best *model.RemoteHit
	bestScore := -1.0
	seed := p.ToLatLng()
	for idx := range hits {
		c := hits[idx]
		if c.CanonicalID == "" {
			continue
		}
		if _, ok := seen[c.CanonicalID]; ok {
			continue
		}
		seen[c.CanonicalID] = struct{}{}
		score := u.scorer.ScoreCandidate(p.Name, seed, &c)
		if score > bestScore {
			bestScore = score
			best = &hits[idx]
		}
	}

	if best == nil || !u.scorer.Accepts(bestScore) {
		rp.Status = model.ResolveStatusUnresolved
		return
	}

	rp.Resolved = true
	rp.Status = model.ResolveStatusFallbackMatched
	rp.Score = bestScore
	rp.Point.CanonicalID = best.CanonicalID
	if best.Rating != nil {
		rp.Point.Rating = best.Rating
	}
	if best.Hours != nil {
		rp.Point.Hours = best.Hours
	}
	candPos := model.LatLng{Lat: best.Lat, Lng: best.Lng}
	if candPos.IsValid() {
		rp.Canonical = &candPos
	}
}

// searchCascade 「名前＋都市」→「カテゴリ＋名前＋都市」→「名前のみ」の順で
// 最初にヒットが出た段で打ち切る。後段のバリアントは一切発行しない
func (u *resolveUseCaseImpl) searchCascade(ctx context.Context, p *model.POI, city string) []model.RemoteHit {
	primary := strings.TrimSpace(p.Name + " " + city)
	variants := []struct {
		query    string
		category string
	}{
		{primary, ""},
		{strings.TrimSpace(p.Category + " " + primary), model.PlaceTypeFor(p.Category)},
		{strings.TrimSpace(p.Name), ""},
	}

	for _, v := range variants {
		if v.query == "" {
			continue
		}
		hits, err := u.cachedTextSearch(ctx, v.query, p, city, v.category)
		if err != nil {
			log.Printf("⚠️ カスケード検索失敗 (%q): %v", v.query, err)
			continue
		}
		if len(hits) > 0 {
			return hits
		}
	}
	return nil
}

// cachedTextSearch クエリ結果キャッシュ経由のtextsearch
// 同一キーの再照会はバッチ内・プロセス内でネットワークを再発行しない
func (u *resolveUseCaseImpl) cachedTextSearch(ctx context.Context, query string, p *model.POI, city, category string) ([]model.RemoteHit, error) {
	key := fmt.Sprintf("%s|%v|%v|%s|%s",
		helper.Normalize(query), helper.Round6(p.Lat), helper.Round6(p.Lng), helper.Normalize(city), category)
	if cached, ok := u.queryCache.Load(key); ok {
		return cached.([]model.RemoteHit), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, u.config.RemoteTimeout)
	defer cancel()
	center := p.ToLatLng()
	hits, err := u.provider.TextSearch(callCtx, query, &repository.PlacesOptions{
		Center:   &center,
		City:     city,
		Category: category,
	})
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []model.RemoteHit{}
	}
	u.queryCache.Store(key, hits)
	return hits, nil
}

// persistResolved 新規解決分をマッチキャッシュとオーバーレイへ非同期にupsertする
// 呼び出し側から見ればfire-and-forgetで、失敗はログに残すのみ
func (u *resolveUseCaseImpl) persistResolved(results []model.ResolvedPoint, city string) {
	var entries []model.MatchUpsert
	var overlayPOIs []model.POI
	for _, r := range results {
		if r.Status != model.ResolveStatusFallbackMatched {
			continue
		}
		p := r.Point
		e := model.MatchUpsert{
			ItemID:      p.ID,
			Name:        p.Name,
			Lat:         helper.Round5(p.Lat),
			Lng:         helper.Round5(p.Lng),
			City:        city,
			CanonicalID: p.CanonicalID,
			Rating:      p.Rating,
			Hours:       p.Hours,
		}
		if r.Canonical != nil {
			gLat := helper.Round5(r.Canonical.Lat)
			gLng := helper.Round5(r.Canonical.Lng)
			e.GLat = &gLat
			e.GLng = &gLng
		}
		entries = append(entries, e)
		overlayPOIs = append(overlayPOIs, p)
	}
	if len(entries) == 0 {
		return
	}

	u.persistWG.Add(1)
	go func() {
		defer u.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), u.config.RemoteTimeout)
		defer cancel()

		if u.matchCache != nil {
			if err := u.matchCache.BatchUpsert(ctx, entries); err != nil {
				log.Printf("⚠️ マッチキャッシュへの書き戻しに失敗（無視）: %v", err)
			}
		}
		if u.overlay != nil {
			for _, p := range overlayPOIs {
				if err := u.overlay.Upsert(ctx, &p); err != nil {
					log.Printf("⚠️ オーバーレイへの書き戻しに失敗（無視）: %v", err)
				}
			}
		}
	}()
}

// WaitPersist 進行中の書き戻しが終わるまで待つ（シャットダウン時用）
func (u *resolveUseCaseImpl) WaitPersist() {
	u.persistWG.Wait()
}

package service

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"GeziTrip-POI/internal/domain/helper"
	"GeziTrip-POI/internal/domain/model"
)

// ScorerConfig スコアリングの重みとしきい値
// 既定値は経験的に決められたもので最適の保証はないため、設定で差し替え可能にしている
type ScorerConfig struct {
	NameWeight      float64 // 名前類似度の重み
	ProximityWeight float64 // 距離近接度の重み
	AcceptThreshold float64 // この値以上のスコアで候補を採用する
	MaxNearKm       float64 // 近接度を0に落とす距離の上限 (km)
}

// DefaultScorerConfig 既定のスコアリング設定を返す
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		NameWeight:      0.65,
		ProximityWeight: 0.35,
		AcceptThreshold: 0.35,
		MaxNearKm:       10,
	}
}

// MatchScorer 名前類似度と地理的近接度の加重でリモート候補をスコアリングする
type MatchScorer struct {
	config ScorerConfig
}

// NewMatchScorer 新しいMatchScorerを作成する
func NewMatchScorer(config ScorerConfig) *MatchScorer {
	return &MatchScorer{config: config}
}

// Config 現在の設定を返す
func (s *MatchScorer) Config() ScorerConfig {
	return s.config
}

// ScoreCandidate ポイント（シード座標）に対する候補のスコアを計算する
// score = NameWeight * trigram類似度 + ProximityWeight * 近接度
func (s *MatchScorer) ScoreCandidate(name string, seed model.LatLng, candidate *model.RemoteHit) float64 {
	sim := TrigramSimilarity(helper.CanonicalName(name), helper.CanonicalName(candidate.Name))

	prox := 0.0
	candPos := model.LatLng{Lat: candidate.Lat, Lng: candidate.Lng}
	if seed.IsValid() && candPos.IsValid() {
		distKm := geo.Distance(
			orb.Point{seed.Lng, seed.Lat},
			orb.Point{candPos.Lng, candPos.Lat},
		) / 1000.0
		if distKm > s.config.MaxNearKm {
			distKm = s.config.MaxNearKm
		}
		prox = 1 - distKm/s.config.MaxNearKm
		if prox < 0 {
			prox = 0
		}
	}

	return s.config.NameWeight*sim + s.config.ProximityWeight*prox
}

// Accepts スコアが採用しきい値以上かどうか
func (s *MatchScorer) Accepts(score float64) bool {
	return score >= s.config.AcceptThreshold
}

// TrigramSimilarity 正規化trigram重複率による名前類似度 (0..1)
// 前後に空白を詰めてからtrigramを取ることで、語頭・語尾の一致も拾う
func TrigramSimilarity(a, b string) float64 {
	setA := trigramSet(a)
	setB := trigramSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for g := range setA {
		if _, ok := setB[g]; ok {
			inter++
		}
	}
	max := len(setA)
	if len(setB) > max {
		max = len(setB)
	}
	return float64(inter) / float64(max)
}

func trigramSet(s string) map[string]struct{} {
	padded := []rune(" " + s + " ")
	set := make(map[string]struct{})
	for i := 0; i+3 <= len(padded); i++ {
		set[string(padded[i:i+3])] = struct{}{}
	}
	return set
}

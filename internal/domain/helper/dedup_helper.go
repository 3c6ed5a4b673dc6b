package helper

import (
	"fmt"

	"GeziTrip-POI/internal/domain/model"
)

// DedupKey 重複排除キーを返す
// 優先順位: 正規ID → 正規化名＋6桁丸め座標＋正規化都市名
func DedupKey(p *model.POI) string {
	if p.CanonicalID != "" {
		return "pid:" + p.CanonicalID
	}
	return fmt.Sprintf("geo:%s@%v,%v:%s", Normalize(p.Name), Round6(p.Lat), Round6(p.Lng), Normalize(p.City))
}

// DedupPOIs 同一スポットの重複を除去する（先勝ち、入力順を保つ）
func DedupPOIs(pois []model.POI) []model.POI {
	seen := make(map[string]struct{}, len(pois))
	out := make([]model.POI, 0, len(pois))
	for _, p := range pois {
		key := DedupKey(&p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// MergePOIs 複数の結果集合を順に連結して重複排除する
func MergePOIs(sets ...[]model.POI) []model.POI {
	var all []model.POI
	for _, s := range sets {
		all = append(all, s...)
	}
	return DedupPOIs(all)
}

// FilterMalformed 名前が空・座標が非有限な行を黙って除外する
func FilterMalformed(pois []model.POI) []model.POI {
	out := make([]model.POI, 0, len(pois))
	for _, p := range pois {
		if p.Name == "" || !p.HasValidCoords() {
			continue
		}
		out = append(out, p)
	}
	return out
}

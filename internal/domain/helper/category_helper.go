package helper

import (
	"strings"

	"GeziTrip-POI/internal/domain/model"
)

// categoryKeywordGroup カテゴリ推定で使うキーワード群（先勝ち）
type categoryKeywordGroup struct {
	category string
	keywords []string
}

// カテゴリ推定の判定順。より特徴的な語彙を先に試す
// キーワードはFold後（小文字・ダイアクリティカルなし）の形で持つ
var categoryKeywordGroups = []categoryKeywordGroup{
	{model.CategoryMuseums, []string{"muze", "museum", "muzesi"}},
	{model.CategoryParks, []string{"park", "parki", "bahce", "garden", "koru"}},
	{model.CategoryBars, []string{"bar", "pub", "meyhane", "taverna"}},
	{model.CategoryCafes, []string{"kafe", "cafe", "kahve", "coffee", "pastane", "patisserie"}},
	{model.CategoryRestaurants, []string{"restoran", "restaurant", "lokanta", "kebap", "kebab", "doner", "pide", "kofte", "balik", "ocakbasi", "bufe"}},
	{model.CategorySights, []string{
		"kale", "kalesi", "castle",
		"kule", "kulesi", "tower",
		"kopru", "koprusu", "bridge",
		"carsi", "carsisi", "bazaar", "bazar",
		"cami", "camii", "mosque",
		"kilise", "kilisesi", "church",
		"anit", "aniti", "monument",
		"saray", "sarayi", "palace",
		"meydan", "meydani", "square",
	}},
}

// InferCategory 名前と住所からカテゴリを推定する純粋関数
// 保存済みカテゴリが欠落・未知の行に対してのみ呼ぶこと
// サーバ不在時の件数集計と行単位の分類が同じ結果になるよう、このロジックを共有する
func InferCategory(name, address string) string {
	text := Fold(name + " " + address)
	for _, group := range categoryKeywordGroups {
		for _, kw := range group.keywords {
			if containsWord(text, kw) {
				return group.category
			}
		}
	}
	return model.CategorySights
}

// EffectiveCategory 保存済みカテゴリが有効ならそれを、無効なら推定値を返す
func EffectiveCategory(p *model.POI) string {
	if model.IsKnownCategory(p.Category) {
		return p.Category
	}
	return InferCategory(p.Name, p.Address)
}

// containsWord 両側の単語境界を確認した上での部分一致
// 「bar」が「bariyer」に誤爆しないようにする
func containsWord(text, kw string) bool {
	idx := 0
	for idx <= len(text)-len(kw) {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		leftOK := start == 0 || text[start-1] == ' '
		rightOK := end == len(text) || text[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
	return false
}

package helper

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// トルコ語特有の文字をASCII近似へ寄せる置換表
// NFKD分解で落ちない ı（点なしi）などを明示的に扱う
var turkishReplacer = strings.NewReplacer(
	"İ", "i", "I", "i", "ı", "i",
	"Ş", "s", "ş", "s",
	"Ğ", "g", "ğ", "g",
	"Ü", "u", "ü", "u",
	"Ö", "o", "ö", "o",
	"Ç", "c", "ç", "c",
)

// 結合ダイアクリティカルマークを除去する変換チェーン
var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	bracketRe    = regexp.MustCompile(`\s*[\(\[\{][^\)\]\}]*[\)\]\}]\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	separatorRe  = regexp.MustCompile(`[-–—•|]+`)
)

// 店名照合の妨げになる一般語（業態語・都市名など）
var noiseTokens = []string{
	"restaurant", "restoran", "cafe", "kafe", "pastane", "patisserie", "bakery",
	"bar", "pub", "coffee", "kahve", "lokanta", "büfe", "bufe", "branch", "şubesi", "sube",
	"ankara", "istanbul", "izmir",
}

// Fold ダイアクリティカル除去＋小文字化＋空白正規化を行う
func Fold(s string) string {
	t := turkishReplacer.Replace(s)
	if out, _, err := transform.String(foldTransformer, t); err == nil {
		t = out
	}
	t = strings.ToLower(t)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
}

// Normalize 検索用の正規化（部分一致フィルタとキャッシュキーで共用）
func Normalize(s string) string {
	return Fold(s)
}

// stripBrackets 括弧書きの修飾（支店名など）を除去する
func stripBrackets(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(bracketRe.ReplaceAllString(s, " "), " "))
}

// removeNoiseTokens 一般語トークンを除去する
// 全部消えてしまった場合は元の文字列を小文字化して返す（空キー化を防ぐ）
func removeNoiseTokens(s string) string {
	t := strings.ToLower(s)
	t = separatorRe.ReplaceAllString(t, " ")
	fields := strings.Fields(t)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		noise := false
		for _, n := range noiseTokens {
			if f == n {
				noise = true
				break
			}
		}
		if !noise {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return strings.TrimSpace(t)
	}
	return strings.Join(kept, " ")
}

// CanonicalName 照合用の正準化された名前を返す
// 括弧修飾 → 一般語 → ダイアクリティカルの順に落とす
func CanonicalName(s string) string {
	return Fold(removeNoiseTokens(stripBrackets(s)))
}

// Round5 マッチキャッシュのシードキー用に小数5桁へ丸める
func Round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// Round6 重複排除キー・クエリキャッシュ用に小数6桁へ丸める
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

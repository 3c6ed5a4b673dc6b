package model

// CategoryConstants アプリケーションで扱うPOIカテゴリの定数（固定6種）
const (
	CategorySights      = "sights"
	CategoryRestaurants = "restaurants"
	CategoryCafes       = "cafes"
	CategoryBars        = "bars"
	CategoryMuseums     = "museums"
	CategoryParks       = "parks"
)

// Categories カテゴリの表示順（タブ・集計で共通に使う）
var Categories = []string{
	CategorySights,
	CategoryRestaurants,
	CategoryCafes,
	CategoryBars,
	CategoryMuseums,
	CategoryParks,
}

// CategoryToPlaceType カテゴリをリモートプロバイダのtype語彙へ変換するマッピング
var CategoryToPlaceType = map[string]string{
	CategorySights:      "tourist_attraction",
	CategoryRestaurants: "restaurant",
	CategoryCafes:       "cafe",
	CategoryBars:        "bar",
	CategoryMuseums:     "museum",
	CategoryParks:       "park",
}

// IsKnownCategory 認識済みカテゴリかどうかを返す
func IsKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// PlaceTypeFor カテゴリに対応するプロバイダtypeを取得する（未知カテゴリは空文字）
func PlaceTypeFor(category string) string {
	return CategoryToPlaceType[category]
}

// SourceConstants POIの出所
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

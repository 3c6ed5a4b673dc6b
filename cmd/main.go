package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"GeziTrip-POI/internal/domain/repository"
	"GeziTrip-POI/internal/handler"
	"GeziTrip-POI/internal/infrastructure/database"
	"GeziTrip-POI/internal/infrastructure/maps"
	repoImpl "GeziTrip-POI/internal/repository"
	"GeziTrip-POI/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	assetDir := os.Getenv("POI_ASSET_DIR")
	dataDir := os.Getenv("POI_DATA_DIR")
	if assetDir == "" || dataDir == "" {
		fmt.Println("⚠️  環境変数が設定されていません:")
		fmt.Println("必要な環境変数: POI_ASSET_DIR, POI_DATA_DIR")
		fmt.Println("任意の環境変数: GOOGLE_MAPS_API_KEY, SUPABASE_URL, SUPABASE_ANON_KEY, MATCH_CACHE_BACKEND")
		log.Fatal("Environment variables not set")
	}

	// ローカルデータセット（シャード）とオーバーレイ
	shardStore := repoImpl.NewSQLiteShardStore(assetDir, dataDir)
	overlayRepo, err := repoImpl.NewSQLiteOverlayRepository(dataDir)
	if err != nil {
		log.Fatalf("オーバーレイストア初期化失敗: %v", err)
	}

	// リモートプレイスプロバイダ（キー未設定ならローカルのみで動く）
	var placesProvider repository.PlacesProvider
	if apiKey := os.Getenv("GOOGLE_MAPS_API_KEY"); apiKey != "" {
		placesProvider = maps.NewGooglePlacesProvider(apiKey)
	} else {
		fmt.Println("GOOGLE_MAPS_API_KEY未設定: リモートフォールバックなしで起動します")
	}

	// 共有マッチキャッシュ（REST or 直接接続、未設定ならキャッシュなし）
	matchCache := buildMatchCache()

	searchUseCase := usecase.NewHybridSearchUseCase(shardStore, overlayRepo, placesProvider, usecase.DefaultSearchConfig())
	resolveUseCase, err := usecase.NewResolveUseCase(matchCache, placesProvider, overlayRepo, usecase.DefaultResolverConfig())
	if err != nil {
		log.Fatalf("解決ユースケース初期化失敗: %v", err)
	}

	poiHandler := handler.NewPOIHandler(searchUseCase, resolveUseCase)

	r := gin.Default()
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "service": "GeziTrip-POI"})
	})
	r.GET("/api/poi/search", poiHandler.Search)
	r.GET("/api/poi/categories", poiHandler.CategoryCounts)
	r.POST("/api/poi/resolve", poiHandler.Resolve)

	fmt.Println("GeziTrip-POI server starting on :8080...")
	log.Fatal(r.Run(":8080"))
}

// buildMatchCache MATCH_CACHE_BACKEND に応じてマッチキャッシュの実装を選ぶ
// "postgres" なら直接接続、それ以外でSupabase設定があればREST、どちらも無ければnil
func buildMatchCache() repository.MatchCacheRepository {
	switch os.Getenv("MATCH_CACHE_BACKEND") {
	case "postgres":
		client, err := database.NewPostgreSQLClient()
		if err != nil {
			log.Printf("⚠️ PostgreSQL接続失敗、マッチキャッシュなしで継続: %v", err)
			return nil
		}
		fmt.Println("✅ マッチキャッシュ: PostgreSQL直接接続")
		return repoImpl.NewPostgresMatchCacheRepository(client)
	default:
		if os.Getenv("SUPABASE_URL") == "" {
			fmt.Println("SUPABASE_URL未設定: マッチキャッシュなしで起動します")
			return nil
		}
		client, err := database.NewSupabaseClient()
		if err != nil {
			log.Printf("⚠️ Supabaseクライアント初期化失敗、マッチキャッシュなしで継続: %v", err)
			return nil
		}
		if err := client.HealthCheck(); err != nil {
			log.Printf("⚠️ Supabaseヘルスチェック失敗、マッチキャッシュなしで継続: %v", err)
			return nil
		}
		fmt.Println("✅ マッチキャッシュ: Supabase REST")
		return repoImpl.NewSupabaseMatchCacheRepository(client)
	}
}

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/internal/analysis/dwell"
	"github.com/AdarBahar/MyTrip-sub003/internal/analysis/session"
	"github.com/AdarBahar/MyTrip-sub003/internal/api"
	"github.com/AdarBahar/MyTrip-sub003/internal/cache"
	"github.com/AdarBahar/MyTrip-sub003/internal/config"
	"github.com/AdarBahar/MyTrip-sub003/internal/database"
	"github.com/AdarBahar/MyTrip-sub003/internal/handler"
	"github.com/AdarBahar/MyTrip-sub003/internal/ingest"
	"github.com/AdarBahar/MyTrip-sub003/internal/repository"
	"github.com/AdarBahar/MyTrip-sub003/internal/service"
)

func main() {
	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	// Repositories
	pingRepo := repository.NewPingRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	rollupRepo := repository.NewRollupRepository(db)
	stateRepo := repository.NewStateRepository(db)
	dedupStore := repository.NewDedupStore(db)
	batchWriter := repository.NewBatchWriter(db, sessionRepo, rollupRepo, stateRepo)

	// Ingestion hot path: in-memory fast cache with the sqlite fallback
	fastCache := cache.NewMemoryStore(time.Minute)
	defer fastCache.Close()
	dedupCache := cache.NewTiered(fastCache, dedupStore)

	detector := ingest.NewChangeDetector(cfg.Ingest)
	dupFilter := ingest.NewDuplicateFilter(dedupCache, cfg.Ingest.DedupTTL, cfg.Ingest.StaleThreshold)

	// Analysis
	engine := session.NewEngine(pingRepo, stateRepo, batchWriter, cfg.Engine)
	analyzer := dwell.NewAnalyzer(cfg.Dwell)

	// Services
	ingestSvc := service.NewIngestService(pingRepo, detector, dupFilter)
	sessionSvc := service.NewSessionService(engine, sessionRepo, rollupRepo)
	analyticsSvc := service.NewAnalyticsService(pingRepo, analyzer)

	scheduler := service.NewScheduler(pingRepo, dedupStore, sessionSvc, cfg.ProcessInterval, cfg.ProcessTimeout)
	scheduler.Start()
	defer scheduler.Stop()

	// 初始化路由
	router := api.SetupRouter(cfg, api.Handlers{
		Pings:     handler.NewPingHandler(ingestSvc),
		Sessions:  handler.NewSessionHandler(sessionSvc),
		Analytics: handler.NewAnalyticsHandler(analyticsSvc),
		Auth:      handler.NewAuthHandler(cfg.JWTSecret),
	})

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down")
		scheduler.Stop()
		database.Close()
		os.Exit(0)
	}()

	// 启动服务器
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"docreader/internal/admin"
	"docreader/internal/api"
	"docreader/internal/auth"
	"docreader/internal/config"
	"docreader/internal/extract"
	"docreader/internal/keystore"
	"docreader/internal/ocr"
	"docreader/internal/pipeline"
	"docreader/internal/redis"
	"docreader/internal/staging"
	"docreader/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("DOCREADER_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbType := os.Getenv("DOCREADER_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	sqlStore, err := keystore.NewSQLStore(db)
	if err != nil {
		log.Fatalf("init key store: %v", err)
	}
	var keys keystore.Store = sqlStore
	if cfg.Redis.Host != "" {
		rdb, err := redis.NewClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		keys = keystore.NewCachedStore(sqlStore, rdb, 5*time.Minute, logger)
	}

	area, err := staging.NewArea(cfg.BasicConfig.StagingDir, cfg.BasicConfig.MaxFileSize, logger)
	if err != nil {
		log.Fatalf("init staging area: %v", err)
	}
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	area.StartSweeper(sweepCtx,
		time.Duration(cfg.BasicConfig.StagingSweepMinutes)*time.Minute,
		time.Duration(cfg.BasicConfig.StagingTTLMinutes)*time.Minute)

	engine := ocr.NewTesseractEngine(cfg.BasicConfig.OCR, ocr.MeanScore{}, logger)

	provider := cfg.BasicConfig.LLMProvider
	chatModel, err := extract.NewChatModel(context.Background(), provider, cfg.Providers[provider])
	if err != nil {
		log.Fatalf("init %s model: %v", provider, err)
	}
	extractor := extract.NewAdapter(chatModel, logger)

	processor := pipeline.NewProcessor(area, engine, extractor, cfg.Timeout(), logger)
	gate := auth.NewGate(keys, logger)
	handlers := api.NewHandler(processor, gate, cfg.BasicConfig.MaxFileSize, logger)
	adminHandlers := admin.NewHandler(keys, cfg.BasicConfig.AdminPassword, logger)

	router := gin.Default()
	handlers.RegisterRoutes(router)
	adminHandlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	logger.Info("server.start", "addr", addr, "provider", provider)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

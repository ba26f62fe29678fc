package main

import (
	"context"
	"log"
	"time"

	"github.com/GrainArc/RealmMap/config"
	"github.com/GrainArc/RealmMap/framecache"
	"github.com/GrainArc/RealmMap/models"
	"github.com/GrainArc/RealmMap/routers"
	"github.com/GrainArc/RealmMap/services"
	"github.com/GrainArc/RealmMap/views"
	"github.com/gin-gonic/gin"
)

func newCache(ctx context.Context, cfg *config.Config) framecache.Cache {
	if cfg.Redis.Addr != "" {
		redisCache, err := framecache.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.CacheTTLDuration())
		if err == nil {
			log.Printf("使用 Redis 缓存 %s", cfg.Redis.Addr)
			return redisCache
		}
		log.Printf("Redis 不可用，改用内存缓存: %v", err)
	}
	return framecache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTLDuration())
}

func main() {
	cfg, err := config.Load("config.xml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := models.OpenDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var remote *services.RowStoreClient
	if cfg.RowStore.Enabled() {
		remote = services.NewRowStoreClient(cfg.RowStore, nil)
	}
	library, err := services.NewMapLibrary(db, remote, cfg.DefaultMap)
	if err != nil {
		log.Fatalf("Failed to index maps: %v", err)
	}

	ctx := context.Background()
	viewer := services.NewViewerService(library, newCache(ctx, cfg), cfg.SessionTTLDuration())
	go viewer.RunExpiry(ctx, time.Minute)

	r := gin.Default()
	r.MaxMultipartMemory = cfg.UploadLimit()
	routers.MapRouters(r,
		views.NewMapHandler(library, cfg.UploadLimit()),
		views.NewViewerHandler(viewer, library, cfg.UploadLimit()),
	)

	log.Printf("RealmMap listening on %s", cfg.MainRouter)
	if err := r.Run(cfg.MainRouter); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

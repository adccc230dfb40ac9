package main

import (
	"context"
	"log"

	"github.com/sol-registry/sol-backend/config"
	"github.com/sol-registry/sol-backend/internal/bootstrap"
	"github.com/sol-registry/sol-backend/internal/index/repository"
)

const serviceName = "sol-registry"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, cfg.Database, bootstrap.DBOptions{})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// The registry serves without a cache; only the metadata and blob
	// stores are hard dependencies.
	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, serving uncached: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	s3c, err := bootstrap.OpenS3(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("s3: %v", err)
	}

	limiter := bootstrap.NewLimiter(cfg)
	housekeeping := bootstrap.StartHousekeeping(limiter, cfg.RateLimit.SweepInterval)
	defer housekeeping.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		S3:          s3c,
		Limiter:     limiter,
	})

	addr := ":" + cfg.Server.Port
	log.Printf("%s %s listening on %s", serviceName, cfg.App.Version, addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

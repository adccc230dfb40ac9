package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sol-registry/sol-backend/config"
	httpapi "github.com/sol-registry/sol-backend/internal/api/http"
	"github.com/sol-registry/sol-backend/internal/api/http/middleware"
	"github.com/sol-registry/sol-backend/internal/auth"
	"github.com/sol-registry/sol-backend/internal/cache"
	"github.com/sol-registry/sol-backend/internal/files"
	"github.com/sol-registry/sol-backend/internal/index/repository"
	"github.com/sol-registry/sol-backend/internal/pypi"
	"github.com/sol-registry/sol-backend/internal/ratelimit"
	"github.com/sol-registry/sol-backend/internal/simple"
	storages3 "github.com/sol-registry/sol-backend/internal/storage/s3"
	"github.com/sol-registry/sol-backend/internal/upload"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Config      *config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	S3          *awss3.Client
	// Limiter is shared with the housekeeping scheduler; a nil value
	// gets one built from Config.
	Limiter *ratelimit.Limiter
}

// BuildRouter wires the full HTTP surface: health, the simple index,
// downloads and the legacy upload endpoint, behind identity resolution
// and rate limiting.
func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(auth.Middleware())

	limiter := dep.Limiter
	if limiter == nil {
		limiter = NewLimiter(dep.Config)
	}
	r.Use(middleware.RateLimitMiddleware(limiter))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	repo := repository.New(dep.DB)
	var docCache *cache.Cache
	if dep.Redis != nil {
		docCache = cache.New(dep.Redis, dep.Config.Redis.CacheTTL)
	}
	blobs := storages3.New(dep.S3, dep.Config.Storage.Bucket, dep.Config.Storage.PutTO)

	simpleSvc := simple.NewService(repo, docCache)
	simple.NewHandler(simpleSvc).Register(r.Group("/simple"))

	filesSvc := files.NewService(repo, blobs, filesInvalidator(docCache))
	files.NewHandler(filesSvc).Register(r.Group("/files"))

	uploadSvc := upload.NewService(repo, blobs, uploadInvalidator(docCache))
	upload.NewHandler(uploadSvc).Register(r.Group("/legacy"))

	pypi.NewHandler(repo).Register(r.Group("/pypi"))

	return r
}

// NewLimiter builds the shared rate limiter from configuration.
func NewLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		AnonRate:      cfg.RateLimit.AnonRate,
		AnonCapacity:  cfg.RateLimit.AnonCapacity,
		AuthRate:      cfg.RateLimit.AuthRate,
		AuthCapacity:  cfg.RateLimit.AuthCapacity,
		SweepInterval: cfg.RateLimit.SweepInterval,
	})
}

// The helpers below keep a typed nil out of the invalidator interfaces
// when the cache is disabled.

func filesInvalidator(c *cache.Cache) files.Invalidator {
	if c == nil {
		return nil
	}
	return c
}

func uploadInvalidator(c *cache.Cache) upload.Invalidator {
	if c == nil {
		return nil
	}
	return c
}

package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohammadpnp/catalog-import/internal/application/catalogadmin"
	"github.com/mohammadpnp/catalog-import/internal/application/catalogimport"
	"github.com/mohammadpnp/catalog-import/internal/config"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/cache"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db/models"
	infrafile "github.com/mohammadpnp/catalog-import/internal/infrastructure/file"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Container holds the wired importer shared by the API server and the CLI.
type Container struct {
	DB    *gorm.DB
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Jobs     *repository.ImportJobRepository
	Launcher *catalogimport.Launcher

	StartImport  catalogimport.StartImport
	CancelImport catalogimport.CancelImport
	GetImportJob catalogimport.GetImportJob

	ClearCatalog    catalogadmin.ClearCatalog
	FeatureProducts catalogadmin.FeatureProducts
	ImageCoverage   catalogadmin.ImageCoverage
}

// NewContainer connects to Postgres (and Redis when configured) and builds
// every use case. Imports launched through it run under ctx.
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	c := &Container{DB: db, Pool: pool}

	var invalidator catalogimport.CacheInvalidator
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, catalog cache will not be invalidated", zap.Error(err))
		} else {
			c.Redis = client
			invalidator = cache.NewRedisInvalidator(client, cfg.CacheInvalidatePattern, log)
		}
	}

	jobs := repository.NewImportJobRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	products := repository.NewProductBulkRepository(pool)
	source := infrafile.NewLocalSource(cfg.ImportBaseDir)

	runner := catalogimport.NewRunner(jobs, catalogRepo, source, source, products, invalidator, log,
		catalogimport.RunnerConfig{
			Batch: catalogimport.BatchEngineConfig{RetryBackoff: cfg.ImportRetryBackoff},
		})

	c.Jobs = jobs
	c.Launcher = catalogimport.NewLauncher(ctx, jobs, runner, log)
	c.StartImport = catalogimport.NewStartImport(jobs, c.Launcher, catalog.ImportOptions{
		BatchSize: cfg.ImportBatchSize,
		Mode:      cfg.ImportMode,
		Sanitize:  cfg.ImportSanitize,
	}, log)
	c.CancelImport = catalogimport.NewCancelImport(jobs)
	c.GetImportJob = catalogimport.NewGetImportJob(jobs)

	c.ClearCatalog = catalogadmin.NewClearCatalog(catalogRepo, jobs, log)
	c.FeatureProducts = catalogadmin.NewFeatureProducts(catalogRepo, log)
	c.ImageCoverage = catalogadmin.NewImageCoverage(catalogRepo, infrafile.NewImageStore(cfg.ImagesDir), log)

	return c, nil
}

// Close waits for a running import and releases connections.
func (c *Container) Close() {
	c.Launcher.Wait()
	if c.Redis != nil {
		c.Redis.Close()
	}
	c.Pool.Close()
	if sqlDB, err := c.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

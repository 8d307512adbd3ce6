package container

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/inkwell/internal/auth"
	"github.com/zfogg/inkwell/internal/cache"
	"github.com/zfogg/inkwell/internal/config"
	"github.com/zfogg/inkwell/internal/database"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/storage"
	"github.com/zfogg/inkwell/internal/teardown"
	"github.com/zfogg/inkwell/internal/vote"
	"go.uber.org/zap"
)

// teardownRetryInterval is how often failed cleanup steps are retried
const teardownRetryInterval = time.Minute

// Bootstrap connects the database, Redis and object storage described by cfg
// and wires the vote ledger, repositories and deletion workflow on top. On
// error, everything opened so far is closed again.
func Bootstrap(ctx context.Context, cfg *config.Config) (_ *Container, err error) {
	c := New()
	defer func() {
		if err != nil {
			_ = c.Cleanup(context.WithoutCancel(ctx))
		}
	}()

	db, err := database.Open(cfg.Database, cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}
	c.SetDB(db).OnCleanup(func(context.Context) error {
		return database.Close(db)
	})
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	rc, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	c.SetCache(rc).OnCleanup(func(context.Context) error {
		return rc.Close()
	})

	content := repository.NewContentRepository(db)
	ledger := vote.NewLedger(cache.NewVoteSetStore(rc), repository.NewCounterRepository(db))
	c.SetLedger(ledger).
		SetContent(content).
		SetUsers(repository.NewUserRepository(db)).
		SetTokens(auth.NewTokenService([]byte(cfg.JWTSecret)))

	var files storage.FileStore
	if cfg.Storage.Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx,
			cfg.Storage.Region,
			cfg.Storage.Bucket,
			cfg.Storage.CDNBaseURL,
			[]byte(cfg.Storage.HMACSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		if err := uploader.CheckBucketAccess(ctx); err != nil {
			logger.Log.Warn("S3 bucket access check failed, uploads may fail",
				zap.String("bucket", cfg.Storage.Bucket),
				zap.Error(err),
			)
		}
		files = uploader
		c.SetFiles(uploader)
	}

	var deleter storage.FileDeleter
	if files != nil {
		deleter = files
	}
	td := teardown.NewService(content, ledger, deleter, teardownRetryInterval)
	c.SetTeardown(td)

	return c, nil
}

// StartBackground starts the background workers and registers their shutdown
func (c *Container) StartBackground() {
	td := c.Teardown()
	if td == nil {
		return
	}
	td.Start()
	c.OnCleanup(td.Stop)
}

// Package container holds the wired dependencies of the API server and runs
// their shutdown hooks.
package container

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zfogg/inkwell/internal/auth"
	"github.com/zfogg/inkwell/internal/cache"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/storage"
	"github.com/zfogg/inkwell/internal/teardown"
	"github.com/zfogg/inkwell/internal/vote"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	// Core infrastructure
	db    *gorm.DB
	cache *cache.RedisClient

	// Domain services
	ledger   *vote.Ledger
	content  repository.ContentRepository
	users    repository.UserRepository
	files    storage.FileStore
	teardown *teardown.Service
	tokens   auth.TokenVerifier

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container.
// Services are registered using the Set* methods.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetCache registers the Redis client
func (c *Container) SetCache(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// Cache returns the Redis client, nil when voter sets are kept in memory
func (c *Container) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// SetLedger registers the vote ledger
func (c *Container) SetLedger(ledger *vote.Ledger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger = ledger
	return c
}

// Ledger returns the vote ledger
func (c *Container) Ledger() *vote.Ledger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger
}

// SetContent registers the content repository
func (c *Container) SetContent(repo repository.ContentRepository) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = repo
	return c
}

// Content returns the content repository
func (c *Container) Content() repository.ContentRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.content
}

// SetUsers registers the user repository
func (c *Container) SetUsers(repo repository.UserRepository) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = repo
	return c
}

// Users returns the user repository
func (c *Container) Users() repository.UserRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users
}

// SetFiles registers the object store. Optional: uploads are disabled without it.
func (c *Container) SetFiles(files storage.FileStore) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = files
	return c
}

// Files returns the object store, or nil
func (c *Container) Files() storage.FileStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files
}

// SetTeardown registers the deletion workflow
func (c *Container) SetTeardown(svc *teardown.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown = svc
	return c
}

// Teardown returns the deletion workflow
func (c *Container) Teardown() *teardown.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.teardown
}

// SetTokens registers the bearer token verifier
func (c *Container) SetTokens(tokens auth.TokenVerifier) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
	return c
}

// Tokens returns the bearer token verifier
func (c *Container) Tokens() auth.TokenVerifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions run in LIFO order.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs every registered cleanup function in reverse order of
// registration. A failing hook does not stop the others; all failures are
// returned together.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	var errs error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed",
				zap.Int("index", i),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// InitializationError indicates that required dependencies are missing
type InitializationError struct {
	MissingDeps []string
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("missing required dependencies: %s", strings.Join(e.MissingDeps, ", "))
}

// Validate checks that all required dependencies are registered.
// Call it after initialization and before starting the server.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	if c.db == nil {
		missing = append(missing, "database")
	}
	if c.ledger == nil {
		missing = append(missing, "vote ledger")
	}
	if c.content == nil {
		missing = append(missing, "content repository")
	}
	if c.teardown == nil {
		missing = append(missing, "teardown service")
	}
	if c.tokens == nil {
		missing = append(missing, "token verifier")
	}
	if len(missing) > 0 {
		return &InitializationError{MissingDeps: missing}
	}

	if c.cache == nil {
		logger.Log.Warn("No Redis client registered, voter sets are process local")
	}
	if c.files == nil {
		logger.Log.Warn("No object store registered, image uploads are disabled")
	}
	return nil
}

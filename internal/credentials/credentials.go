// Package credentials caches platform publishing credentials in front of
// the database. The cache is an explicit dependency handed to whoever needs
// it; there is no package-level state.
package credentials

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
)

// Source loads credentials from persistent storage.
type Source interface {
	ListCredentials(ctx context.Context) ([]models.PlatformCredential, error)
	GetCredential(ctx context.Context, platform string) (*models.PlatformCredential, error)
}

// Cache holds credentials in memory, loading on miss. Concurrent misses for
// the same platform are collapsed into a single load.
type Cache struct {
	source Source
	logger logging.Logger

	mu    sync.RWMutex
	creds map[string]models.PlatformCredential
	group singleflight.Group
}

// NewCache creates an empty cache over the given source.
func NewCache(source Source, logger logging.Logger) *Cache {
	return &Cache{
		source: source,
		logger: logger,
		creds:  make(map[string]models.PlatformCredential),
	}
}

// PreloadAll replaces the cache contents with every stored credential.
// Intended for process start so the first publish of each platform does not
// pay a load.
func (c *Cache) PreloadAll(ctx context.Context) error {
	creds, err := c.source.ListCredentials(ctx)
	if err != nil {
		return fmt.Errorf("preload credentials: %w", err)
	}

	loaded := make(map[string]models.PlatformCredential, len(creds))
	for _, cred := range creds {
		loaded[cred.Platform] = cred
	}

	c.mu.Lock()
	c.creds = loaded
	c.mu.Unlock()

	c.logger.WithField("platforms", len(loaded)).Info("Preloaded platform credentials")
	return nil
}

// Get returns the credential for a platform, loading it on a cache miss.
func (c *Cache) Get(ctx context.Context, platform string) (*models.PlatformCredential, error) {
	c.mu.RLock()
	cred, ok := c.creds[platform]
	c.mu.RUnlock()
	if ok {
		return &cred, nil
	}

	v, err, _ := c.group.Do(platform, func() (interface{}, error) {
		loaded, err := c.source.GetCredential(ctx, platform)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.creds[platform] = *loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load credential for %s: %w", platform, err)
	}
	return v.(*models.PlatformCredential), nil
}

// Invalidate drops one platform's cached credential. Called after a
// credential rotation so the next Get reloads.
func (c *Cache) Invalidate(platform string) {
	c.mu.Lock()
	delete(c.creds, platform)
	c.mu.Unlock()
}

package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xdm-project/xdm-updater/internal/logging"
	"github.com/xdm-project/xdm-updater/internal/remote"
)

// Repository is one remote plugin listing. The URL is stable; the display
// name is replaced by whatever the remote reports on each successful Cache.
type Repository struct {
	url    string
	client *remote.Client
	logger *zap.Logger

	mu      sync.RWMutex
	name    string
	plugins []Descriptor
}

// NewRepository creates a repository that has not been cached yet.
func NewRepository(name, url string, client *remote.Client, logger *zap.Logger) *Repository {
	if client == nil {
		client = remote.New()
	}
	return &Repository{
		url:    url,
		name:   name,
		client: client,
		logger: logging.OrNop(logger).With(zap.String("repository", url)),
	}
}

// URL returns the listing URL.
func (r *Repository) URL() string {
	return r.url
}

// Name returns the display name.
func (r *Repository) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// Plugins returns the descriptors from the last Cache. The slice is replaced,
// never modified, by later calls, so it is safe to iterate while a refresh runs.
func (r *Repository) Plugins() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins
}

func (r *Repository) String() string {
	return fmt.Sprintf("%s %s", r.Name(), r.url)
}

// Cache fetches the listing and rebuilds the descriptor list from scratch.
// The previous list is discarded before the fetch, so on any failure the
// repository is left empty rather than stale.
func (r *Repository) Cache(ctx context.Context) error {
	r.mu.Lock()
	r.plugins = nil
	r.mu.Unlock()

	r.logger.Info("checking repository")
	body, err := r.client.Fetch(ctx, r.url)
	if err != nil {
		r.logger.Error("retrieving repository information failed", zap.Error(err))
		return err
	}

	l, err := parseListing(r.url, body)
	if err != nil {
		r.logger.Error("repository listing is malformed", zap.Error(err))
		return err
	}

	plugins := l.descriptors(r.url)

	r.mu.Lock()
	r.name = l.Name
	r.plugins = plugins
	r.mu.Unlock()

	r.logger.Info("repository cached", zap.String("name", l.Name), zap.Int("plugins", len(plugins)))
	return nil
}

package card

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hupe1980/routermesh/logging"
)

// Options holds configuration overrides passed to NewDirectory.
type Options struct {
	// HTTPClient performs the well-known metadata fetches. Defaults to a
	// client with FetchTimeout applied.
	HTTPClient *http.Client
	// FetchTimeout bounds a single card fetch when no HTTPClient override
	// is supplied.
	FetchTimeout time.Duration
	// Logger receives resolution diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Directory resolves a service base address to its Card, caching descriptors
// per address for the process lifetime. The cache is the only state shared
// across concurrent requests: reads dominate, writes are rare, and a
// redundant concurrent fetch of the same uncached address is harmless (last
// write wins with an identical descriptor).
type Directory struct {
	client *http.Client
	logger logging.Logger

	mu    sync.RWMutex
	cards map[string]*Card
}

// NewDirectory constructs an empty directory with optional overrides.
func NewDirectory(optFns ...func(o *Options)) *Directory {
	opts := Options{
		FetchTimeout: 10 * time.Second,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.FetchTimeout}
	}

	return &Directory{
		client: client,
		logger: opts.Logger,
		cards:  make(map[string]*Card),
	}
}

// Resolve returns the Card for the given base address. A cached descriptor is
// returned without network I/O; otherwise the well-known path is fetched,
// parsed and cached. A failed fetch returns ErrUnreachable (wrapped with
// detail) and leaves the cache untouched so the next call retries.
func (d *Directory) Resolve(ctx context.Context, baseURL string) (*Card, error) {
	d.mu.RLock()
	c, ok := d.cards[baseURL]
	d.mu.RUnlock()
	if ok {
		d.logger.Debug("card cache hit", "address", baseURL)
		return c, nil
	}

	fetched, err := fetch(ctx, d.client, baseURL)
	if err != nil {
		d.logger.Error("card fetch failed", "address", baseURL, "error", err.Error())
		return nil, err
	}

	d.mu.Lock()
	// Another goroutine may have resolved the same address meanwhile; keep
	// the first stored descriptor so callers observe a stable identity.
	if existing, ok := d.cards[baseURL]; ok {
		d.mu.Unlock()
		return existing, nil
	}
	d.cards[baseURL] = fetched
	d.mu.Unlock()

	d.logger.Debug("card cached", "address", baseURL, "name", fetched.Name)

	return fetched, nil
}

// Cached reports whether a descriptor for the address is already cached.
func (d *Directory) Cached(baseURL string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.cards[baseURL]
	return ok
}

// Len returns the number of cached descriptors.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cards)
}

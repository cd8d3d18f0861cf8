// Package registry synchronises the remote skill catalog into the local
// index and maintains per-skill ratings.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/jingkaihe/skillli/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultAttempts is the number of catalog requests made before falling
	// back to the local index
	DefaultAttempts = 2

	defaultRetryDelay = 500 * time.Millisecond
	maxCatalogBytes   = 50 << 20
)

// IndexStore persists the local index
type IndexStore interface {
	LoadIndex(ctx context.Context) (*skilltypes.LocalIndex, error)
	SaveIndex(ctx context.Context, index *skilltypes.LocalIndex) error
}

// Client fetches the remote catalog
type Client struct {
	url        string
	store      IndexStore
	httpClient *http.Client
	attempts   uint
	retryDelay time.Duration
	now        func() time.Time
}

// Option is a function that configures a Client
type Option func(*Client) error

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) error {
		if c == nil {
			return errors.New("http client must not be nil")
		}
		client.httpClient = c
		return nil
	}
}

// WithAttempts sets how many times the catalog is requested
func WithAttempts(n int) Option {
	return func(client *Client) error {
		if n < 1 {
			return errors.Errorf("attempts must be at least 1, got %d", n)
		}
		client.attempts = uint(n)
		return nil
	}
}

// WithRetryDelay sets the initial backoff between attempts
func WithRetryDelay(d time.Duration) Option {
	return func(client *Client) error {
		client.retryDelay = d
		return nil
	}
}

// WithClock overrides the time source used for LastUpdated
func WithClock(now func() time.Time) Option {
	return func(client *Client) error {
		client.now = now
		return nil
	}
}

// NewClient creates a catalog client for url backed by store
func NewClient(url string, store IndexStore, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("registry url is required")
	}
	if store == nil {
		return nil, errors.New("index store is required")
	}

	c := &Client{
		url:        url,
		store:      store,
		httpClient: http.DefaultClient,
		attempts:   DefaultAttempts,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// URL returns the catalog location
func (c *Client) URL() string { return c.url }

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("registry returned status %d", e.code)
}

// retryable excludes client errors, which will not change on retry
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// FetchIndex downloads the catalog, stamps it and persists it. When the
// catalog cannot be fetched the persisted index is returned instead, as
// long as it has entries.
func (c *Client) FetchIndex(ctx context.Context) (*skilltypes.LocalIndex, error) {
	var index *skilltypes.LocalIndex
	err := telemetry.WithSpan(ctx, "registry.fetch_index", func(ctx context.Context) error {
		var err error
		index, err = c.fetchWithRetry(ctx)
		return err
	}, attribute.String("registry.url", c.url))

	if err == nil {
		index.LastUpdated = c.now().UTC()
		if saveErr := c.store.SaveIndex(ctx, index); saveErr != nil {
			logger.G(ctx).WithError(saveErr).Warn("failed to persist registry index")
		}
		return index, nil
	}

	local, loadErr := c.store.LoadIndex(ctx)
	if loadErr == nil && local != nil && len(local.Skills) > 0 {
		logger.G(ctx).WithError(err).WithField("url", c.url).Warn("registry unreachable, using local index")
		return local, nil
	}
	return nil, &skilltypes.RegistryUnreachableError{URL: c.url, Err: err}
}

func (c *Client) fetchWithRetry(ctx context.Context) (*skilltypes.LocalIndex, error) {
	var index *skilltypes.LocalIndex
	err := retry.Do(
		func() error {
			var err error
			index, err = c.fetch(ctx)
			return err
		},
		retry.RetryIf(retryable),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("max_attempts", c.attempts).Debug("retrying registry fetch")
		}),
	)
	return index, err
}

func (c *Client) fetch(ctx context.Context) (*skilltypes.LocalIndex, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(errors.Wrap(err, "failed to create registry request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "registry request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode}
	}

	index := skilltypes.NewLocalIndex()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBytes)).Decode(index); err != nil {
		return nil, retry.Unrecoverable(errors.Wrap(err, "failed to decode registry index"))
	}
	if index.Skills == nil {
		index.Skills = map[string]skilltypes.RegistryEntry{}
	}
	if index.Version == "" {
		index.Version = skilltypes.LocalIndexVersion
	}
	return index, nil
}

// GetEntry looks up name in index
func GetEntry(index *skilltypes.LocalIndex, name string) (*skilltypes.RegistryEntry, error) {
	if index != nil {
		if entry, ok := index.Skills[name]; ok {
			return &entry, nil
		}
	}
	return nil, &skilltypes.NotFoundError{Name: name}
}

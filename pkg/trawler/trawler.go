// Package trawler discovers skills across the local registry index and
// remote sources concurrently, then merges the hits into one ranked list.
package trawler

import (
	"context"
	"sync"
	"time"

	"github.com/jingkaihe/skillli/pkg/logger"
	"github.com/jingkaihe/skillli/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxResults is used when Options.MaxResults is not positive
const DefaultMaxResults = 10

// DefaultSources are queried when Options.Sources is empty
var DefaultSources = []skilltypes.Source{skilltypes.SourceRegistry, skilltypes.SourceGitHub}

// Options controls a single trawl. The web source runs only when Domains
// is non-empty.
type Options struct {
	Sources    []skilltypes.Source
	MaxResults int
	Domains    []string
}

// Searcher is one discovery source
type Searcher interface {
	Source() skilltypes.Source
	Search(ctx context.Context, query string, opts Options) ([]skilltypes.TrawlResult, error)
}

// Trawler fans a query out to its configured searchers
type Trawler struct {
	searchers     map[skilltypes.Source]Searcher
	sourceTimeout time.Duration
}

// Option is a function that configures a Trawler
type Option func(*Trawler) error

// WithSearcher registers a searcher, replacing any other for the same source
func WithSearcher(s Searcher) Option {
	return func(t *Trawler) error {
		if s == nil {
			return errors.New("searcher must not be nil")
		}
		t.searchers[s.Source()] = s
		return nil
	}
}

// WithSourceTimeout bounds each source branch. Zero means no bound beyond
// the caller's context.
func WithSourceTimeout(d time.Duration) Option {
	return func(t *Trawler) error {
		if d < 0 {
			return errors.Errorf("source timeout must not be negative, got %s", d)
		}
		t.sourceTimeout = d
		return nil
	}
}

// New creates a trawler
func New(opts ...Option) (*Trawler, error) {
	t := &Trawler{searchers: make(map[skilltypes.Source]Searcher)}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Trawl queries every selected source concurrently, waits for all of them,
// then deduplicates and ranks the combined results. A failing source
// contributes nothing and never fails the trawl.
func (t *Trawler) Trawl(ctx context.Context, query string, opts Options) []skilltypes.TrawlResult {
	ctx, span := telemetry.Tracer("").Start(ctx, "trawler.trawl", trace.WithAttributes(
		attribute.String("trawl.query", query),
	))
	defer span.End()

	sources := t.activeSources(ctx, opts)

	perSource := make([][]skilltypes.TrawlResult, len(sources))
	wg := sync.WaitGroup{}
	wg.Add(len(sources))
	for i, searcher := range sources {
		go func(i int, searcher Searcher) {
			defer wg.Done()
			perSource[i] = t.runSource(ctx, searcher, query, opts)
		}(i, searcher)
	}
	wg.Wait()

	var all []skilltypes.TrawlResult
	for _, results := range perSource {
		all = append(all, results...)
	}

	ranked := Rank(Deduplicate(all), query)

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	span.SetAttributes(attribute.Int("trawl.results", len(ranked)))
	span.SetStatus(codes.Ok, "")
	return ranked
}

// activeSources resolves the searchers selected by opts in a stable order
func (t *Trawler) activeSources(ctx context.Context, opts Options) []Searcher {
	requested := opts.Sources
	if len(requested) == 0 {
		requested = DefaultSources
	}

	seen := make(map[skilltypes.Source]bool)
	var selected []Searcher
	add := func(source skilltypes.Source) {
		if seen[source] {
			return
		}
		seen[source] = true
		searcher, ok := t.searchers[source]
		if !ok {
			logger.G(ctx).WithField("source", source).Debug("no searcher configured for trawl source")
			return
		}
		selected = append(selected, searcher)
	}

	for _, source := range requested {
		if source == skilltypes.SourceWeb {
			continue
		}
		add(source)
	}
	if len(opts.Domains) > 0 {
		add(skilltypes.SourceWeb)
	}
	return selected
}

// runSource executes one branch. Errors and panics become an empty result.
func (t *Trawler) runSource(ctx context.Context, searcher Searcher, query string, opts Options) (results []skilltypes.TrawlResult) {
	source := searcher.Source()
	ctx, span := telemetry.Tracer("").Start(ctx, "trawler.source", trace.WithAttributes(
		attribute.String("trawl.source", string(source)),
	))
	defer span.End()

	if t.sourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.sourceTimeout)
		defer cancel()
	}

	fail := func(err error) {
		unavailable := &skilltypes.SourceUnavailableError{Source: source, Err: err}
		logger.G(ctx).WithField("source", source).WithError(unavailable).Warn("trawl source unavailable")
		span.RecordError(unavailable)
		span.SetStatus(codes.Error, unavailable.Error())
		results = nil
	}

	defer func() {
		if r := recover(); r != nil {
			fail(errors.Errorf("panic: %v", r))
		}
	}()

	found, err := searcher.Search(ctx, query, opts)
	if err != nil {
		fail(err)
		return nil
	}

	span.SetAttributes(attribute.Int("trawl.source.results", len(found)))
	span.SetStatus(codes.Ok, "")
	return found
}

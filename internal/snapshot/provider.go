package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"qms-mcp/internal/entity"
	"qms-mcp/internal/metrics"
	"qms-mcp/internal/record"
	"qms-mcp/internal/supabase"
)

// ErrNoSnapshot is returned in offline mode when no cached snapshot exists.
var ErrNoSnapshot = errors.New("no cached snapshot available")

const defaultConcurrency = 4

// Options tune hydration.
type Options struct {
	CacheDir string
	// TTL is how long a snapshot is served before it is refetched. Zero never expires.
	TTL time.Duration
	// Offline serves only the cache and never calls the client.
	Offline     bool
	Concurrency int
}

// Provider orchestrates fetching, caching and serving snapshots.
type Provider struct {
	client supabase.Client
	store  *Store
	opts   Options

	mu  sync.Mutex
	now func() time.Time
}

// NewProvider creates a provider. client may be nil in offline mode.
func NewProvider(client supabase.Client, store *Store, opts Options) *Provider {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Provider{
		client: client,
		store:  store,
		opts:   opts,
		now:    time.Now,
	}
}

// Offline reports whether the provider serves only cached data.
func (p *Provider) Offline() bool {
	return p.opts.Offline
}

// Hydrate returns a snapshot of source, fetching a fresh one when the held
// snapshot is missing or older than the TTL. force skips the freshness check.
func (p *Provider) Hydrate(ctx context.Context, source string, force bool) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 1. Serve from memory
	if snap := p.store.Get(source); snap != nil && !force && p.fresh(snap) {
		return p.serve(snap), nil
	}

	// 2. Try the disk cache
	if p.opts.CacheDir != "" {
		if err := p.store.Load(p.opts.CacheDir, source); err != nil {
			log.Warn().Err(err).Str("source", source).Msg("Hydrate: ignoring unreadable cache")
		}
	}
	snap := p.store.Get(source)
	if p.opts.Offline {
		if snap == nil {
			return nil, fmt.Errorf("%w for source %q in %s", ErrNoSnapshot, source, p.opts.CacheDir)
		}
		return p.serve(snap), nil
	}
	if snap != nil && !force && p.fresh(snap) {
		return p.serve(snap), nil
	}
	if p.client == nil {
		return nil, errors.New("no database client configured")
	}

	// 3. Fetch every table
	start := p.now()
	log.Info().Str("source", source).Bool("forced", force).Msg("Starting hydration")
	collections, err := p.fetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydration failed: %w", err)
	}
	snap = &Snapshot{Source: source, FetchedAt: start, Collections: collections}
	p.store.Put(snap)

	// 4. Save to cache
	if p.opts.CacheDir != "" {
		if err := p.store.Save(p.opts.CacheDir, source); err != nil {
			log.Warn().Err(err).Str("source", source).Msg("Hydrate: failed to save cache")
		}
	}

	log.Info().Int("tables", len(collections)).Int("records", collections.Total()).Dur("elapsed", p.now().Sub(start)).Msg("Hydration complete")
	return p.serve(snap), nil
}

func (p *Provider) fresh(snap *Snapshot) bool {
	return p.opts.TTL <= 0 || snap.Age(p.now()) < p.opts.TTL
}

func (p *Provider) serve(snap *Snapshot) *Snapshot {
	metrics.SnapshotAge.Set(snap.Age(p.now()).Seconds())
	return snap
}

// fetchAll reads every catalog table concurrently. The first failure cancels
// the remaining fetches.
func (p *Provider) fetchAll(ctx context.Context) (entity.Collections, error) {
	specs := entity.Fetchable()

	var mu sync.Mutex
	out := make(entity.Collections, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, spec := range specs {
		g.Go(func() error {
			rows, err := p.client.Fetch(gctx, spec)
			metrics.ObserveFetch(spec.Table, len(rows), err)
			if err != nil {
				return fmt.Errorf("%s: %w", spec.Kind, err)
			}
			if rows == nil {
				rows = []record.Record{}
			}
			mu.Lock()
			out[spec.Kind] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Package imagery finds one representative photo per place. Resolution never
// fails: every problem degrades to a placeholder image and a warning.
package imagery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"luxe/logging"
	"luxe/models"
)

const maxDownloadBytes = 10 << 20

var errNoCandidates = errors.New("no usable search results")

type Options struct {
	Workers int
	// RPS paces every outbound call (searches and downloads) across all builds.
	RPS     float64
	Timeout time.Duration
	// Placeholder overrides DefaultPlaceholder when set.
	Placeholder []byte
}

// Resolver holds what outlives a single build: the search client, the shared
// pacing limiter and the placeholder. Caching is per Build.
type Resolver struct {
	search      Searcher
	client      *http.Client
	limiter     *rate.Limiter
	workers     int
	timeout     time.Duration
	placeholder []byte
	logger      *zap.Logger
}

// NewResolver builds a resolver. A nil search puts it in placeholder-only mode.
func NewResolver(search Searcher, client *http.Client, opts Options, logger *zap.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	ph := opts.Placeholder
	if len(ph) == 0 {
		ph = DefaultPlaceholder()
	}
	r := &Resolver{
		search:      search,
		client:      client,
		limiter:     rate.NewLimiter(limit, 1),
		workers:     opts.Workers,
		timeout:     opts.Timeout,
		placeholder: ph,
		logger:      logging.OrNop(logger),
	}
	if search == nil {
		r.logger.Info("no image search configured, using placeholders only")
	}
	return r
}

// Build is the image cache of one itinerary build. Discard it with the build.
type Build struct {
	r           *Resolver
	destination string

	mu    sync.Mutex
	cache map[string]*entry
}

type entry struct {
	done chan struct{}
	img  models.ResolvedImage
}

func (r *Resolver) NewBuild(destination string) *Build {
	return &Build{r: r, destination: strings.TrimSpace(destination), cache: make(map[string]*entry)}
}

// Resolve returns the image for place, searching at most once per distinct
// place for the lifetime of the build. Concurrent callers for the same place
// wait for the first one.
func (b *Build) Resolve(ctx context.Context, place string) models.ResolvedImage {
	key := models.PlaceKey(place)

	b.mu.Lock()
	if e, ok := b.cache[key]; ok {
		b.mu.Unlock()
		select {
		case <-e.done:
			return e.img
		case <-ctx.Done():
			return b.r.degraded(place, ctx.Err())
		}
	}
	e := &entry{done: make(chan struct{})}
	b.cache[key] = e
	b.mu.Unlock()

	e.img = b.fetch(ctx, place)
	close(e.done)
	return e.img
}

// ResolveAll resolves places with bounded concurrency and returns once every
// lookup has finished. The map is keyed by models.PlaceKey.
func (b *Build) ResolveAll(ctx context.Context, places []string) map[string]models.ResolvedImage {
	out := make(map[string]models.ResolvedImage, len(places))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(b.r.workers)
	for _, place := range places {
		g.Go(func() error {
			img := b.Resolve(ctx, place)
			mu.Lock()
			out[models.PlaceKey(place)] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ph := 0
	for _, img := range out {
		if img.IsPlaceholder {
			ph++
		}
	}
	b.r.logger.Info("images resolved",
		zap.String("destination", b.destination),
		zap.Int("places", len(out)),
		zap.Int("placeholders", ph))
	return out
}

func (b *Build) query(place string) string {
	if b.destination == "" || strings.Contains(strings.ToLower(place), strings.ToLower(b.destination)) {
		return place
	}
	return place + " " + b.destination
}

func (b *Build) fetch(ctx context.Context, place string) models.ResolvedImage {
	r := b.r
	if r.search == nil {
		return r.placeholderFor(place)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return r.degraded(place, err)
	}
	cands, err := r.search.Search(ctx, b.query(place))
	if err != nil {
		return r.degraded(place, err)
	}

	lastErr := errNoCandidates
	for _, c := range cands {
		if c.URL == "" {
			continue
		}
		data, err := r.download(ctx, c.URL)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return models.ResolvedImage{
			PlaceName:   place,
			SourceURL:   c.URL,
			Attribution: c.Attribution,
			Bytes:       data,
		}
	}
	return r.degraded(place, lastErr)
}

func (r *Resolver) download(ctx context.Context, link string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: status %d", link, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", link, err)
	}
	return Normalize(raw)
}

func (r *Resolver) placeholderFor(place string) models.ResolvedImage {
	return models.ResolvedImage{PlaceName: place, Bytes: r.placeholder, IsPlaceholder: true}
}

func (r *Resolver) degraded(place string, cause error) models.ResolvedImage {
	r.logger.Warn("image resolution degraded",
		zap.String("place", place),
		zap.Error(cause))
	return r.placeholderFor(place)
}

// Copyright 2025 ImpactLens, Inc.
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ingest orchestrates the fetch pipeline: fingerprint the query,
// consult the cache, walk the paginated API, classify and extract nodes,
// merge incremental results, and persist. Each fetch is strictly sequential;
// the cache directory is not safe for concurrent fetches of the same query.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/impactlens/prmetrics/internal/bots"
	"github.com/impactlens/prmetrics/internal/cache"
	ilerrors "github.com/impactlens/prmetrics/internal/errors"
	"github.com/impactlens/prmetrics/internal/github"
	"github.com/impactlens/prmetrics/internal/metadata"
	"github.com/impactlens/prmetrics/internal/metrics"
)

// dateLayout is the wire format for fetch window dates.
const dateLayout = "2006-01-02"

// FetchRequest describes one query for merged pull request metrics.
type FetchRequest struct {
	Owner string
	Repo  string

	// Start and End bound the merge-date window, inclusive of both dates,
	// in "YYYY-MM-DD" form.
	Start string
	End   string

	// Author optionally restricts results to a single PR author.
	Author string

	// UseCache returns cached results when present and persists fresh ones.
	UseCache bool

	// Incremental narrows the query to the window since the last successful
	// fetch and merges with the cached records.
	Incremental bool
}

// Service is the public entry point of the ingestion core. It owns no
// global state: the API client, cache store and bot registry are injected.
type Service struct {
	client   github.Client
	store    *cache.Store
	registry *bots.Registry
	log      *zap.Logger

	now     func() time.Time
	sleep   SleepFunc
	limiter *rate.Limiter
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service's logger (and the walkers it spawns).
func WithServiceLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithClock replaces the wall clock used for last-fetch stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithServiceSleep replaces the backoff sleep used by walkers.
func WithServiceSleep(sleep SleepFunc) ServiceOption {
	return func(s *Service) { s.sleep = sleep }
}

// WithServicePacing replaces the inter-page rate limiter used by walkers.
func WithServicePacing(limiter *rate.Limiter) ServiceOption {
	return func(s *Service) { s.limiter = limiter }
}

// NewService assembles the ingestion service.
func NewService(client github.Client, store *cache.Store, registry *bots.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		client:   client,
		store:    store,
		registry: registry,
		log:      zap.NewNop(),
		now:      time.Now,
		sleep:    contextSleep,
		limiter:  rate.NewLimiter(rate.Every(pagePacing), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the de-duplicated metric records for the requested query.
//
// With caching on and incremental off, a cache hit short-circuits without
// any network call. In incremental mode the query window is narrowed to the
// last successful fetch date and the fresh records are merged over the
// cached ones. The cache is written — record file first, then the index
// entry — only after the walk completes without error.
func (s *Service) Fetch(ctx context.Context, req FetchRequest) ([]metrics.PRMetric, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	fingerprint := cache.Fingerprint(req.Owner, req.Repo, req.Start, req.End, req.Author)
	log := s.log.With(
		zap.String("repository", req.Owner+"/"+req.Repo),
		zap.String("fingerprint", fingerprint))

	if req.UseCache && !req.Incremental {
		if records, ok := s.store.Load(fingerprint); ok {
			return records, nil
		}
	}

	// Incremental mode narrows the window to what changed since last time.
	queryStart := req.Start
	var (
		cached    []metrics.PRMetric
		hadCached bool
	)
	if req.Incremental {
		if lastFetch, ok := s.store.LastFetch(fingerprint); ok {
			queryStart = lastFetch
			log.Info("incremental fetch, narrowing window", zap.String("since", lastFetch))
		}
		cached, hadCached = s.store.Load(fingerprint)
	}

	start, err := time.Parse(dateLayout, queryStart)
	if err != nil {
		// A corrupt index date degrades to the caller's full window.
		log.Warn("invalid last-fetch date in index, using requested start",
			zap.String("last_fetch", queryStart))
		queryStart = req.Start
		start, _ = time.Parse(dateLayout, queryStart)
	}
	end, _ := time.Parse(dateLayout, req.End)

	tracker := metadata.NewTracker(req.Owner+"/"+req.Repo, req.Author, queryStart, req.End, fingerprint, req.Incremental)
	log = log.With(zap.String("fetch_id", tracker.FetchID()))
	log.Info("fetching merged pull requests",
		zap.String("start", queryStart), zap.String("end", req.End))

	classifier := NewClassifier(s.registry, req.Author, start, end)
	walker := NewWalker(s.client, classifier, metrics.NewExtractor(s.registry),
		WithLogger(log),
		WithSleep(s.sleep),
		WithPacing(s.limiter),
		WithTracker(tracker),
	)

	fresh, err := walker.Walk(ctx, req.Owner, req.Repo)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s (fingerprint %s): %w", req.Owner, req.Repo, fingerprint, err)
	}

	result := fresh
	if req.Incremental && hadCached {
		result = Merge(cached, fresh)
		log.Info("merged incremental results",
			zap.Int("cached", len(cached)), zap.Int("fresh", len(fresh)), zap.Int("merged", len(result)))
	}

	if req.UseCache {
		// Record file first, then the index entry that references it.
		if err := s.store.Save(fingerprint, result); err != nil {
			return nil, err
		}
		if err := s.store.SetLastFetch(fingerprint, s.now().Format(dateLayout)); err != nil {
			return nil, err
		}
		if err := metadata.Save(s.store.Dir(), tracker.Finalize()); err != nil {
			log.Warn("failed to write fetch record", zap.Error(err))
		}
	}

	return result, nil
}

// validateRequest surfaces configuration problems before any network call.
func validateRequest(req FetchRequest) error {
	if req.Owner == "" || req.Repo == "" {
		return fmt.Errorf("repository owner and name are required: %w", ilerrors.ErrMissingConfig)
	}
	if _, err := time.Parse(dateLayout, req.Start); err != nil {
		return fmt.Errorf("invalid start date %q (want YYYY-MM-DD): %w", req.Start, ilerrors.ErrMissingConfig)
	}
	if _, err := time.Parse(dateLayout, req.End); err != nil {
		return fmt.Errorf("invalid end date %q (want YYYY-MM-DD): %w", req.End, ilerrors.ErrMissingConfig)
	}
	return nil
}

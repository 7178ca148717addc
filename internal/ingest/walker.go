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

package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	ilerrors "github.com/impactlens/prmetrics/internal/errors"
	"github.com/impactlens/prmetrics/internal/github"
	"github.com/impactlens/prmetrics/internal/giterror"
	"github.com/impactlens/prmetrics/internal/metadata"
	"github.com/impactlens/prmetrics/internal/metrics"
)

const (
	// maxPages and maxResults are the safety limits for one walk. The API
	// orders by last update while we filter by merge date, so there is no
	// principled stopping rule; these caps are the pragmatic one.
	maxPages   = 100
	maxResults = 2500

	// maxAttempts bounds requests for a single page: one initial try plus
	// two retries, backing off 1s then 2s. Only timeouts and 504s retry.
	maxAttempts    = 3
	initialBackoff = 1 * time.Second

	// pagePacing is the minimum spacing between page requests, keeping the
	// walk friendly to host-side rate limits.
	pagePacing = 500 * time.Millisecond

	// deepSearchNotice is the page count after which an all-empty walk logs
	// that matches may still be further back in the update ordering.
	deepSearchNotice = 10
)

// SleepFunc blocks for the given duration or until the context is canceled.
// Injected so tests can observe backoff without waiting for it.
type SleepFunc func(ctx context.Context, d time.Duration) error

// contextSleep is the production SleepFunc.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Walker drives the paginated request loop for one fetch: request a page,
// retry transient failures with exponential backoff, classify and extract
// the nodes, pace, and continue until the last page or a safety cap.
//
// A page with zero in-range matches does not terminate the walk. The API
// orders by UPDATED_AT, and a PR can be updated (commented on, relabeled)
// long after merging, displacing it from its merge-time position — so older
// matches may well exist beyond an empty-looking page.
type Walker struct {
	client     github.Client
	classifier *Classifier
	extractor  *metrics.Extractor
	inspector  giterror.Inspector
	limiter    *rate.Limiter
	sleep      SleepFunc
	tracker    *metadata.Tracker
	log        *zap.Logger
}

// NewWalker assembles a walker. Nil limiter, sleep and log get production
// defaults; tracker may be nil when no audit record is wanted.
func NewWalker(client github.Client, classifier *Classifier, extractor *metrics.Extractor, opts ...WalkerOption) *Walker {
	w := &Walker{
		client:     client,
		classifier: classifier,
		extractor:  extractor,
		inspector:  giterror.NewInspector(),
		limiter:    rate.NewLimiter(rate.Every(pagePacing), 1),
		sleep:      contextSleep,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WalkerOption customizes a Walker.
type WalkerOption func(*Walker)

// WithLogger sets the walker's logger.
func WithLogger(log *zap.Logger) WalkerOption {
	return func(w *Walker) { w.log = log }
}

// WithSleep replaces the backoff sleep function.
func WithSleep(sleep SleepFunc) WalkerOption {
	return func(w *Walker) { w.sleep = sleep }
}

// WithPacing replaces the inter-page rate limiter.
func WithPacing(limiter *rate.Limiter) WalkerOption {
	return func(w *Walker) { w.limiter = limiter }
}

// WithTracker attaches a metadata tracker to the walk.
func WithTracker(tracker *metadata.Tracker) WalkerOption {
	return func(w *Walker) { w.tracker = tracker }
}

// Walk runs the full pagination loop and returns every extracted record.
// Any error aborts the whole walk: a truncated result set is never returned
// as success.
func (w *Walker) Walk(ctx context.Context, owner, repo string) ([]metrics.PRMetric, error) {
	var (
		results []metrics.PRMetric
		cursor  string
	)

	for page := 1; ; page++ {
		// First reservation is free; subsequent ones pace the loop.
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		w.log.Info("fetching page", zap.Int("page", page))

		resp, err := w.fetchPage(ctx, owner, repo, github.FetchOptions{After: cursor}, page)
		if err != nil {
			return nil, err
		}

		matched, counters, oldest, newest := w.processPage(resp.PullRequests, &results)

		w.logPageSummary(page, len(resp.PullRequests), matched, counters, oldest, newest, len(results))
		if w.tracker != nil {
			w.tracker.RecordPage(len(resp.PullRequests), matched, metadata.FilterTotals{
				NotMerged:      counters.NotMerged,
				BotAuthor:      counters.BotAuthor,
				AuthorMismatch: counters.AuthorMismatch,
				DateOutOfRange: counters.DateOutOfRange,
			})
		}

		if page >= deepSearchNotice && len(results) == 0 && oldest != nil && oldest.After(w.classifier.end) {
			w.log.Info("no matches yet; oldest merge on page is still after the window, continuing search",
				zap.Int("page", page), zap.Time("oldest_merged", *oldest))
		}

		if len(results) >= maxResults {
			w.log.Warn("reached maximum result limit, stopping walk",
				zap.Int("results", len(results)), zap.Int("limit", maxResults))
			break
		}

		if !resp.HasNextPage {
			break
		}

		if page >= maxPages {
			w.log.Warn("reached maximum page limit, stopping walk",
				zap.Int("pages", maxPages), zap.Int("results", len(results)))
			break
		}

		cursor = resp.EndCursor
	}

	w.log.Info("walk complete", zap.Int("results", len(results)))
	return results, nil
}

// fetchPage requests one page, retrying transient failures (request timeout
// or HTTP 504) with exponential backoff: 1s, 2s. Every other error is fatal
// on first occurrence.
func (w *Walker) fetchPage(ctx context.Context, owner, repo string, opts github.FetchOptions, page int) (*github.PullRequestPage, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if w.tracker != nil {
			w.tracker.IncrementAPICall()
		}

		resp, err := w.client.FetchMergedPage(ctx, owner, repo, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !w.inspector.IsTransient(err) {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		// A canceled caller context also reads as a timeout; let it abort.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt == maxAttempts-1 {
			break
		}

		backoff := initialBackoff << attempt
		w.log.Warn("transient error fetching page, retrying",
			zap.Int("page", page),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		if err := w.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("page %d failed after %d attempts: %v: %w",
		page, maxAttempts, lastErr, ilerrors.ErrNetworkFailure)
}

// processPage classifies and extracts one page of nodes, appending matches
// to results. Returns the match count, the per-page filter counters, and the
// oldest/newest merge timestamps seen on the page.
func (w *Walker) processPage(nodes []github.PullRequest, results *[]metrics.PRMetric) (int, FilterCounters, *time.Time, *time.Time) {
	var (
		counters FilterCounters
		matched  int
		oldest   *time.Time
		newest   *time.Time
	)

	for _, node := range nodes {
		if node.MergedAt != nil {
			if oldest == nil || node.MergedAt.Before(*oldest) {
				oldest = node.MergedAt
			}
			if newest == nil || node.MergedAt.After(*newest) {
				newest = node.MergedAt
			}
		}

		if !w.classifier.Classify(node, &counters) {
			continue
		}

		*results = append(*results, w.extractor.Extract(node))
		matched++
	}

	return matched, counters, oldest, newest
}

func (w *Walker) logPageSummary(page, nodes, matched int, counters FilterCounters, oldest, newest *time.Time, total int) {
	fields := []zap.Field{
		zap.Int("page", page),
		zap.Int("nodes", nodes),
		zap.Int("matched", matched),
		zap.Int("filtered", counters.Total()),
		zap.Int("total_so_far", total),
	}
	if counters.NotMerged > 0 {
		fields = append(fields, zap.Int("not_merged", counters.NotMerged))
	}
	if counters.BotAuthor > 0 {
		fields = append(fields, zap.Int("bot_author", counters.BotAuthor))
	}
	if counters.AuthorMismatch > 0 {
		fields = append(fields, zap.Int("author_mismatch", counters.AuthorMismatch))
	}
	if counters.DateOutOfRange > 0 {
		fields = append(fields, zap.Int("date_out_of_range", counters.DateOutOfRange))
	}
	if oldest != nil && newest != nil {
		fields = append(fields,
			zap.Time("oldest_merged", *oldest),
			zap.Time("newest_merged", *newest))
	}
	w.log.Info("page summary", fields...)
}

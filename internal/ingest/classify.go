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
	"time"

	"github.com/impactlens/prmetrics/internal/bots"
	"github.com/impactlens/prmetrics/internal/github"
)

// FilterCounters tallies why nodes on a page were rejected. Counters are
// per-page diagnostics; the walker resets them for every page.
type FilterCounters struct {
	NotMerged      int
	BotAuthor      int
	AuthorMismatch int
	DateOutOfRange int
}

// Total returns the number of rejected nodes.
func (c FilterCounters) Total() int {
	return c.NotMerged + c.BotAuthor + c.AuthorMismatch + c.DateOutOfRange
}

// Classifier decides whether a raw node belongs in the result set.
// Rejection reasons are evaluated in a fixed order and the first match wins:
// not merged, missing/bot author, author filter mismatch, merge date outside
// the window. Classification is deterministic for a fixed node.
type Classifier struct {
	bots   *bots.Registry
	author string
	start  time.Time
	end    time.Time // exclusive: end date + 1 day
}

// NewClassifier creates a classifier for the window [start, end+1day).
// Author is the optional author filter; empty accepts every human author.
func NewClassifier(registry *bots.Registry, author string, start, end time.Time) *Classifier {
	return &Classifier{
		bots:   registry,
		author: author,
		start:  start,
		end:    end.AddDate(0, 0, 1),
	}
}

// Classify reports whether the node passes all filters, tallying the
// rejection reason in counters when it does not.
func (c *Classifier) Classify(pr github.PullRequest, counters *FilterCounters) bool {
	if pr.MergedAt == nil {
		counters.NotMerged++
		return false
	}

	if pr.Author == "" || c.bots.IsBot(pr.Author) {
		counters.BotAuthor++
		return false
	}

	if c.author != "" && pr.Author != c.author {
		counters.AuthorMismatch++
		return false
	}

	merged := *pr.MergedAt
	if merged.Before(c.start) || !merged.Before(c.end) {
		counters.DateOutOfRange++
		return false
	}

	return true
}

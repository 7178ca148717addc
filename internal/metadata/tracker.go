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

// Package metadata records audit information about fetch operations: how
// many pages were walked, how many API calls were made, and why nodes were
// filtered out. One record is written per successful fetch, beside the cache
// files, so fetch history can be analyzed without re-running anything.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FilterTotals aggregates node rejection reasons across all pages of a fetch.
type FilterTotals struct {
	NotMerged      int `json:"not_merged"`
	BotAuthor      int `json:"bot_author"`
	AuthorMismatch int `json:"author_mismatch"`
	DateOutOfRange int `json:"date_out_of_range"`
}

// FetchRecord is the persisted audit record for one fetch operation.
type FetchRecord struct {
	FetchID     string `json:"fetch_id"`
	Repository  string `json:"repository"`
	Author      string `json:"author,omitempty"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Fingerprint string `json:"fingerprint"`
	Incremental bool   `json:"incremental"`

	Pages     int          `json:"pages"`
	APICalls  int          `json:"api_calls"`
	NodesSeen int          `json:"nodes_seen"`
	Matched   int          `json:"matched"`
	Filtered  FilterTotals `json:"filtered"`

	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Tracker collects statistics during a fetch operation. Create one at the
// start of each fetch and call its methods as the walk progresses.
type Tracker struct {
	record FetchRecord
}

// NewTracker starts tracking a fetch. The fetch ID is a fresh UUID usable
// for correlation in logs.
func NewTracker(repository, author, windowStart, windowEnd, fingerprint string, incremental bool) *Tracker {
	return &Tracker{
		record: FetchRecord{
			FetchID:     uuid.NewString(),
			Repository:  repository,
			Author:      author,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			Fingerprint: fingerprint,
			Incremental: incremental,
			StartedAt:   time.Now().UTC(),
		},
	}
}

// FetchID returns the correlation ID for this fetch.
func (t *Tracker) FetchID() string {
	return t.record.FetchID
}

// IncrementAPICall records one API request, including retried attempts.
func (t *Tracker) IncrementAPICall() {
	t.record.APICalls++
}

// RecordPage folds one page's results into the running totals.
func (t *Tracker) RecordPage(nodes, matched int, filtered FilterTotals) {
	t.record.Pages++
	t.record.NodesSeen += nodes
	t.record.Matched += matched
	t.record.Filtered.NotMerged += filtered.NotMerged
	t.record.Filtered.BotAuthor += filtered.BotAuthor
	t.record.Filtered.AuthorMismatch += filtered.AuthorMismatch
	t.record.Filtered.DateOutOfRange += filtered.DateOutOfRange
}

// Finalize stamps the completion time and returns the finished record.
func (t *Tracker) Finalize() FetchRecord {
	t.record.CompletedAt = time.Now().UTC()
	t.record.DurationSeconds = t.record.CompletedAt.Sub(t.record.StartedAt).Seconds()
	return t.record
}

// Save writes the record to <dir>/fetch_<fingerprint>.json, overwriting any
// record from a previous fetch of the same query.
func Save(dir string, record FetchRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal fetch record: %w", err)
	}

	path := filepath.Join(dir, "fetch_"+record.Fingerprint+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write fetch record: %w", err)
	}
	return nil
}

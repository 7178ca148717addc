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

// Package cache persists fetched metric records on disk, keyed by query
// fingerprint. The layout is plain JSON so external tooling can read it:
//
//	<dir>/cache_index.json     fingerprint -> last-fetch date (ISO)
//	<dir>/prs_<fingerprint>.json  JSON array of PRMetric
//
// Corruption never fails a fetch: an unreadable record or index file is
// treated as a cache miss and logged at warn level, degrading performance
// rather than correctness. The store is not safe for concurrent writers to
// the same fingerprint; callers must serialize fetches per query.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/impactlens/prmetrics/internal/metrics"
)

const indexFileName = "cache_index.json"

// indexFile is the on-disk shape of the cache index.
type indexFile struct {
	LastFetch map[string]string `json:"last_fetch"`
}

// Store persists metric records and the last-fetch index under a directory.
type Store struct {
	dir   string
	log   *zap.Logger
	index indexFile
}

// NewStore opens (or creates) a cache directory and loads its index.
// A missing or corrupt index starts empty.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	s := &Store{
		dir:   dir,
		log:   log,
		index: indexFile{LastFetch: make(map[string]string)},
	}

	data, err := os.ReadFile(s.indexPath())
	switch {
	case os.IsNotExist(err):
		// First run for this directory.
	case err != nil:
		s.log.Warn("failed to read cache index, starting empty",
			zap.String("path", s.indexPath()), zap.Error(err))
	default:
		var idx indexFile
		if uerr := json.Unmarshal(data, &idx); uerr != nil {
			s.log.Warn("cache index is corrupt, starting empty",
				zap.String("path", s.indexPath()), zap.Error(uerr))
		} else if idx.LastFetch != nil {
			s.index = idx
		}
	}

	return s, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the cached records for a fingerprint. The second return value
// is false on a miss — including when the file exists but cannot be parsed,
// which is logged and otherwise treated the same as absence.
func (s *Store) Load(fingerprint string) ([]metrics.PRMetric, bool) {
	path := s.recordPath(fingerprint)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read cache file, treating as miss",
				zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}

	var records []metrics.PRMetric
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn("cache file is corrupt, treating as miss",
			zap.String("path", path), zap.Error(err))
		return nil, false
	}

	s.log.Info("loaded records from cache",
		zap.String("fingerprint", fingerprint), zap.Int("records", len(records)))
	return records, true
}

// Save writes the full record set for a fingerprint, replacing any previous
// content. The write is atomic (temp file + rename) so readers never observe
// a partially written record file.
func (s *Store) Save(fingerprint string, records []metrics.PRMetric) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache records: %w", err)
	}

	if err := writeFileAtomic(s.recordPath(fingerprint), data); err != nil {
		return fmt.Errorf("failed to write cache file for %s: %w", fingerprint, err)
	}

	s.log.Info("saved records to cache",
		zap.String("fingerprint", fingerprint), zap.Int("records", len(records)))
	return nil
}

// LastFetch returns the last successful fetch date for a fingerprint.
func (s *Store) LastFetch(fingerprint string) (string, bool) {
	date, ok := s.index.LastFetch[fingerprint]
	return date, ok
}

// SetLastFetch records the last successful fetch date for a fingerprint and
// persists the index. Call this only after the record file has been written,
// so the index never references data that is not on disk.
func (s *Store) SetLastFetch(fingerprint, date string) error {
	s.index.LastFetch[fingerprint] = date

	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}
	if err := writeFileAtomic(s.indexPath(), data); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	return nil
}

// Clear removes the record file and index entry for one fingerprint.
func (s *Store) Clear(fingerprint string) error {
	if err := os.Remove(s.recordPath(fingerprint)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	if _, ok := s.index.LastFetch[fingerprint]; ok {
		delete(s.index.LastFetch, fingerprint)
		data, err := json.MarshalIndent(s.index, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal cache index: %w", err)
		}
		if err := writeFileAtomic(s.indexPath(), data); err != nil {
			return fmt.Errorf("failed to write cache index: %w", err)
		}
	}
	return nil
}

// ClearAll removes every record file and resets the index.
func (s *Store) ClearAll() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "prs_*.json"))
	if err != nil {
		return fmt.Errorf("failed to list cache files: %w", err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache file %s: %w", path, err)
		}
	}

	s.index = indexFile{LastFetch: make(map[string]string)}
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}
	if err := writeFileAtomic(s.indexPath(), data); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	return nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFileName)
}

func (s *Store) recordPath(fingerprint string) string {
	return filepath.Join(s.dir, "prs_"+fingerprint+".json")
}

// writeFileAtomic writes data to path using a write-to-temp-and-rename
// pattern so a crash mid-write leaves the previous file intact.
func writeFileAtomic(path string, data []byte) error {
	tempFile := path + ".tmp"

	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Sync to ensure data is flushed to disk before the rename.
	file, err := os.Open(tempFile)
	if err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

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

import "github.com/impactlens/prmetrics/internal/metrics"

// Merge combines a cached record set with a freshly fetched one into a
// set-union keyed by PR number. Where a number appears in both, the fresh
// record wins in full — it reflects the current reviews and comments — so
// this is a key-level replace, not a field-level merge. Cached ordering is
// preserved (replacements happen in place); fresh records not present in the
// cache are appended in fetch order. Merging a set with itself is a no-op.
func Merge(cached, fresh []metrics.PRMetric) []metrics.PRMetric {
	freshByNumber := make(map[int]int, len(fresh))
	for i, r := range fresh {
		freshByNumber[r.PRNumber] = i
	}

	merged := make([]metrics.PRMetric, 0, len(cached)+len(fresh))
	seen := make(map[int]struct{}, len(cached)+len(fresh))

	for _, r := range cached {
		if _, dup := seen[r.PRNumber]; dup {
			continue
		}
		seen[r.PRNumber] = struct{}{}
		if i, ok := freshByNumber[r.PRNumber]; ok {
			merged = append(merged, fresh[i])
		} else {
			merged = append(merged, r)
		}
	}

	for _, r := range fresh {
		if _, dup := seen[r.PRNumber]; dup {
			continue
		}
		seen[r.PRNumber] = struct{}{}
		merged = append(merged, r)
	}

	return merged
}

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

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("acme", "widgets", "2024-10-01", "2024-10-31", "alice")
	b := Fingerprint("acme", "widgets", "2024-10-01", "2024-10-31", "alice")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // sha256 hex
}

func TestFingerprintFieldSensitivity(t *testing.T) {
	base := Fingerprint("acme", "widgets", "2024-10-01", "2024-10-31", "alice")

	tests := []struct {
		name                            string
		owner, repo, start, end, author string
	}{
		{"owner", "other", "widgets", "2024-10-01", "2024-10-31", "alice"},
		{"repo", "acme", "other", "2024-10-01", "2024-10-31", "alice"},
		{"start", "acme", "widgets", "2024-10-02", "2024-10-31", "alice"},
		{"end", "acme", "widgets", "2024-10-01", "2024-11-30", "alice"},
		{"author", "acme", "widgets", "2024-10-01", "2024-10-31", "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.owner, tt.repo, tt.start, tt.end, tt.author)
			assert.NotEqual(t, base, got)
		})
	}
}

// An absent author filter must not share a cache slot with a user actually
// named "all".
func TestFingerprintAbsentAuthorSentinel(t *testing.T) {
	absent := Fingerprint("acme", "widgets", "2024-10-01", "2024-10-31", "")
	literal := Fingerprint("acme", "widgets", "2024-10-01", "2024-10-31", "all")
	assert.NotEqual(t, absent, literal)
}

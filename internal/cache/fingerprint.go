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
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// allAuthorsSentinel stands in for an absent author filter. GitHub logins
// may only contain alphanumerics and hyphens, so the angle brackets
// guarantee no collision with a real username — including the literal "all".
const allAuthorsSentinel = "<all>"

// Fingerprint derives the stable cache key for a query. It is a pure
// function of (owner, repo, start, end, author): identical inputs always map
// to the same cache slot. Pass an empty author when no author filter is set.
func Fingerprint(owner, repo, start, end, author string) string {
	if author == "" {
		author = allAuthorsSentinel
	}
	key := strings.Join([]string{owner, repo, start, end, author}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

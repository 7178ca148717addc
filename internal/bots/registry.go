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

// Package bots identifies automation accounts so they can be excluded from
// human engineering metrics. A Registry is injected wherever bot detection
// is needed; tests substitute their own.
package bots

import "strings"

// defaultAccounts are usernames known to be automation rather than humans.
// Matched case-insensitively and in addition to the universal "[bot]" suffix rule.
var defaultAccounts = []string{
	"coderabbit",
	"coderabbitai",
	"coderabbit[bot]",
	"dependabot",
	"dependabot[bot]",
	"renovate",
	"renovate[bot]",
	"github-actions",
	"github-actions[bot]",
	"red-hat-konflux",
	"red-hat-konflux[bot]",
}

// defaultMentionHandles are @-handles of bot reviewers. A comment body that
// mentions one of these is addressed to automation and does not count as a
// human substantive comment.
var defaultMentionHandles = []string{
	"@coderabbit",
}

// Registry answers whether a username belongs to a bot account and whether
// a comment body mentions a known bot reviewer.
type Registry struct {
	accounts map[string]struct{}
	mentions []string
}

// NewRegistry returns a Registry seeded with the default bot accounts and
// mention handles. Extra entries extend (never replace) the defaults, so
// deployments can add site-specific automation via configuration.
func NewRegistry(extraAccounts, extraMentions []string) *Registry {
	r := &Registry{
		accounts: make(map[string]struct{}, len(defaultAccounts)+len(extraAccounts)),
	}
	for _, name := range defaultAccounts {
		r.accounts[name] = struct{}{}
	}
	for _, name := range extraAccounts {
		r.accounts[strings.ToLower(name)] = struct{}{}
	}
	r.mentions = append(r.mentions, defaultMentionHandles...)
	for _, h := range extraMentions {
		r.mentions = append(r.mentions, strings.ToLower(h))
	}
	return r
}

// IsBot reports whether the username is an automation account: an exact
// (case-insensitive) match against the known set, or any name ending in "[bot]".
// An empty username is not a bot; the classifier treats it as a missing author.
func (r *Registry) IsBot(username string) bool {
	if username == "" {
		return false
	}
	lower := strings.ToLower(username)
	if _, ok := r.accounts[lower]; ok {
		return true
	}
	return strings.HasSuffix(lower, "[bot]")
}

// MentionsBot reports whether a comment or review body mentions a known bot
// reviewer handle.
func (r *Registry) MentionsBot(body string) bool {
	lower := strings.ToLower(body)
	for _, h := range r.mentions {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

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

package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/impactlens/prmetrics/internal/bots"
	"github.com/impactlens/prmetrics/internal/github"
)

// aiToolPatterns maps an AI tool name to the commit message trailers that
// identify it. Matching is case-insensitive over the whole message.
var aiToolPatterns = map[string][]string{
	"Claude":  {"assisted-by: claude", "co-authored-by: claude"},
	"Cursor":  {"assisted-by: cursor"},
	"Copilot": {"co-authored-by: copilot"},
}

// approvalPhrases are review/comment bodies that carry no substance beyond
// approval. Compared case-insensitively after trimming whitespace.
var approvalPhrases = map[string]struct{}{
	"lgtm":       {},
	"approved":   {},
	"approve":    {},
	"👍":          {},
	":+1:":       {},
	"looks good": {},
}

// Extractor converts raw pull request nodes into PRMetric records.
// The bot registry decides which reviewers and commenters count as human.
type Extractor struct {
	bots *bots.Registry
}

// NewExtractor creates an Extractor using the given bot registry.
func NewExtractor(registry *bots.Registry) *Extractor {
	return &Extractor{bots: registry}
}

// Extract builds the metric record for a single merged pull request node.
// The node must have a merge timestamp; the classifier guarantees that.
func (e *Extractor) Extract(pr github.PullRequest) PRMetric {
	m := PRMetric{
		PRNumber:            pr.Number,
		Title:               pr.Title,
		Author:              pr.Author,
		CreatedAt:           pr.CreatedAt,
		MergedAt:            *pr.MergedAt,
		URL:                 pr.URL,
		TotalCommits:        pr.TotalCommits,
		ReviewCommentsCount: pr.ReviewThreadCount,
		IssueCommentsCount:  pr.TotalCommentCount,
		TotalCommentsCount:  len(pr.Comments),
		Additions:           pr.Additions,
		Deletions:           pr.Deletions,
		ChangedFiles:        pr.ChangedFiles,
	}

	e.extractAI(&m, pr.CommitMessages)
	e.extractTimes(&m, pr)
	e.extractReviews(&m, pr.Reviews)
	e.extractComments(&m, pr)

	return m
}

// extractAI scans commit messages for AI assistance trailers. A commit
// counts once no matter how many tools it mentions; the percentage is over
// the commits actually scanned, not the API's total count (which can be
// larger than the nested page).
func (e *Extractor) extractAI(m *PRMetric, messages []string) {
	tools := make(map[string]struct{})

	for _, msg := range messages {
		lower := strings.ToLower(msg)
		matched := false
		for tool, patterns := range aiToolPatterns {
			for _, p := range patterns {
				if strings.Contains(lower, p) {
					tools[tool] = struct{}{}
					matched = true
					break
				}
			}
		}
		if matched {
			m.AICommitsCount++
		}
	}

	m.HasAIAssistance = len(tools) > 0
	m.AITools = sortedKeys(tools)
	if len(messages) > 0 {
		m.AIPercentage = float64(m.AICommitsCount) / float64(len(messages)) * 100
	}
}

func (e *Extractor) extractTimes(m *PRMetric, pr github.PullRequest) {
	m.TimeToMergeHours = pr.MergedAt.Sub(pr.CreatedAt).Hours()
	m.TimeToMergeDays = m.TimeToMergeHours / 24

	var first *time.Time
	for _, r := range pr.Reviews {
		if r.SubmittedAt == nil {
			continue
		}
		if first == nil || r.SubmittedAt.Before(*first) {
			first = r.SubmittedAt
		}
	}
	if first != nil {
		hours := first.Sub(pr.CreatedAt).Hours()
		m.TimeToFirstReviewHours = &hours
	}
}

func (e *Extractor) extractReviews(m *PRMetric, reviews []github.Review) {
	reviewers := make(map[string]struct{})
	humans := make(map[string]struct{})

	for _, r := range reviews {
		if r.Author != "" {
			reviewers[r.Author] = struct{}{}
			if !e.bots.IsBot(r.Author) {
				humans[r.Author] = struct{}{}
			}
		}

		switch r.State {
		case "CHANGES_REQUESTED":
			m.ChangesRequestedCount++
		case "APPROVED":
			m.ApprovalsCount++
		}
	}

	m.Reviewers = sortedKeys(reviewers)
	m.ReviewersCount = len(m.Reviewers)
	m.HumanReviewers = sortedKeys(humans)
	m.HumanReviewersCount = len(m.HumanReviewers)
}

// extractComments classifies issue comment and review bodies. A body is
// substantive when it is non-empty and not a bare approval phrase; it is
// human substantive when additionally its author is not a bot and it does
// not mention a known bot reviewer.
func (e *Extractor) extractComments(m *PRMetric, pr github.PullRequest) {
	countBody := func(author, body string, isIssueComment bool) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		if _, bare := approvalPhrases[strings.ToLower(body)]; bare {
			return
		}

		m.SubstantiveCommentsCount++

		if author == "" || e.bots.IsBot(author) || e.bots.MentionsBot(body) {
			return
		}
		m.HumanTotalCommentsCount++
		m.HumanSubstantiveCommentsCount++
		if isIssueComment {
			m.HumanIssueCommentsCount++
		}
	}

	for _, c := range pr.Comments {
		countBody(c.Author, c.Body, true)
	}
	for _, r := range pr.Reviews {
		countBody(r.Author, r.Body, false)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

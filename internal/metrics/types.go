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

// Package metrics turns raw pull request nodes into per-PR engineering
// metric records. Extraction is pure: the same node always yields the same
// record, with no dependency on the wall clock beyond the input timestamps.
package metrics

import "time"

// PRMetric is the immutable per-pull-request metric record, keyed by
// PRNumber (unique within a repository). It is the unit the cache stores
// and the report layer consumes.
type PRMetric struct {
	PRNumber  int       `json:"pr_number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	MergedAt  time.Time `json:"merged_at"`
	URL       string    `json:"url"`

	// AI assistance, detected from commit message trailers.
	HasAIAssistance bool     `json:"has_ai_assistance"`
	AITools         []string `json:"ai_tools"`
	AICommitsCount  int      `json:"ai_commits_count"`
	TotalCommits    int      `json:"total_commits"`
	AIPercentage    float64  `json:"ai_percentage"`

	// Time metrics. TimeToFirstReviewHours is nil when the PR had no reviews.
	TimeToMergeHours       float64  `json:"time_to_merge_hours"`
	TimeToMergeDays        float64  `json:"time_to_merge_days"`
	TimeToFirstReviewHours *float64 `json:"time_to_first_review_hours"`

	// Review metrics. Reviewer lists are sorted for deterministic output.
	ChangesRequestedCount int      `json:"changes_requested_count"`
	ApprovalsCount        int      `json:"approvals_count"`
	ReviewersCount        int      `json:"reviewers_count"`
	Reviewers             []string `json:"reviewers"`
	HumanReviewersCount   int      `json:"human_reviewers_count"`
	HumanReviewers        []string `json:"human_reviewers"`

	// Comment metrics. HumanReviewCommentsCount is always zero: the GraphQL
	// reviewThreads connection exposes only a total count, not per-author data.
	ReviewCommentsCount           int `json:"review_comments_count"`
	IssueCommentsCount            int `json:"issue_comments_count"`
	TotalCommentsCount            int `json:"total_comments_count"`
	SubstantiveCommentsCount      int `json:"substantive_comments_count"`
	HumanTotalCommentsCount       int `json:"human_total_comments_count"`
	HumanSubstantiveCommentsCount int `json:"human_substantive_comments_count"`
	HumanReviewCommentsCount      int `json:"human_review_comments_count"`
	HumanIssueCommentsCount       int `json:"human_issue_comments_count"`

	// Size metrics.
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	ChangedFiles int `json:"changed_files"`
}

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

// Package github provides types and interfaces for interacting with the GitHub GraphQL API.
package github

import "time"

// PullRequest is one raw pull request node, validated and converted once at
// the ingestion boundary. Everything downstream (classification, metric
// extraction) works on this typed record instead of the loose GraphQL shape.
type PullRequest struct {
	Number       int
	Title        string
	URL          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MergedAt     *time.Time
	Additions    int
	Deletions    int
	ChangedFiles int

	// Author is the PR author's login. Empty when the account was deleted.
	Author string

	// TotalCommits is the commit count reported by the API, which can exceed
	// len(CommitMessages) when a PR has more commits than the nested page size.
	TotalCommits   int
	CommitMessages []string

	Reviews           []Review
	ReviewThreadCount int

	Comments          []Comment
	TotalCommentCount int
}

// Review is a single pull request review.
type Review struct {
	Author      string
	State       string
	Body        string
	SubmittedAt *time.Time
}

// Comment is a single issue-style comment on a pull request.
type Comment struct {
	Author string
	Body   string
}

// PullRequestPage represents one page of merged pull requests from a GraphQL
// query, along with the pagination cursor needed to fetch the next page.
type PullRequestPage struct {
	PullRequests []PullRequest
	HasNextPage  bool
	EndCursor    string
}

// FetchOptions configures a single page fetch.
type FetchOptions struct {
	// After is the cursor for pagination. Empty string fetches from the beginning.
	// Use PullRequestPage.EndCursor from the previous response for the next page.
	After string
}

// pageSize is the number of pull requests requested per page. Kept small,
// together with the nested commit/review/comment limits of 30/50/50, to stay
// under GitHub's gateway timeout: large nested selections on busy
// repositories reliably produce 504s.
const pageSize = 25

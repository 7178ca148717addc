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

package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shurcooL/graphql"

	ilerrors "github.com/impactlens/prmetrics/internal/errors"
	"github.com/impactlens/prmetrics/internal/giterror"
	"github.com/impactlens/prmetrics/pkg/version"
)

// PullRequestState mirrors the GitHub GraphQL enum of the same name.
// Declared so the $states variable serializes with the correct GraphQL type.
type PullRequestState string

// MergedState is the only state this client ever asks for.
const MergedState PullRequestState = "MERGED"

// requestTimeout bounds a single page request. GitHub's gateway gives up at
// around 60s on heavy queries, so there is no point waiting longer.
const requestTimeout = 60 * time.Second

// GraphQLClient implements the Client interface against the GitHub GraphQL API.
// It fetches merged pull requests one page at a time with the nested commit,
// review and comment data needed for metric extraction, attaching
// authentication and response size limits at the transport level.
type GraphQLClient struct {
	client    *graphql.Client
	inspector giterror.Inspector
}

// NewGraphQLClient creates a GitHub GraphQL client for the given endpoint.
// The client is configured with:
//   - Bearer authentication via the provided token
//   - A custom endpoint URL (e.g., for GitHub Enterprise)
//   - A per-request timeout aligned with GitHub's gateway limit
//   - Response size limiting to prevent memory issues
//   - Connection pooling tuned for a sequential page loop
func NewGraphQLClient(token, endpoint string) *GraphQLClient {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	httpClient := &http.Client{
		Timeout: requestTimeout,
		Transport: &authTransport{
			token: token,
			base:  transport,
		},
	}

	return &GraphQLClient{
		client:    graphql.NewClient(endpoint, httpClient),
		inspector: giterror.NewInspector(),
	}
}

// prNode is the GraphQL selection for a single pull request. The nested
// first: limits are deliberately small; see the page size constants in types.go.
type prNode struct {
	Number       graphql.Int
	Title        graphql.String
	URL          graphql.String `graphql:"url"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MergedAt     *time.Time
	Additions    graphql.Int
	Deletions    graphql.Int
	ChangedFiles graphql.Int

	Author *struct {
		Login graphql.String
	} `graphql:"author"`

	Commits struct {
		TotalCount graphql.Int
		Nodes      []struct {
			Commit struct {
				Message graphql.String
			} `graphql:"commit"`
		}
	} `graphql:"commits(first: 30)"`

	Reviews struct {
		TotalCount graphql.Int
		Nodes      []struct {
			Author *struct {
				Login graphql.String
			} `graphql:"author"`
			State       graphql.String
			SubmittedAt *time.Time
			Body        graphql.String
		}
	} `graphql:"reviews(first: 50)"`

	ReviewThreads struct {
		TotalCount graphql.Int
	} `graphql:"reviewThreads(first: 50)"`

	Comments struct {
		TotalCount graphql.Int
		Nodes      []struct {
			Author *struct {
				Login graphql.String
			} `graphql:"author"`
			Body graphql.String
		}
	} `graphql:"comments(first: 50)"`
}

// FetchMergedPage fetches one page of merged pull requests ordered by
// UPDATED_AT descending. The ordering is the API's, not ours: GitHub cannot
// order the pullRequests connection by merge date, which is why the walker
// above this client must keep paging past empty-looking pages.
func (c *GraphQLClient) FetchMergedPage(ctx context.Context, owner, repo string, opts FetchOptions) (*PullRequestPage, error) {
	var query struct {
		Repository struct {
			PullRequests struct {
				PageInfo struct {
					HasNextPage graphql.Boolean
					EndCursor   graphql.String
				}
				Nodes []prNode
			} `graphql:"pullRequests(first: $first, after: $after, states: $states, orderBy: {field: UPDATED_AT, direction: DESC})"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]interface{}{
		"owner":  graphql.String(owner),
		"repo":   graphql.String(repo),
		"first":  graphql.Int(pageSize),
		"states": []PullRequestState{MergedState},
	}

	// The cursor is null on the first page.
	if opts.After != "" {
		variables["after"] = graphql.NewString(graphql.String(opts.After))
	} else {
		variables["after"] = (*graphql.String)(nil)
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		return nil, c.mapError(err, owner, repo)
	}

	page := &PullRequestPage{
		HasNextPage:  bool(query.Repository.PullRequests.PageInfo.HasNextPage),
		EndCursor:    string(query.Repository.PullRequests.PageInfo.EndCursor),
		PullRequests: make([]PullRequest, 0, len(query.Repository.PullRequests.Nodes)),
	}

	for i := range query.Repository.PullRequests.Nodes {
		page.PullRequests = append(page.PullRequests, convertNode(&query.Repository.PullRequests.Nodes[i]))
	}

	return page, nil
}

// convertNode converts a GraphQL pull request node to the typed domain record.
func convertNode(n *prNode) PullRequest {
	pr := PullRequest{
		Number:            int(n.Number),
		Title:             string(n.Title),
		URL:               string(n.URL),
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
		MergedAt:          n.MergedAt,
		Additions:         int(n.Additions),
		Deletions:         int(n.Deletions),
		ChangedFiles:      int(n.ChangedFiles),
		TotalCommits:      int(n.Commits.TotalCount),
		ReviewThreadCount: int(n.ReviewThreads.TotalCount),
		TotalCommentCount: int(n.Comments.TotalCount),
	}

	// Author is null for deleted accounts; the classifier rejects those.
	if n.Author != nil {
		pr.Author = string(n.Author.Login)
	}

	pr.CommitMessages = make([]string, 0, len(n.Commits.Nodes))
	for _, c := range n.Commits.Nodes {
		pr.CommitMessages = append(pr.CommitMessages, string(c.Commit.Message))
	}

	pr.Reviews = make([]Review, 0, len(n.Reviews.Nodes))
	for _, r := range n.Reviews.Nodes {
		review := Review{
			State:       string(r.State),
			Body:        string(r.Body),
			SubmittedAt: r.SubmittedAt,
		}
		if r.Author != nil {
			review.Author = string(r.Author.Login)
		}
		pr.Reviews = append(pr.Reviews, review)
	}

	pr.Comments = make([]Comment, 0, len(n.Comments.Nodes))
	for _, c := range n.Comments.Nodes {
		comment := Comment{Body: string(c.Body)}
		if c.Author != nil {
			comment.Author = string(c.Author.Login)
		}
		pr.Comments = append(pr.Comments, comment)
	}

	return pr
}

// mapError maps GraphQL errors to our domain errors with actionable messages.
func (c *GraphQLClient) mapError(err error, owner, repo string) error {
	if err == nil {
		return nil
	}

	// Transient failures pass through untranslated so the walker can match
	// on the underlying timeout/504 text and retry.
	if c.inspector.IsTransient(err) {
		return err
	}

	// Check rate limit before auth: a 403 can be either.
	if c.inspector.IsRateLimitError(err) {
		return fmt.Errorf("GitHub API rate limit exceeded. Please wait before retrying: %w", ilerrors.ErrRateLimit)
	}

	if c.inspector.IsAuthError(err) {
		return fmt.Errorf("GitHub API authentication failed. Please provide a valid token via --token flag or GITHUB_TOKEN environment variable: %w", ilerrors.ErrInvalidToken)
	}

	if c.inspector.IsNotFoundError(err) {
		return fmt.Errorf("repository '%s/%s' not found. Please check the repository name and your access permissions: %w", owner, repo, ilerrors.ErrRepoNotFound)
	}

	if c.inspector.IsNetworkError(err) {
		return fmt.Errorf("network error connecting to GitHub API. Please check your internet connection and try again: %w", ilerrors.ErrNetworkFailure)
	}

	return fmt.Errorf("%w: %v", ilerrors.ErrGraphQL, err)
}

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

// authTransport adds the bearer credential and safety limits to HTTP requests.
type authTransport struct {
	token string
	base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())

	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("User-Agent", "prmetrics/"+version.Version)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Apply response size limit (10MB)
	if resp.Body != nil {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      10 * 1024 * 1024,
		}
	}

	return resp, nil
}

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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shurcooL/graphql"

	ilerrors "github.com/impactlens/prmetrics/internal/errors"
)

// newTestClient points a GraphQLClient at a test server.
func newTestClient(serverURL string) *GraphQLClient {
	client := NewGraphQLClient("test-token", "https://api.github.com/graphql")
	httpClient := &http.Client{
		Transport: &authTransport{
			token: "test-token",
			base:  http.DefaultTransport,
		},
	}
	client.client = graphql.NewClient(serverURL+"/graphql", httpClient)
	return client
}

// createGraphQLPR builds a pull request node as the API would return it.
func createGraphQLPR(number int, title string) map[string]interface{} {
	return map[string]interface{}{
		"number":       number,
		"title":        title,
		"url":          "https://github.com/octocat/hello-world/pull/1",
		"createdAt":    "2024-10-01T09:00:00Z",
		"updatedAt":    "2024-10-05T12:00:00Z",
		"mergedAt":     "2024-10-05T12:00:00Z",
		"additions":    10,
		"deletions":    2,
		"changedFiles": 3,
		"author": map[string]interface{}{
			"login": "octocat",
		},
		"commits": map[string]interface{}{
			"totalCount": 2,
			"nodes": []interface{}{
				map[string]interface{}{
					"commit": map[string]interface{}{"message": "feat: add widget"},
				},
				map[string]interface{}{
					"commit": map[string]interface{}{"message": "fix: typo\n\nAssisted-by: Claude"},
				},
			},
		},
		"reviews": map[string]interface{}{
			"totalCount": 1,
			"nodes": []interface{}{
				map[string]interface{}{
					"author":      map[string]interface{}{"login": "reviewer"},
					"state":       "APPROVED",
					"submittedAt": "2024-10-02T10:00:00Z",
					"body":        "Nice cleanup.",
				},
			},
		},
		"reviewThreads": map[string]interface{}{
			"totalCount": 4,
		},
		"comments": map[string]interface{}{
			"totalCount": 1,
			"nodes": []interface{}{
				map[string]interface{}{
					"author": map[string]interface{}{"login": "commenter"},
					"body":   "Does this handle the empty case?",
				},
			},
		},
	}
}

func successResponse(nodes []interface{}, hasNext bool, cursor string) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"repository": map[string]interface{}{
				"pullRequests": map[string]interface{}{
					"nodes": nodes,
					"pageInfo": map[string]interface{}{
						"hasNextPage": hasNext,
						"endCursor":   cursor,
					},
				},
			},
		},
	}
}

func TestGraphQLClient_FetchMergedPage(t *testing.T) {
	var gotRequest struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("expected Bearer test-token, got %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		json.NewEncoder(w).Encode(successResponse([]interface{}{
			createGraphQLPR(1, "First PR"),
		}, true, "cursor-1"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	page, err := client.FetchMergedPage(context.Background(), "octocat", "hello-world", FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Request shape: page size, merged-only states, null first-page cursor.
	if got := gotRequest.Variables["first"]; got != float64(25) {
		t.Errorf("first = %v, want 25", got)
	}
	states, ok := gotRequest.Variables["states"].([]interface{})
	if !ok || len(states) != 1 || states[0] != "MERGED" {
		t.Errorf("states = %v, want [MERGED]", gotRequest.Variables["states"])
	}
	if got := gotRequest.Variables["after"]; got != nil {
		t.Errorf("after = %v, want null on first page", got)
	}

	if !page.HasNextPage {
		t.Error("HasNextPage = false, want true")
	}
	if page.EndCursor != "cursor-1" {
		t.Errorf("EndCursor = %s, want cursor-1", page.EndCursor)
	}
	if len(page.PullRequests) != 1 {
		t.Fatalf("got %d pull requests, want 1", len(page.PullRequests))
	}

	pr := page.PullRequests[0]
	if pr.Number != 1 {
		t.Errorf("Number = %d, want 1", pr.Number)
	}
	if pr.Title != "First PR" {
		t.Errorf("Title = %s, want First PR", pr.Title)
	}
	if pr.Author != "octocat" {
		t.Errorf("Author = %s, want octocat", pr.Author)
	}
	if pr.MergedAt == nil {
		t.Fatal("MergedAt = nil, want timestamp")
	}
	wantMerged := time.Date(2024, 10, 5, 12, 0, 0, 0, time.UTC)
	if !pr.MergedAt.Equal(wantMerged) {
		t.Errorf("MergedAt = %v, want %v", pr.MergedAt, wantMerged)
	}
	if pr.TotalCommits != 2 {
		t.Errorf("TotalCommits = %d, want 2", pr.TotalCommits)
	}
	if len(pr.CommitMessages) != 2 {
		t.Errorf("got %d commit messages, want 2", len(pr.CommitMessages))
	}
	if pr.ReviewThreadCount != 4 {
		t.Errorf("ReviewThreadCount = %d, want 4", pr.ReviewThreadCount)
	}
	if len(pr.Reviews) != 1 || pr.Reviews[0].Author != "reviewer" || pr.Reviews[0].State != "APPROVED" {
		t.Errorf("Reviews = %+v, want one APPROVED by reviewer", pr.Reviews)
	}
	if len(pr.Comments) != 1 || pr.Comments[0].Author != "commenter" {
		t.Errorf("Comments = %+v, want one by commenter", pr.Comments)
	}
	if pr.Additions != 10 || pr.Deletions != 2 || pr.ChangedFiles != 3 {
		t.Errorf("diff stats = %d/%d/%d, want 10/2/3", pr.Additions, pr.Deletions, pr.ChangedFiles)
	}
}

func TestGraphQLClient_FetchMergedPageSendsCursor(t *testing.T) {
	var gotAfter interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotAfter = req.Variables["after"]

		json.NewEncoder(w).Encode(successResponse(nil, false, ""))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.FetchMergedPage(context.Background(), "octocat", "hello-world", FetchOptions{After: "cursor-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAfter != "cursor-1" {
		t.Errorf("after = %v, want cursor-1", gotAfter)
	}
}

func TestGraphQLClient_FetchMergedPageNullAuthor(t *testing.T) {
	node := createGraphQLPR(9, "Ghost PR")
	node["author"] = nil

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(successResponse([]interface{}{node}, false, ""))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).FetchMergedPage(context.Background(), "octocat", "hello-world", FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.PullRequests) != 1 {
		t.Fatalf("got %d pull requests, want 1", len(page.PullRequests))
	}
	if page.PullRequests[0].Author != "" {
		t.Errorf("Author = %q, want empty for deleted account", page.PullRequests[0].Author)
	}
}

func TestGraphQLClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		responseCode int
		response     interface{}
		wantErr      error
	}{
		{
			name:         "authentication failure",
			responseCode: http.StatusUnauthorized,
			response:     map[string]interface{}{"message": "Bad credentials"},
			wantErr:      ilerrors.ErrInvalidToken,
		},
		{
			name:         "rate limited",
			responseCode: http.StatusTooManyRequests,
			response:     map[string]interface{}{"message": "API rate limit exceeded"},
			wantErr:      ilerrors.ErrRateLimit,
		},
		{
			name:         "repository not found",
			responseCode: http.StatusOK,
			response: map[string]interface{}{
				"errors": []interface{}{
					map[string]interface{}{"message": "Could not resolve to a Repository with the name 'octocat/gone'."},
				},
			},
			wantErr: ilerrors.ErrRepoNotFound,
		},
		{
			name:         "graphql error payload",
			responseCode: http.StatusOK,
			response: map[string]interface{}{
				"errors": []interface{}{
					map[string]interface{}{"message": "Something went wrong while executing your query."},
				},
			},
			wantErr: ilerrors.ErrGraphQL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.responseCode)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchMergedPage(context.Background(), "octocat", "gone", FetchOptions{})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// A 504 must surface untranslated so the retry loop can recognize it.
func TestGraphQLClient_GatewayTimeoutPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream timed out", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchMergedPage(context.Background(), "octocat", "hello-world", FetchOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, sentinel := range []error{ilerrors.ErrGraphQL, ilerrors.ErrNetworkFailure, ilerrors.ErrInvalidToken} {
		if errors.Is(err, sentinel) {
			t.Errorf("504 was translated to %v, want raw error", sentinel)
		}
	}
}

package giterror

import (
	"errors"
	"fmt"
	"testing"
)

func TestGitHubErrorInspector_IsAuthError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "401 unauthorized",
			err:  errors.New("401 Unauthorized"),
			want: true,
		},
		{
			name: "403 forbidden",
			err:  errors.New("403 Forbidden"),
			want: true,
		},
		{
			name: "bad credentials",
			err:  errors.New("Bad credentials"),
			want: true,
		},
		{
			name: "wrapped auth error",
			err:  fmt.Errorf("failed to query: %w", errors.New("401 Unauthorized")),
			want: true,
		},
		{
			name: "not an auth error",
			err:  errors.New("something went wrong"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGitHubErrorInspector_IsNotFoundError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "404 status",
			err:  errors.New("404 Not Found"),
			want: true,
		},
		{
			name: "graphql repository resolution",
			err:  errors.New("Could not resolve to a Repository with the name 'acme/gone'."),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsNotFoundError(tt.err); got != tt.want {
				t.Errorf("IsNotFoundError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGitHubErrorInspector_IsRateLimitError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "rate limit message",
			err:  errors.New("API rate limit exceeded for user"),
			want: true,
		},
		{
			name: "429 status",
			err:  errors.New("429 Too Many Requests"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("404 Not Found"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGitHubErrorInspector_IsNetworkError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "connection refused",
			err:  errors.New("dial tcp 140.82.112.6:443: connect: connection refused"),
			want: true,
		},
		{
			name: "dns failure",
			err:  errors.New("no such host"),
			want: true,
		},
		{
			name: "tls handshake",
			err:  errors.New("TLS handshake timeout"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("401 Unauthorized"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsNetworkError(tt.err); got != tt.want {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGitHubErrorInspector_IsTransient(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "504 gateway timeout",
			err:  errors.New("non-200 OK status code: 504 Gateway Timeout body: \"\""),
			want: true,
		},
		{
			name: "client timeout",
			err:  errors.New("net/http: request canceled (Client.Timeout exceeded while awaiting headers)"),
			want: true,
		},
		{
			name: "context deadline",
			err:  errors.New("Post \"https://api.github.com/graphql\": context deadline exceeded"),
			want: true,
		},
		{
			name: "wrapped timeout",
			err:  fmt.Errorf("fetch page: %w", errors.New("net/http: request timeout")),
			want: true,
		},
		{
			name: "rate limit is not transient",
			err:  errors.New("API rate limit exceeded"),
			want: false,
		},
		{
			name: "auth error is not transient",
			err:  errors.New("401 Unauthorized"),
			want: false,
		},
		{
			name: "500 is not transient",
			err:  errors.New("non-200 OK status code: 500 Internal Server Error body: \"\""),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

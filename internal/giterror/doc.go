// Package giterror classifies errors returned by the GitHub GraphQL API and
// the HTTP layer beneath it. The GraphQL client library surfaces failures as
// opaque wrapped errors, so classification is string-based by necessity.
//
// The distinction that matters most to callers is IsTransient: only request
// timeouts and HTTP 504 responses qualify for retry with backoff. Every
// other failure (auth, not-found, rate limit, GraphQL error payloads) aborts
// the operation on first occurrence.
package giterror

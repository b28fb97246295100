// Package github implements the source-side client of the sync engine: the
// paginated starred-repository listing (star+json media type, so entries
// carry the star timestamp) and per-repo README retrieval.
//
// README fetches never fail the caller: a 404, a decode problem, or retry
// exhaustion all degrade to empty content with a logged warning, because a
// missing README only means the summarizer gets less context.
//
// All requests go through the shared retry policy; GitHub reports rate
// limiting as 429 or 403, and only those are retried.
package github

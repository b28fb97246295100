// Package retry provides the single retry primitive used for every outbound
// remote call in the application.
//
// All three services (GitHub, OpenAI, Notion) share the same attempt budget
// and exponential backoff; only the classification of which failures are
// retryable differs per service. Centralizing the loop keeps that behavior
// uniform and testable in isolation instead of duplicating backoff code at
// each call site.
//
// # Usage
//
//	policy := retry.NewPolicy(retry.NotionRetryable)
//	page, err := retry.Do(ctx, policy, func() (Page, error) {
//	    return client.fetchPage(ctx, cursor)
//	})
//
// Failures are classified by HTTP status via StatusError; clients wrap any
// non-2xx response in one so the predicates can inspect the code.
package retry

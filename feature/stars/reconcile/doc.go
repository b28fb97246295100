// Package reconcile computes the per-pass classification of starred repos
// against the store snapshot: which repos are new, which existing pages get
// re-summarized, which are skipped, and which pages belong to repos that are
// no longer starred.
//
// Classify is a pure function, which keeps the engine's only decision logic
// fully deterministic and trivially testable without any remote service.
package reconcile

// Package sync coordinates one full synchronization pass of starred GitHub
// repositories into the Notion database.
//
// A pass splits into a read-only Plan (fetch the starred list, snapshot the
// store, classify) and a mutating Execute (bounded worker pool over the
// processing units, then the archive phase). Keeping the two apart means a
// preview or dry run is just a plan that never executes.
//
// # Concurrency model
//
// Execute drains the unit list with a fixed-size pool; each unit runs
// end-to-end (README fetch, summary, upsert) on one worker with no
// cross-unit coordination beyond the atomic counters. A failed unit is
// logged and counted but never cancels its siblings. Archiving runs strictly
// after the pool barrier so a transient summary failure can never race the
// same repo's archive decision.
package sync

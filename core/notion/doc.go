// Package notion implements the store-side client of the sync engine against
// the Notion API: the paginated snapshot read, page create/update/archive,
// and the one-time database creation used by setup.
//
// The database schema is fixed (Name, Description, Language, Topics, Stars,
// AI Summary, Owner, Last Synced) and the property mapping applies hard caps:
// description and summary at 2000 characters, topics at 10 options.
//
// Notion enforces strict rate limits, so every call runs under the shared
// retry policy with 429 as the only retryable status.
package notion

// Package summarize generates the AI summaries attached to synced
// repositories, using any OpenAI-compatible chat-completions endpoint.
//
// The prompt template is fixed; only the output language is configurable.
// Summarize never returns an error: transient failures (429 and 5xx) retry
// under the shared policy, and anything else degrades to an empty summary,
// leaving the write/skip decision to the sync coordinator. Token usage is
// logged per call as a cost observation.
package summarize

// Package llm provides an OpenRouter-compatible chat client that asks for
// JSON-only completions.
//
// It backs the optional lyric correction pass: the corrector sends numbered
// cue texts and receives replacement text as JSON. The client never sees
// timing data.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive the raw JSON reply.
// Client.CompleteInto: CompleteJSON plus DecodeLLMJSON into a target.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). Context cancellation aborts retries immediately.
package llm

// Package llm provides the chat completion client used to write scripts and
// to extract footage query windows.
//
// Client speaks the OpenAI-compatible chat completion protocol over plain
// HTTP and defaults to OpenRouter. FromConfig returns it, or the openai SDK
// client when llm.provider is "openai"; both satisfy Completer.
//
// # Retry Behaviour
//
// Client retries on HTTP 408/429/5xx, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default), honouring Retry-After. Context cancellation aborts retries
// immediately. Final errors carry services.ErrTransient or, for 401/402/403,
// services.ErrConfiguration.
//
// # Decoding
//
// Models wrap JSON in code fences or prose often enough that callers should
// decode replies with DecodeJSON rather than json.Unmarshal.
package llm

// Package openai adapts the official openai-go SDK to the interfaces the
// pipeline consumes.
//
// Client.CompleteJSON and Client.CompleteSchema serve the script writer and
// the query-window extractor when llm.provider is "openai"; CompleteSchema
// sends a strict JSON schema reflected with GenerateSchema. Client also
// implements clips.ImageGenerator for imagegen.backend = "openai".
//
// The SDK performs its own retries. Errors that survive them are tagged
// with services.ErrTransient (429, 5xx), services.ErrConfiguration (401,
// 403) or services.ErrTimeout.
package openai

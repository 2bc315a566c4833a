// Package scripting turns a queued topic into the narration script.
//
// The Generator prompts the configured LLM for a short fact-style script and
// rejects replies that are empty, far over length or unrelated to the topic.
// The Handler wraps it as the first workflow stage and stores the script on
// the queue item.
package scripting

package scripting

import (
	"context"
	"fmt"
	"strings"

	"scenecast/internal/services"
	"scenecast/internal/services/llm"
	"scenecast/internal/textutil"
)

const (
	// MaxWords caps the script at roughly fifty seconds of narration.
	MaxWords = 140
	// hardWordLimit is where an over-long reply becomes a failure instead of
	// being trimmed.
	hardWordLimit = 2 * MaxWords
)

const systemPrompt = `You write scripts for short vertical and horizontal videos about facts.
Given a topic, write a script of at most 140 words (about 50 seconds when read aloud).
Open with a hook, then give surprising, accurate facts about the topic in plain spoken language.
Do not include stage directions, emojis, hashtags, scene descriptions or speaker labels.
Respond with JSON only: {"script": "<the script>"}`

type scriptReply struct {
	Script string `json:"script"`
}

// Generator writes narration scripts with an LLM.
type Generator struct {
	llm llm.Completer
}

// NewGenerator wraps completer.
func NewGenerator(completer llm.Completer) *Generator {
	return &Generator{llm: completer}
}

// Generate returns the script for topic.
func (g *Generator) Generate(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", services.Wrap(services.ErrValidation, "scripting", "generate", "topic is empty", nil)
	}
	if g.llm == nil {
		return "", services.Wrap(services.ErrConfiguration, "scripting", "generate", "llm client unavailable", nil)
	}

	raw, err := g.llm.CompleteJSON(ctx, systemPrompt, "Topic: "+topic)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "scripting", "llm complete", "script request failed", err)
	}
	var reply scriptReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "scripting", "decode reply", "llm returned malformed script JSON", err)
	}
	return CheckScript(topic, reply.Script)
}

// CheckScript normalizes whitespace and enforces the length and topic
// checks. Scripts slightly over MaxWords are trimmed at a sentence boundary.
func CheckScript(topic, script string) (string, error) {
	words := strings.Fields(script)
	if len(words) == 0 {
		return "", services.Wrap(services.ErrValidation, "scripting", "check script", "llm returned an empty script", nil)
	}
	if len(words) > hardWordLimit {
		return "", services.Wrap(services.ErrValidation, "scripting", "check script",
			fmt.Sprintf("script has %d words, limit is %d", len(words), MaxWords), nil)
	}
	script = strings.Join(words, " ")
	if len(words) > MaxWords {
		script = trimToSentence(words[:MaxWords])
	}
	if !textutil.SharesTerms(topic, script) {
		return "", services.Wrap(services.ErrValidation, "scripting", "check script",
			fmt.Sprintf("script does not mention the topic %q", topic), nil)
	}
	return script, nil
}

func trimToSentence(words []string) string {
	text := strings.Join(words, " ")
	if idx := strings.LastIndexAny(text, ".!?"); idx > len(text)/2 {
		return text[:idx+1]
	}
	return text
}

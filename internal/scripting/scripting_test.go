package scripting_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scenecast/internal/queue"
	"scenecast/internal/scripting"
	"scenecast/internal/services"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _ string, user string) (string, error) {
	f.prompt = user
	return f.reply, f.err
}

func TestGenerateReturnsScript(t *testing.T) {
	completer := &fakeCompleter{reply: "```json\n{\"script\": \"Octopuses have three hearts.  Each octopus arm can taste.\"}\n```"}
	gen := scripting.NewGenerator(completer)

	script, err := gen.Generate(context.Background(), "Octopus facts")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if script != "Octopuses have three hearts. Each octopus arm can taste." {
		t.Fatalf("unexpected script %q", script)
	}
	if !strings.Contains(completer.prompt, "Octopus facts") {
		t.Fatalf("topic missing from prompt: %q", completer.prompt)
	}
}

func TestGenerateRejectsOffTopicScript(t *testing.T) {
	gen := scripting.NewGenerator(&fakeCompleter{reply: `{"script": "Bananas are berries."}`})
	_, err := gen.Generate(context.Background(), "volcanoes")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatal("off-topic scripts should go to review")
	}
}

func TestGenerateWrapsLLMFailure(t *testing.T) {
	gen := scripting.NewGenerator(&fakeCompleter{err: errors.New("503")})
	_, err := gen.Generate(context.Background(), "volcanoes")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestCheckScriptLength(t *testing.T) {
	sentence := "Volcanoes shape the planet. "
	long := strings.Repeat(sentence, 40) // 160 words
	script, err := scripting.CheckScript("volcanoes", long)
	if err != nil {
		t.Fatalf("CheckScript: %v", err)
	}
	if n := len(strings.Fields(script)); n > scripting.MaxWords {
		t.Fatalf("expected trimmed script, got %d words", n)
	}
	if !strings.HasSuffix(script, ".") {
		t.Fatalf("expected sentence boundary, got %q", script[len(script)-20:])
	}

	tooLong := strings.Repeat(sentence, 100)
	if _, err := scripting.CheckScript("volcanoes", tooLong); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for runaway script, got %v", err)
	}
	if _, err := scripting.CheckScript("volcanoes", "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty script, got %v", err)
	}
}

func TestHandlerStoresScript(t *testing.T) {
	gen := scripting.NewGenerator(&fakeCompleter{reply: `{"script": "Volcanoes build islands."}`})
	handler := scripting.NewHandler(gen, nil, nil)
	item := &queue.Item{ID: 1, Topic: "volcanoes"}

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.ScriptText != "Volcanoes build islands." || item.ProgressPercent != 100 {
		t.Fatalf("unexpected item state: %#v", item)
	}
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %#v", health)
	}
}

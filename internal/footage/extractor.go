package footage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"scenecast/internal/clips"
	"scenecast/internal/services"
	"scenecast/internal/services/llm"
	"scenecast/internal/services/openai"
)

const extractorSystemPrompt = `You pick background footage for a narrated short video.
You receive the script and its timed captions as [[start, end], "text"] pairs in seconds.
Split the whole caption timeline into consecutive time windows of roughly 2 to 4 seconds.
For each window give exactly three visual search keywords for a stock video site.
Keywords must be concrete and visual (e.g. "erupting volcano", not "geology"), in English, one to two words each.
Windows must stay within the caption timeline, must not overlap and should leave no gaps.
Respond with JSON only, in the form {"windows": [[[t1, t2], ["keyword1", "keyword2", "keyword3"]], ...]}`

const schemaSystemSuffix = `
Return each window as an object {"start": t1, "end": t2, "terms": [...]} inside "windows".`

// windowObject is the structured-output form of a window.
type windowObject struct {
	Start float64  `json:"start" jsonschema:"description=Window start in seconds"`
	End   float64  `json:"end" jsonschema:"description=Window end in seconds"`
	Terms []string `json:"terms" jsonschema:"description=Visual search keywords"`
}

type windowsReply struct {
	Windows []windowObject `json:"windows"`
}

// Extractor is the LLM-backed clips.WindowExtractor.
type Extractor struct {
	llm llm.Completer
}

// NewExtractor wraps completer. A completer that also implements
// llm.SchemaCompleter gets a JSON schema for its reply.
func NewExtractor(completer llm.Completer) *Extractor {
	return &Extractor{llm: completer}
}

// ExtractQueryWindows implements clips.WindowExtractor.
func (e *Extractor) ExtractQueryWindows(ctx context.Context, script string, captions []clips.CaptionSegment) ([]clips.QueryWindow, error) {
	if e.llm == nil {
		return nil, services.Wrap(services.ErrConfiguration, "footage", "extract windows", "llm client unavailable", nil)
	}
	user, err := extractorPrompt(script, captions)
	if err != nil {
		return nil, err
	}

	var raw string
	if schemaLLM, ok := e.llm.(llm.SchemaCompleter); ok {
		raw, err = schemaLLM.CompleteSchema(ctx, "query_windows", extractorSystemPrompt+schemaSystemSuffix, user, openai.GenerateSchema[windowsReply]())
	} else {
		raw, err = e.llm.CompleteJSON(ctx, extractorSystemPrompt, user)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "footage", "llm complete", "window request failed", err)
	}
	return ParseWindows(raw)
}

func extractorPrompt(script string, captions []clips.CaptionSegment) (string, error) {
	timed := make([][2]any, 0, len(captions))
	for _, c := range captions {
		timed = append(timed, [2]any{[2]float64{round2(c.Start), round2(c.End)}, c.Text})
	}
	encoded, err := json.Marshal(timed)
	if err != nil {
		return "", fmt.Errorf("encode captions: %w", err)
	}
	return fmt.Sprintf("Script:\n%s\n\nTimed captions:\n%s", strings.TrimSpace(script), encoded), nil
}

func round2(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}

// ParseWindows decodes extractor output. It accepts a bare array or a
// {"windows": ...} wrapper, and each window as [[t1, t2], [terms...]] or
// {"start", "end", "terms"}. Code fences are tolerated. Bounds are not
// checked here; clips.NormalizeWindows does that.
func ParseWindows(raw string) ([]clips.QueryWindow, error) {
	var payload json.RawMessage
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return nil, &clips.MalformedWindowError{Index: -1, Reason: "reply is not JSON: " + err.Error()}
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '{' {
		var wrapper struct {
			Windows json.RawMessage `json:"windows"`
		}
		if err := json.Unmarshal(payload, &wrapper); err != nil || len(wrapper.Windows) == 0 {
			return nil, &clips.MalformedWindowError{Index: -1, Reason: `reply object has no "windows" array`}
		}
		payload = wrapper.Windows
	}

	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, &clips.MalformedWindowError{Index: -1, Reason: "windows are not an array"}
	}
	windows := make([]clips.QueryWindow, 0, len(items))
	for i, item := range items {
		w, err := parseWindow(item)
		if err != nil {
			return nil, &clips.MalformedWindowError{Index: i, Reason: err.Error()}
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func parseWindow(item json.RawMessage) (clips.QueryWindow, error) {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '{' {
		var obj struct {
			Start flexFloat `json:"start"`
			End   flexFloat `json:"end"`
			Terms []string  `json:"terms"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return clips.QueryWindow{}, fmt.Errorf("decode window object: %w", err)
		}
		return clips.QueryWindow{Start: float64(obj.Start), End: float64(obj.End), Terms: obj.Terms}, nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
		return clips.QueryWindow{}, fmt.Errorf("window must be [[start, end], [terms]]")
	}
	var bounds []flexFloat
	if err := json.Unmarshal(pair[0], &bounds); err != nil || len(bounds) != 2 {
		return clips.QueryWindow{}, fmt.Errorf("window bounds must be [start, end]")
	}
	var terms []string
	if err := json.Unmarshal(pair[1], &terms); err != nil {
		var single string
		if json.Unmarshal(pair[1], &single) != nil {
			return clips.QueryWindow{}, fmt.Errorf("window terms must be a list of strings")
		}
		terms = []string{single}
	}
	return clips.QueryWindow{Start: float64(bounds[0]), End: float64(bounds[1]), Terms: terms}, nil
}

// flexFloat accepts 1.5 and "1.5".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*f = flexFloat(n)
	return nil
}

package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	15:04:05 INFO  [#12 footage] clips: window resolved start=0 end=5
//
// Component, item and stage are lifted into the prefix; the remaining
// attributes are rendered by slog's text handler.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	addSource bool
	groups    []string
	attrs     []slog.Attr // flattened, keys already dotted with groups
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = flatten(append([]slog.Attr(nil), h.attrs...), h.groups, attrs...)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// flatten appends attrs to dst, expanding groups into dotted keys.
func flatten(dst []slog.Attr, groups []string, attrs ...slog.Attr) []slog.Attr {
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		switch {
		case a.Equal(slog.Attr{}):
		case a.Value.Kind() == slog.KindGroup:
			inner := groups
			if a.Key != "" {
				inner = append(append([]string(nil), groups...), a.Key)
			}
			dst = flatten(dst, inner, a.Value.Group()...)
		default:
			if len(groups) > 0 {
				a.Key = strings.Join(groups, ".") + "." + a.Key
			}
			dst = append(dst, a)
		}
	}
	return dst
}

// dropBuiltins leaves only user attributes in the text handler output.
func dropBuiltins(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey:
			return slog.Attr{}
		}
	}
	if err, ok := a.Value.Any().(error); ok {
		a.Value = slog.StringValue(err.Error())
	}
	if a.Value.Kind() == slog.KindDuration {
		a.Value = slog.StringValue(a.Value.Duration().Round(time.Millisecond).String())
	}
	return a
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	all := h.attrs[:len(h.attrs):len(h.attrs)]
	record.Attrs(func(a slog.Attr) bool {
		all = flatten(all, h.groups, a)
		return true
	})

	var component, tag []string
	rest := slog.NewRecord(time.Time{}, record.Level, "", 0)
	for _, a := range all {
		switch a.Key {
		case FieldComponent:
			component = append(component, a.Value.String())
		case FieldItemID:
			tag = append([]string{"#" + a.Value.String()}, tag...)
		case FieldStage:
			tag = append(tag, a.Value.String())
		default:
			rest.AddAttrs(a)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var line bytes.Buffer
	fmt.Fprintf(&line, "%s %-5s ", ts.Local().Format(time.TimeOnly), levelLabel(record.Level))
	if len(tag) > 0 {
		fmt.Fprintf(&line, "[%s] ", strings.Join(tag, " "))
	}
	if len(component) > 0 {
		line.WriteString(component[len(component)-1] + ": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		line.WriteString(msg)
	} else {
		line.WriteString("(no message)")
	}
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&line, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}

	if rest.NumAttrs() > 0 {
		var kv bytes.Buffer
		text := slog.NewTextHandler(&kv, &slog.HandlerOptions{ReplaceAttr: dropBuiltins})
		if err := text.Handle(context.Background(), rest); err != nil {
			return err
		}
		line.WriteByte(' ')
		line.Write(bytes.TrimSpace(kv.Bytes()))
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(line.Bytes())
	return err
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

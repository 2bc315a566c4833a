package queue

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// column binds one queue_items column to a field of Item. The returned value
// works both as a Scan destination and as a statement argument.
type column struct {
	name   string
	field  func(*Item) any
	frozen bool // written on insert only
}

var itemColumns = []column{
	{name: "id", field: func(i *Item) any { return &i.ID }, frozen: true},
	{name: "request_id", field: func(i *Item) any { return text{&i.RequestID} }, frozen: true},
	{name: "topic", field: func(i *Item) any { return text{&i.Topic} }},
	{name: "voice", field: func(i *Item) any { return text{&i.Voice} }},
	{name: "orientation", field: func(i *Item) any { return text{&i.Orientation} }},
	{name: "clip_source", field: func(i *Item) any { return text{&i.ClipSource} }},
	{name: "status", field: func(i *Item) any { return text{(*string)(&i.Status)} }},
	{name: "script_text", field: func(i *Item) any { return text{&i.ScriptText} }},
	{name: "audio_file", field: func(i *Item) any { return text{&i.AudioFile} }},
	{name: "captions_json", field: func(i *Item) any { return text{&i.CaptionsJSON} }},
	{name: "captions_file", field: func(i *Item) any { return text{&i.CaptionsFile} }},
	{name: "duration_seconds", field: func(i *Item) any { return number{&i.DurationSeconds} }},
	{name: "windows_json", field: func(i *Item) any { return text{&i.WindowsJSON} }},
	{name: "timeline_json", field: func(i *Item) any { return text{&i.TimelineJSON} }},
	{name: "output_file", field: func(i *Item) any { return text{&i.OutputFile} }},
	{name: "error_message", field: func(i *Item) any { return text{&i.ErrorMessage} }},
	{name: "created_at", field: func(i *Item) any { return stamp{&i.CreatedAt} }, frozen: true},
	{name: "updated_at", field: func(i *Item) any { return stamp{&i.UpdatedAt} }},
	{name: "progress_stage", field: func(i *Item) any { return text{&i.ProgressStage} }},
	{name: "progress_percent", field: func(i *Item) any { return number{&i.ProgressPercent} }},
	{name: "progress_message", field: func(i *Item) any { return text{&i.ProgressMessage} }},
	{name: "last_heartbeat", field: func(i *Item) any { return optStamp{&i.LastHeartbeat} }},
	{name: "needs_review", field: func(i *Item) any { return flag{&i.NeedsReview} }},
	{name: "review_reason", field: func(i *Item) any { return text{&i.ReviewReason} }},
}

var (
	columnList = func() string {
		names := make([]string, len(itemColumns))
		for k, c := range itemColumns {
			names[k] = c.name
		}
		return strings.Join(names, ", ")
	}()
	selectItems = "SELECT " + columnList + " FROM queue_items"
	insertItem  = func() string {
		names := make([]string, 0, len(itemColumns))
		for _, c := range itemColumns[1:] {
			names = append(names, c.name)
		}
		return "INSERT INTO queue_items (" + strings.Join(names, ", ") + ") VALUES (" + placeholders(len(names)) + ")"
	}()
	updateItem = func() string {
		sets := make([]string, 0, len(itemColumns))
		for _, c := range itemColumns {
			if !c.frozen {
				sets = append(sets, c.name+" = ?")
			}
		}
		return "UPDATE queue_items SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	}()
)

func insertArgs(item *Item) []any {
	args := make([]any, 0, len(itemColumns)-1)
	for _, c := range itemColumns[1:] {
		args = append(args, c.field(item))
	}
	return args
}

func updateArgs(item *Item) []any {
	args := make([]any, 0, len(itemColumns))
	for _, c := range itemColumns {
		if !c.frozen {
			args = append(args, c.field(item))
		}
	}
	return append(args, item.ID)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(row rowScanner) (*Item, error) {
	item := &Item{}
	dest := make([]any, len(itemColumns))
	for k, c := range itemColumns {
		dest[k] = c.field(item)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return item, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anySlice[T any](values []T) []any {
	out := make([]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// text stores "" as NULL.
type text struct{ p *string }

func (c text) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.p = ""
	case string:
		*c.p = v
	case []byte:
		*c.p = string(v)
	default:
		return fmt.Errorf("text column: unexpected %T", src)
	}
	return nil
}

func (c text) Value() (driver.Value, error) {
	if *c.p == "" {
		return nil, nil
	}
	return *c.p, nil
}

type number struct{ p *float64 }

func (c number) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.p = 0
	case float64:
		*c.p = v
	case int64:
		*c.p = float64(v)
	default:
		return fmt.Errorf("number column: unexpected %T", src)
	}
	return nil
}

func (c number) Value() (driver.Value, error) { return *c.p, nil }

type flag struct{ p *bool }

func (c flag) Scan(src any) error {
	v, ok := src.(int64)
	if src != nil && !ok {
		return fmt.Errorf("flag column: unexpected %T", src)
	}
	*c.p = v != 0
	return nil
}

func (c flag) Value() (driver.Value, error) {
	if *c.p {
		return int64(1), nil
	}
	return int64(0), nil
}

// stampLayout keeps nine fractional digits so text order matches time order.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamps are RFC 3339 text in UTC.
type stamp struct{ p *time.Time }

func (c stamp) Scan(src any) error {
	var raw string
	if err := (text{&raw}).Scan(src); err != nil {
		return err
	}
	*c.p = parseStamp(raw)
	return nil
}

func (c stamp) Value() (driver.Value, error) {
	if c.p.IsZero() {
		return nil, nil
	}
	return c.p.UTC().Format(stampLayout), nil
}

type optStamp struct{ p **time.Time }

func (c optStamp) Scan(src any) error {
	var t time.Time
	if err := (stamp{&t}).Scan(src); err != nil {
		return err
	}
	*c.p = nil
	if !t.IsZero() {
		*c.p = &t
	}
	return nil
}

func (c optStamp) Value() (driver.Value, error) {
	if *c.p == nil {
		return nil, nil
	}
	return stamp{*c.p}.Value()
}

// parseStamp also accepts SQLite's CURRENT_TIMESTAMP layout; anything else
// reads as the zero time.
func parseStamp(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

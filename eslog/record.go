package eslog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Levels bound by Info, Warn and Error.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Reserved record fields.
const (
	FieldLevel     = "level"
	FieldMessage   = "message"
	FieldTimestamp = "timestamp"
)

// TimestampLayout is the ISO-8601 form of the timestamp field.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is the canonical document written to the store.
type Record map[string]any

// Level returns the level field.
func (r Record) Level() string {
	s, _ := r[FieldLevel].(string)
	return s
}

// Message returns the message field.
func (r Record) Message() string {
	s, _ := r[FieldMessage].(string)
	return s
}

// Timestamp returns the timestamp field.
func (r Record) Timestamp() string {
	s, _ := r[FieldTimestamp].(string)
	return s
}

// FormatTimestamp renders t as stored in the timestamp field, in UTC with
// millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Normalize builds the record for a log call made at now.
//
// Text payloads (strings, errors, fmt.Stringers) become
// {message, level, timestamp}. Structured payloads (maps, Records, structs
// and JSON object bytes) are shallow-copied and level and timestamp are set
// last, replacing any caller values for those two keys. The payload itself
// is never modified. Anything else is logged as its JSON text.
func Normalize(level string, payload any, now time.Time) Record {
	fields, ok := structured(payload)
	if !ok {
		return Record{
			FieldMessage:   text(payload),
			FieldLevel:     level,
			FieldTimestamp: FormatTimestamp(now),
		}
	}

	rec := make(Record, len(fields)+2)
	for k, v := range fields {
		rec[k] = v
	}
	rec[FieldLevel] = level
	rec[FieldTimestamp] = FormatTimestamp(now)
	return rec
}

// structured returns the top-level fields of an object payload. Callers
// copy the result before writing to it.
func structured(payload any) (map[string]any, bool) {
	switch p := payload.(type) {
	case nil, string, error, fmt.Stringer:
		return nil, false
	case Record:
		return p, true
	case map[string]any:
		return p, true
	case map[string]string:
		m := make(map[string]any, len(p))
		for k, v := range p {
			m[k] = v
		}
		return m, true
	case json.RawMessage:
		return decodeObject(p)
	case []byte:
		return decodeObject(p)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	return decodeObject(raw)
}

func decodeObject(raw []byte) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func text(payload any) string {
	switch p := payload.(type) {
	case string:
		return p
	case error:
		return p.Error()
	case fmt.Stringer:
		return p.String()
	case []byte:
		return string(p)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(raw)
}

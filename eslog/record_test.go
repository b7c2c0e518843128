package eslog

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Text(t *testing.T) {
	rec := Normalize(LevelInfo, "Hello World", testNow)

	assert.Equal(t, Record{
		"message":   "Hello World",
		"level":     "INFO",
		"timestamp": "2024-03-05T10:00:00.000Z",
	}, rec)
}

func TestNormalize_Structured(t *testing.T) {
	payload := map[string]any{"user": "bob", "action": "login"}
	rec := Normalize(LevelWarn, payload, testNow)

	assert.Equal(t, "bob", rec["user"])
	assert.Equal(t, "login", rec["action"])
	assert.Equal(t, "WARN", rec.Level())
	assert.Equal(t, "2024-03-05T10:00:00.000Z", rec.Timestamp())
	_, hasMessage := rec["message"]
	assert.False(t, hasMessage)
}

func TestNormalize_OverridesReservedKeysWithoutMutating(t *testing.T) {
	payload := map[string]any{"level": "DEBUG", "timestamp": "yesterday", "k": 1}
	rec := Normalize(LevelError, payload, testNow)

	assert.Equal(t, "ERROR", rec.Level())
	assert.Equal(t, "2024-03-05T10:00:00.000Z", rec.Timestamp())
	assert.Equal(t, 1, rec["k"])

	assert.Equal(t, map[string]any{"level": "DEBUG", "timestamp": "yesterday", "k": 1}, payload)
}

func TestNormalize_PayloadKinds(t *testing.T) {
	type event struct {
		User  string `json:"user"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name    string
		payload any
		field   string
		want    any
	}{
		{"struct", event{User: "amy", Count: 2}, "user", "amy"},
		{"json bytes", []byte(`{"user":"amy"}`), "user", "amy"},
		{"raw message", json.RawMessage(`{"user":"amy"}`), "user", "amy"},
		{"string map", map[string]string{"user": "amy"}, "user", "amy"},
		{"error", errors.New("boom"), "message", "boom"},
		{"number", 42, "message", "42"},
		{"non-object bytes", []byte("plain"), "message", "plain"},
		{"nil", nil, "message", "null"},
		{"slice", []string{"a", "b"}, "message", `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(LevelInfo, tt.payload, testNow)
			assert.Equal(t, tt.want, rec[tt.field])
			assert.Equal(t, "INFO", rec.Level())
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	local := time.Date(2024, 3, 5, 11, 30, 0, 123456789, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-03-05T10:30:00.123Z", FormatTimestamp(local))
}

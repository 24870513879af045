package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSONInProd(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "prod", "debug")
	log.Debug().Str("session_id", "abc").Msg("opened")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q", buf.String())
	}
	if line["session_id"] != "abc" || line["message"] != "opened" || line["level"] != "debug" {
		t.Fatalf("unexpected fields %v", line)
	}
}

func TestNew_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "prod", "chatty")
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at the fallback level, got %q", buf.String())
	}
	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Fatal("info should pass")
	}
}

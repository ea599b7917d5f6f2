package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "debug", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Init(Config{}) })

	logger := Component("manager")
	logger.Debug().Str("sequence", "intro").Msg("registered")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "manager" {
		t.Fatalf("expected component manager, got %v", entry["component"])
	}
	if entry["sequence"] != "intro" {
		t.Fatalf("expected sequence intro, got %v", entry["sequence"])
	}
}

func TestInitRejectsUnknownValues(t *testing.T) {
	if err := Init(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := Init(Config{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWriterJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "chain", "agoric")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "shown" || rec["chain"] != "agoric" || rec["service"] != "ghostchain" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewWriterBadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "loud", "text")

	logger.Debug("hidden")
	logger.Info("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

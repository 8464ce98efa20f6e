package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"modforge/internal/logging"
	"modforge/internal/services"
)

func TestConsoleOutputShape(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "cloner")
	logger.Info("clone created", logging.String("asset", "weapon.rifle_custom"), logging.Int("bytes", 512))

	line := buf.String()
	for _, fragment := range []string{"INFO", "cloner: clone created", "asset=weapon.rifle_custom", "bytes=512"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("console line %q missing %q", line, fragment)
		}
	}
}

func TestJSONOutputShape(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("identity not found", logging.String("asset", "weapon.missing"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if record["msg"] != "identity not found" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record["level"] != "warn" {
		t.Fatalf("level = %v", record["level"])
	}
	if record["asset"] != "weapon.missing" {
		t.Fatalf("asset = %v", record["asset"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record leaked through warn level: %q", buf.String())
	}
	logger.Error("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("error record missing: %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithStage(context.Background(), "process-clones")
	ctx = services.WithAsset(ctx, "weapon.rifle_base")
	logging.WithContext(ctx, logger).Debug("working")

	line := buf.String()
	for _, fragment := range []string{"stage=process-clones", "asset=weapon.rifle_base"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("line %q missing %q", line, fragment)
		}
	}
}

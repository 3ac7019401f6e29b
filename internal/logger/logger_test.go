package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestSlogBridge_CarriesContextAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "info", Component: "wcs-downloader"}, &buf)
	log := NewSlog(&zl)

	ctx := WithCommand(WithRunID(context.Background(), "r1"), "download")
	log.InfoContext(ctx, "coverage downloaded", "n", 1, "total", 2, "elapsed", time.Second)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1", len(lines))
	}
	got := lines[0]
	for k, want := range map[string]any{
		"msg": "coverage downloaded", "level": "info", "run_id": "r1",
		"command": "download", "component": "wcs-downloader", "n": float64(1),
	} {
		if got[k] != want {
			t.Fatalf("%s=%v want %v (line %v)", k, got[k], want, got)
		}
	}
	if _, ok := got["timestamp"]; !ok {
		t.Fatalf("timestamp missing: %v", got)
	}
}

func TestSlogBridge_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	log := NewSlog(&zl)

	log.Info("hidden")
	log.Debug("hidden")
	log.Warn("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "shown" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	if ParseLevel("bogus").String() != "info" {
		t.Fatalf("unexpected default level")
	}
	if ParseLevel(" DEBUG ").String() != "debug" {
		t.Fatalf("level parsing must be case-insensitive")
	}
}

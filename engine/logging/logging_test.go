package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup, err := Setup(Config{Format: "json", Stderr: &buf})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	l.Debug("hidden")
	l.Info("container resolved", "strategy", "pack-v2")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not one JSON record: %v\n%s", err, buf.String())
	}
	if rec["strategy"] != "pack-v2" || rec["msg"] != "container resolved" {
		t.Errorf("record = %v", rec)
	}
	if ts, _ := rec["time"].(string); !strings.HasSuffix(ts, "Z") {
		t.Errorf("time %q is not UTC", ts)
	}
}

func TestSetupDebugFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pakx.log")
	l, cleanup, err := Setup(Config{Debug: true, Output: path})
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("strategy rejected", "strategy", "mix")
	if err := cleanup(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "strategy=mix") {
		t.Errorf("log file = %q", data)
	}
}

func TestSetupUnknownFormat(t *testing.T) {
	if _, _, err := Setup(Config{Format: "xml", Stderr: &bytes.Buffer{}}); err == nil {
		t.Error("Setup accepted format xml")
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %v, want %v", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"WARNING", WarnLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"verbose", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestFabricFields(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{WWPN("10:00:00:00:c9:2b:9a:d1"), "wwpn", "10:00:00:00:c9:2b:9a:d1"},
		{Peer("20000000aaaa0001"), "peer", "20000000aaaa0001"},
		{SwitchID("10000000AAAA"), "switch_id", "10000000AAAA"},
		{SnapshotID("abc"), "snapshot_id", "abc"},
		{Zone("z1"), "zone", "z1"},
		{Component("topology"), "component", "topology"},
		{Operation("find_path"), "operation", "find_path"},
		{Count(7), "count", 7},
		{Latency(2 * time.Second), "latency", "2s"},
	}

	for _, tt := range tests {
		if tt.field.Key != tt.key {
			t.Errorf("key = %q, want %q", tt.field.Key, tt.key)
		}
		if tt.field.Value != tt.value {
			t.Errorf("%s value = %v, want %v", tt.key, tt.field.Value, tt.value)
		}
	}

	if f := Error(nil); f.Value != nil {
		t.Errorf("Error(nil) value = %v, want nil", f.Value)
	}
	if f := Error(errors.New("boom")); f.Value != "boom" {
		t.Errorf("Error(boom) value = %v, want boom", f.Value)
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Warn("dangling connection", WWPN("a"), Peer("b"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	if entry.Level != "WARN" {
		t.Errorf("Level = %v, want WARN", entry.Level)
	}
	if entry.Message != "dangling connection" {
		t.Errorf("Message = %v, want 'dangling connection'", entry.Message)
	}
	if entry.Fields["wwpn"] != "a" || entry.Fields["peer"] != "b" {
		t.Errorf("Fields = %v", entry.Fields)
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(lines))
	}

	var first LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if first.Level != "WARN" {
		t.Errorf("First entry level = %v, want WARN", first.Level)
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("topology"), SnapshotID("s1"))
	child.Info("graph built", Count(12))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if entry.Fields["component"] != "topology" {
		t.Errorf("component field = %v, want topology", entry.Fields["component"])
	}
	if entry.Fields["snapshot_id"] != "s1" {
		t.Errorf("snapshot_id field = %v, want s1", entry.Fields["snapshot_id"])
	}
	if entry.Fields["count"] != float64(12) { // JSON unmarshals numbers as float64
		t.Errorf("count field = %v, want 12", entry.Fields["count"])
	}

	// Parent must not inherit child fields
	buf.Reset()
	logger.Info("plain")
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Fields != nil {
		t.Errorf("parent logger leaked fields: %v", entry.Fields)
	}
}

func TestJSONLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %s", buf.String())
	}

	logger.SetLevel(DebugLevel)
	if logger.GetLevel() != DebugLevel {
		t.Errorf("GetLevel() = %v, want DEBUG", logger.GetLevel())
	}
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug message missing after SetLevel: %s", buf.String())
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "snapshot loaded", SnapshotID("s1"))
	if d := timer.End(Count(3)); d < 0 {
		t.Errorf("negative duration %v", d)
	}

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Error("latency field missing")
	}
	if entry.Fields["count"] != float64(3) {
		t.Errorf("count field = %v, want 3", entry.Fields["count"])
	}

	buf.Reset()
	StartTimer(logger, "load failed").EndError(errors.New("bad record"))
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Level != "ERROR" || entry.Fields["error"] != "bad record" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestDefaultLoggerOverride(t *testing.T) {
	var buf bytes.Buffer
	custom := NewJSONLogger(&buf, InfoLevel)

	SetDefaultLogger(custom)
	defer SetDefaultLogger(NewJSONLogger(&bytes.Buffer{}, InfoLevel))

	if DefaultLogger() != Logger(custom) {
		t.Error("DefaultLogger() did not return the override")
	}
	if OrDefault(nil) != Logger(custom) {
		t.Error("OrDefault(nil) did not fall back to the default logger")
	}
	nop := NewNopLogger()
	if OrDefault(nop) != nop {
		t.Error("OrDefault should return a non-nil logger unchanged")
	}
}

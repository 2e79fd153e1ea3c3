package progress

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestEmit_WritesJSONLine(t *testing.T) {
	Clear()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	b, err := Emit("info", "scenario.generated", "wrote file", map[string]any{
		"signal_name": "CAN_BRAKE_ERROR",
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatalf("returned bytes not JSON: %v", err)
	}
	if r.Name != "scenario.generated" || r.Level != "info" {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Fields["signal_name"] != "CAN_BRAKE_ERROR" {
		t.Errorf("fields lost: %+v", r.Fields)
	}

	line := strings.TrimSpace(buf.String())
	if line != string(b) {
		t.Errorf("output line differs from returned bytes:\nline: %s\nret:  %s", line, b)
	}
}

func TestEmit_RejectsUnknownName(t *testing.T) {
	Clear()
	if _, err := Emit("info", "scenario.exploded", "", nil); err == nil {
		t.Error("expected error for unknown event name")
	}
	if got := len(Snapshot()); got != 0 {
		t.Errorf("rejected event buffered: %d records", got)
	}
}

func TestSnapshot_Order(t *testing.T) {
	Clear()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	names := []string{"generation.started", "scenario.generated", "generation.completed"}
	for _, n := range names {
		if _, err := Emit("info", n, "", nil); err != nil {
			t.Fatalf("Emit(%s): %v", n, err)
		}
	}

	snap := Snapshot()
	if len(snap) != len(names) {
		t.Fatalf("want %d records, got %d", len(names), len(snap))
	}
	for i, n := range names {
		if snap[i].Name != n {
			t.Errorf("record %d: want %s, got %s", i, n, snap[i].Name)
		}
	}
}

// Package progress emits structured generation-progress records as JSON
// lines and keeps a bounded in-memory tail for reports and tests.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var buffer = NewRingBuffer(256)

var (
	outMu sync.RWMutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects emitted records, mainly for tests.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

// Record is one progress event.
type Record struct {
	Timestamp string         `json:"ts"`
	Level     string         `json:"level"`
	Name      string         `json:"event"`
	Message   string         `json:"msg,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Emit validates the event name, writes the record as a JSON line, and
// stores it in the ring buffer. The encoded record is returned for
// callers that forward it elsewhere.
func Emit(level, name, msg string, fields map[string]any) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	r := Record{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(r)

	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal progress record: %w", err)
	}

	outMu.RLock()
	w := out
	outMu.RUnlock()
	fmt.Fprintln(w, string(b))

	return b, nil
}

// Snapshot returns the buffered records in emission order.
func Snapshot() []Record {
	return buffer.Snapshot()
}

// Clear resets the buffer. Used for testing.
func Clear() {
	buffer.Clear()
}

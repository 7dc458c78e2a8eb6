package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// StepEvent is one line of a JSONL recording.
type StepEvent struct {
	Timestamp time.Time      `json:"ts"`
	Snapshot  ExportSnapshot `json:"snapshot"`
}

// JSONLRecorder appends one JSON object per step to a file. It is safe for
// concurrent use. A nil *JSONLRecorder is a valid no-op recorder.
type JSONLRecorder struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
	err  error
}

// NewJSONLRecorder creates or appends to the file at path.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &JSONLRecorder{
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// OnStep encodes snap. After the first failure further steps are dropped;
// the failure is reported by Err.
func (r *JSONLRecorder) OnStep(snap dynamo.Snapshot) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	evt := StepEvent{Timestamp: time.Now().UTC(), Snapshot: exportSnapshot(snap)}
	if err := r.enc.Encode(evt); err != nil {
		r.err = fmt.Errorf("storage: encode step %d: %w", snap.Step, err)
	}
}

func (r *JSONLRecorder) Err() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the underlying file. Calling Close on a nil recorder is a
// no-op.
func (r *JSONLRecorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	return nil
}

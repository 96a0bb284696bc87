package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"MarketBacktest/internal/model"
)

// JSONLRecorder appends one JSON summary per line to a file.
type JSONLRecorder struct {
	mu   sync.Mutex
	path string
}

// NewJSONLRecorder creates the parent directory of path if needed.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &JSONLRecorder{path: path}, nil
}

func (r *JSONLRecorder) Log(_ context.Context, summary *model.Summary) error {
	line, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

func (r *JSONLRecorder) Close() error { return nil }

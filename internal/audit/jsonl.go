package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONLSink appends entries as JSON lines for later analysis.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLSink creates/opens the target file and returns a sink.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLSink{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Append writes a single entry to the underlying JSONL file.
func (s *JSONLSink) Append(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	_ = s.enc.Encode(entry)
}

// Close flushes and closes the file handle.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultWriter is the default subtitle file writer
type DefaultWriter struct{}

// NewWriter creates a new subtitle file writer
func NewWriter() Writer {
	return &DefaultWriter{}
}

// Write serializes doc to path, replacing any existing file
func (w *DefaultWriter) Write(path string, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmpPath, []byte(doc.Text()), 0o644); err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

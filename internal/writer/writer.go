package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// JSONWriter persists values as indented UTF-8 JSON. Non-ASCII text and HTML
// characters are written literally.
type JSONWriter struct {
	mu     sync.Mutex
	indent string
}

func NewJSONWriter() *JSONWriter {
	return &JSONWriter{indent: "  "}
}

// Encode writes v to w followed by a newline.
func (jw *JSONWriter) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jw.indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// WriteToFile replaces outputPath with the JSON encoding of v. The file is
// written to a temporary sibling first and renamed into place.
func (jw *JSONWriter) WriteToFile(v any, outputPath string) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".*")
	if err != nil {
		return fmt.Errorf("opening JSON file: %w", err)
	}
	tmpPath := file.Name()
	defer os.Remove(tmpPath)

	if err := jw.Encode(file, v); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing JSON file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting JSON file mode: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("writing JSON file %s: %w", outputPath, err)
	}
	return nil
}

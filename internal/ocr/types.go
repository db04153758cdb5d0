package ocr

import (
	"encoding/json"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/ocr/engine"
)

type Options = engine.Options

// Settings configure an engine handle once, when it is created.
type Settings struct {
	Language    string
	CPUThreads  int
	UseGPU      bool
	UseAngleCls bool

	OllamaURL   string
	OllamaModel string
}

// OCREngine is a loaded, ready-to-invoke OCR model for a single language.
// The returned payload is passed through to callers untouched.
type OCREngine interface {
	ProcessImage(imagePath string, opts Options) (json.RawMessage, error)
	Version() string
	Close() error
}

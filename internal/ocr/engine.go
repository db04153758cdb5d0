package ocr

import (
	"fmt"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/ocr/engine"
)

func NewEngine(engineType string, settings Settings) (OCREngine, error) {
	var e OCREngine
	var err error

	switch engineType {
	case "ollama":
		e, err = engine.NewOllamaEngine(settings.OllamaURL, settings.OllamaModel, engine.OllamaSettings{
			Language:   settings.Language,
			CPUThreads: settings.CPUThreads,
			UseGPU:     settings.UseGPU,
		})
		if err != nil {
			return nil, err
		}
	case "gosseract", "tesseract", "":
		e, err = engine.NewGosseractEngine(settings.Language, settings.UseAngleCls)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown engine type: %s", engineType)
	}

	return e, nil
}

// Factory returns a function creating engines of engineType with the shared
// settings, specialised per language.
func Factory(engineType string, settings Settings) func(lang string) (OCREngine, error) {
	return func(lang string) (OCREngine, error) {
		s := settings
		s.Language = lang
		return NewEngine(engineType, s)
	}
}

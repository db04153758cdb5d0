package ocr

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
)

type handle struct {
	mu     sync.Mutex
	engine OCREngine
}

// Pool holds exactly one engine handle per supported language. Handles are
// created eagerly and never replaced; calls on the same handle are serialized.
type Pool struct {
	def       string
	languages []string
	handles   map[string]*handle
}

// NewPool loads one engine per language using newEngine. If any language
// fails to load, the engines already created are closed and an error is
// returned: a pool never serves a partial language set.
func NewPool(languages []string, defaultLanguage string, newEngine func(lang string) (OCREngine, error)) (*Pool, error) {
	if len(languages) == 0 {
		return nil, fmt.Errorf("no languages configured")
	}
	if !slices.Contains(languages, defaultLanguage) {
		return nil, fmt.Errorf("default language %q is not supported", defaultLanguage)
	}

	p := &Pool{
		def:       defaultLanguage,
		languages: slices.Clone(languages),
		handles:   make(map[string]*handle, len(languages)),
	}

	for _, lang := range p.languages {
		if _, dup := p.handles[lang]; dup {
			continue
		}
		logger.Log.WithField("language", lang).Info("Loading OCR engine")
		e, err := newEngine(lang)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("loading OCR engine for %s: %w", lang, err)
		}
		p.handles[lang] = &handle{engine: e}
	}

	logger.Log.WithFields(logrus.Fields{
		"languages": p.languages,
		"default":   p.def,
	}).Info("OCR engines ready")
	return p, nil
}

// Resolve maps a requested language onto a supported one. Empty requests and
// unsupported codes resolve to the default language.
func (p *Pool) Resolve(requested string) string {
	if requested == "" {
		return p.def
	}
	if _, ok := p.handles[requested]; !ok {
		logger.Log.WithFields(logrus.Fields{
			"requested": requested,
			"fallback":  p.def,
		}).Warn("Language not supported, using default")
		return p.def
	}
	return requested
}

func (p *Pool) Default() string { return p.def }

func (p *Pool) Languages() []string { return slices.Clone(p.languages) }

// Recognize runs the engine of an already resolved language.
func (p *Pool) Recognize(lang, imagePath string, opts Options) (json.RawMessage, error) {
	h, ok := p.handles[lang]
	if !ok {
		return nil, fmt.Errorf("no OCR engine loaded for language %q", lang)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	logger.DebugLog("[Recognize]: %s on %s (rotation=%t)", lang, imagePath, opts.DetectRotation)
	return h.engine.ProcessImage(imagePath, opts)
}

func (p *Pool) Version(lang string) string {
	h, ok := p.handles[lang]
	if !ok {
		return ""
	}
	return h.engine.Version()
}

func (p *Pool) Close() error {
	var firstErr error
	for lang, h := range p.handles {
		h.mu.Lock()
		if err := h.engine.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing OCR engine for %s: %w", lang, err)
		}
		h.mu.Unlock()
	}
	return firstErr
}

package pipeline

import (
	"fmt"
	"os"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/ocr"
)

const (
	probeWidth  = 100
	probeHeight = 50
)

// HealthCheck runs a blank synthetic image through every language engine.
// It only proves the engines answer; the recognized content is ignored.
// On any error the per-language detail is dropped and only the error is
// reported.
func (d *Dispatcher) HealthCheck() HealthStatus {
	status, err := d.probe()
	if err != nil {
		logger.Log.WithError(err).Error("Health check failed")
		return HealthStatus{Status: StatusUnhealthy, Error: err.Error()}
	}
	return status
}

func (d *Dispatcher) probe() (HealthStatus, error) {
	f, err := os.CreateTemp("", "ocr-health-*.png")
	if err != nil {
		return HealthStatus{}, fmt.Errorf("creating probe image: %w", err)
	}
	probePath := f.Name()
	f.Close()
	defer func() {
		if err := d.image.Cleanup(probePath); err != nil {
			logger.DebugLog("[HealthCheck]: removing %s: %v", probePath, err)
		}
	}()

	if err := d.image.NewBlank(probePath, probeWidth, probeHeight); err != nil {
		return HealthStatus{}, fmt.Errorf("creating probe image: %w", err)
	}

	languages := d.pool.Languages()
	status := HealthStatus{
		Status:             StatusHealthy,
		Version:            d.pool.Version(d.pool.Default()),
		SupportedLanguages: languages,
		LanguageTests:      make(map[string]LanguageTest, len(languages)),
	}

	for _, lang := range languages {
		start := d.now()
		if _, err := d.pool.Recognize(lang, probePath, ocr.Options{DetectRotation: false}); err != nil {
			return HealthStatus{}, fmt.Errorf("ocr engine %s: %w", lang, err)
		}
		status.LanguageTests[lang] = LanguageTest{
			Status:       StatusOK,
			ResponseTime: seconds(d.now().Sub(start)),
		}
	}
	return status, nil
}

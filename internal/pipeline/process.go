package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/image"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/ocr"
)

// Process runs OCR on one image or PDF. Relative paths are looked up in the
// input directory. A PDF contributes only its configured page (the first by
// default). Every failure is reported in the returned result.
func (d *Dispatcher) Process(path, language string, opts ProcessOptions) ProcessingResult {
	start := d.now()
	lang := d.pool.Resolve(language)

	imagePath, payload, err := d.recognize(path, lang, opts)
	elapsed := d.now().Sub(start)

	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"path":     imagePath,
			"language": lang,
		}).WithError(err).Warn("OCR failed")
		return d.failure(lang, imagePath, elapsed, err)
	}

	angle := opts.DetectRotation
	res := ProcessingResult{
		Success:        true,
		Result:         payload,
		Language:       lang,
		ProcessingTime: seconds(elapsed),
		Timestamp:      epoch(d.now()),
		Version:        d.pool.Version(lang),
		AngleDetection: &angle,
		ImagePath:      imagePath,
	}

	if opts.Persist {
		stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
		outputFile := filepath.Join(d.outputDir, fmt.Sprintf("%s_%s_result.json", stem, lang))
		res.OutputSaved = outputFile
		if err := d.writer.WriteToFile(res, outputFile); err != nil {
			return d.failure(lang, imagePath, d.now().Sub(start), fmt.Errorf("saving result: %w", err))
		}
		logger.DebugLog("[Process]: result saved to %s", outputFile)
	}

	return res
}

// recognize returns the effective image path, even on failure, so callers can
// report what was attempted.
func (d *Dispatcher) recognize(path, lang string, opts ProcessOptions) (string, json.RawMessage, error) {
	if path == "" {
		return path, nil, fmt.Errorf("no input path given")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.inputDir, path)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return path, nil, fmt.Errorf("file not found: %s", path)
		}
		return path, nil, fmt.Errorf("reading input %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pagePath := image.PageImagePath(path, d.pdfPage)
		logger.Log.WithFields(logrus.Fields{
			"pdf":  path,
			"page": d.pdfPage,
			"dpi":  d.pdfDPI,
		}).Info("Converting PDF page to image")
		if err := d.image.ConvertPDFPage(path, pagePath, d.pdfPage, d.pdfDPI); err != nil {
			return path, nil, fmt.Errorf("converting pdf: %w", err)
		}
		path = pagePath
	}

	if err := d.image.Validate(path); err != nil {
		return path, nil, fmt.Errorf("unsupported or unreadable image: %w", err)
	}

	payload, err := d.pool.Recognize(lang, path, ocr.Options{DetectRotation: opts.DetectRotation})
	if err != nil {
		return path, nil, fmt.Errorf("ocr engine %s: %w", lang, err)
	}
	return path, payload, nil
}

func (d *Dispatcher) failure(lang, imagePath string, elapsed time.Duration, err error) ProcessingResult {
	return ProcessingResult{
		Success:        false,
		Error:          err.Error(),
		Language:       lang,
		ProcessingTime: seconds(elapsed),
		Timestamp:      epoch(d.now()),
		ImagePath:      imagePath,
	}
}

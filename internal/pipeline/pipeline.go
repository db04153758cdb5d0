package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/ocr"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/writer"
)

// ImageProcessor covers the image work delegated to external tools.
type ImageProcessor interface {
	ConvertPDFPage(pdfPath, outPath string, page, dpi int) error
	Validate(path string) error
	NewBlank(path string, width, height int) error
	Cleanup(path string) error
}

type Options struct {
	// BaseDir holds data/input and data/output.
	BaseDir string
	// PDFPage is the 1-based page rasterized from PDF inputs. Other pages
	// are ignored.
	PDFPage int
	PDFDPI  int
}

// Dispatcher routes OCR requests to the engine of the requested language and
// wraps every outcome into a result record.
type Dispatcher struct {
	pool      *ocr.Pool
	image     ImageProcessor
	writer    *writer.JSONWriter
	inputDir  string
	outputDir string
	pdfPage   int
	pdfDPI    int
	now       func() time.Time
}

// New creates the dispatcher and the input and output directories when they
// are missing.
func New(pool *ocr.Pool, image ImageProcessor, opts Options) (*Dispatcher, error) {
	if opts.PDFPage <= 0 {
		opts.PDFPage = 1
	}
	if opts.PDFDPI <= 0 {
		opts.PDFDPI = 300
	}
	baseDir, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory %s: %w", opts.BaseDir, err)
	}
	dataDir := filepath.Join(baseDir, "data")

	d := &Dispatcher{
		pool:      pool,
		image:     image,
		writer:    writer.NewJSONWriter(),
		inputDir:  filepath.Join(dataDir, "input"),
		outputDir: filepath.Join(dataDir, "output"),
		pdfPage:   opts.PDFPage,
		pdfDPI:    opts.PDFDPI,
		now:       time.Now,
	}

	for _, dir := range []string{d.inputDir, d.outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	logger.DebugLog("Dispatcher ready: input=%s output=%s", d.inputDir, d.outputDir)
	return d, nil
}

func (d *Dispatcher) InputDir() string { return d.inputDir }

func (d *Dispatcher) OutputDir() string { return d.outputDir }

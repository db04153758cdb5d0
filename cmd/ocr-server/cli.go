package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/config"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/image"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/ocr"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/pipeline"
	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/writer"
)

type dispatcher interface {
	Process(path, language string, opts pipeline.ProcessOptions) pipeline.ProcessingResult
	ProcessBatch(language string) pipeline.BatchOutcome
	HealthCheck() pipeline.HealthStatus
}

type CLI struct {
	configFile string
	baseDir    string
	engineType string
	debug      bool
	batch      bool
	health     bool

	out  io.Writer
	json *writer.JSONWriter
	// open builds the dispatcher; the returned func releases the engines.
	open func(cfg *config.Config) (dispatcher, func() error, error)
}

func NewCLI(out io.Writer) *CLI {
	return &CLI{
		out:  out,
		json: writer.NewJSONWriter(),
		open: openDispatcher,
	}
}

func (c *CLI) Run(args []string) error {
	fs := flag.NewFlagSet("ocr-server", flag.ContinueOnError)

	fs.StringVar(&c.configFile, "config", c.configFile, "YAML configuration file")
	fs.StringVar(&c.baseDir, "base-dir", c.baseDir, "Directory holding data/input and data/output")
	fs.StringVar(&c.engineType, "engine", c.engineType, "OCR engine type (tesseract, ollama)")
	fs.BoolVar(&c.debug, "debug", c.debug, "Enable debug logging")
	fs.BoolVar(&c.batch, "batch", c.batch, "Process every image and PDF in data/input")
	fs.BoolVar(&c.health, "health", c.health, "Run the engine health check")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	logger.Setup(c.debug)

	rest := fs.Args()
	cfg, err := config.Load(c.configFile)
	if err == nil {
		c.applyFlags(cfg)
	}
	if !c.batch && !c.health && len(rest) == 0 {
		if err != nil {
			logger.Log.WithError(err).Warn("Loading config")
			cfg = nil
		}
		c.usage(cfg)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	d, closeFn, err := c.open(cfg)
	if err != nil {
		return fmt.Errorf("starting OCR engines: %w", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Log.WithError(err).Warn("Closing OCR engines")
		}
	}()

	var result any
	switch {
	case c.health:
		result = d.HealthCheck()
	case c.batch:
		result = d.ProcessBatch(arg(rest, 0))
	default:
		result = d.Process(rest[0], arg(rest, 1), pipeline.ProcessOptions{DetectRotation: true, Persist: true})
	}
	return c.json.Encode(c.out, result)
}

func arg(args []string, i int) string {
	if len(args) > i {
		return strings.ToLower(strings.TrimSpace(args[i]))
	}
	return ""
}

func (c *CLI) applyFlags(cfg *config.Config) {
	if c.baseDir != "" {
		cfg.BaseDir = c.baseDir
	}
	if c.engineType != "" {
		cfg.Engine = strings.ToLower(c.engineType)
	}
}

// usage prints the banner. cfg may be nil or invalid; it only feeds the
// informational lines.
func (c *CLI) usage(cfg *config.Config) {
	if cfg != nil {
		langs := strings.ToUpper(strings.Join(cfg.Languages, ", "))
		fmt.Fprintf(c.out, "OCR server (engine: %s)\n", cfg.Engine)
		fmt.Fprintf(c.out, "Supported languages: %s (default: %s)\n", langs, cfg.DefaultLanguage)
	}
	fmt.Fprintln(c.out, "Usage:")
	fmt.Fprintln(c.out, "  ocr-server [flags] <image_or_pdf> [language]   # OCR one image or PDF (first page)")
	fmt.Fprintln(c.out, "  ocr-server [flags] --batch [language]          # OCR every file in data/input")
	fmt.Fprintln(c.out, "  ocr-server [flags] --health                    # engine health check")
	if cfg != nil {
		fmt.Fprintf(c.out, "Relative paths are looked up in %s/data/input/\n", strings.TrimRight(cfg.BaseDir, "/"))
	}
}

func openDispatcher(cfg *config.Config) (dispatcher, func() error, error) {
	settings := ocr.Settings{
		CPUThreads:  cfg.EngineSettings.CPUThreads,
		UseGPU:      cfg.EngineSettings.UseGPU,
		UseAngleCls: cfg.EngineSettings.UseAngleCls,
		OllamaURL:   cfg.Ollama.URL,
		OllamaModel: cfg.Ollama.Model,
	}
	pool, err := ocr.NewPool(cfg.Languages, cfg.DefaultLanguage, ocr.Factory(cfg.Engine, settings))
	if err != nil {
		return nil, nil, err
	}

	d, err := pipeline.New(pool, image.NewImageProcessor(cfg.PDF.Pdftoppm), pipeline.Options{
		BaseDir: cfg.BaseDir,
		PDFPage: cfg.PDF.Page,
		PDFDPI:  cfg.PDF.DPI,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return d, pool.Close, nil
}

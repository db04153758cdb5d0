package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type EngineSettings struct {
	// DetLimitSideLen and RecBatchSize are accepted for config compatibility;
	// neither the Tesseract nor the Ollama backend reads them.
	DetLimitSideLen int  `yaml:"det_limit_side_len"`
	RecBatchSize    int  `yaml:"rec_batch_size"`
	CPUThreads      int  `yaml:"cpu_threads"`
	UseGPU          bool `yaml:"use_gpu"`
	UseAngleCls     bool `yaml:"use_angle_cls"`
}

type PDFConfig struct {
	DPI      int    `yaml:"dpi"`
	Page     int    `yaml:"page"`
	Pdftoppm string `yaml:"pdftoppm"`
}

type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

type Config struct {
	BaseDir         string         `yaml:"base_dir"`
	Engine          string         `yaml:"engine"`
	DefaultLanguage string         `yaml:"default_language"`
	Languages       []string       `yaml:"languages"`
	EngineSettings  EngineSettings `yaml:"engine_settings"`
	PDF             PDFConfig      `yaml:"pdf"`
	Ollama          OllamaConfig   `yaml:"ollama"`
}

var engines = []string{"tesseract", "gosseract", "ollama"}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load builds the configuration from the environment and, when path is not
// empty, overrides it with the non-zero values of a YAML file. The result is
// not validated; callers apply their own overrides first and then call
// Validate.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BaseDir:         getEnv("OCR_BASE_DIR", "."),
		Engine:          strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
		DefaultLanguage: strings.ToLower(getEnv("OCR_DEFAULT_LANGUAGE", "es")),
		Languages:       splitList(getEnv("OCR_LANGUAGES", "en,es")),
		EngineSettings: EngineSettings{
			DetLimitSideLen: 960,
			RecBatchSize:    6,
			CPUThreads:      4,
			UseGPU:          false,
			UseAngleCls:     true,
		},
		PDF: PDFConfig{
			DPI:      getEnvInt("OCR_PDF_DPI", 300),
			Page:     getEnvInt("OCR_PDF_PAGE", 1),
			Pdftoppm: getEnv("PDFTOPPM_PATH", "pdftoppm"),
		},
		Ollama: OllamaConfig{
			URL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model: getEnv("OLLAMA_MODEL", "llama3.2-vision"),
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		var fc Config
		// Booleans default to the env/default values unless present in the file.
		fc.EngineSettings.UseGPU = cfg.EngineSettings.UseGPU
		fc.EngineSettings.UseAngleCls = cfg.EngineSettings.UseAngleCls
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.merge(&fc)
	}
	return cfg, nil
}

func (c *Config) merge(fc *Config) {
	if fc.BaseDir != "" {
		c.BaseDir = fc.BaseDir
	}
	if fc.Engine != "" {
		c.Engine = strings.ToLower(fc.Engine)
	}
	if fc.DefaultLanguage != "" {
		c.DefaultLanguage = strings.ToLower(fc.DefaultLanguage)
	}
	if len(fc.Languages) > 0 {
		c.Languages = splitList(strings.Join(fc.Languages, ","))
	}
	if fc.EngineSettings.DetLimitSideLen != 0 {
		c.EngineSettings.DetLimitSideLen = fc.EngineSettings.DetLimitSideLen
	}
	if fc.EngineSettings.RecBatchSize != 0 {
		c.EngineSettings.RecBatchSize = fc.EngineSettings.RecBatchSize
	}
	if fc.EngineSettings.CPUThreads != 0 {
		c.EngineSettings.CPUThreads = fc.EngineSettings.CPUThreads
	}
	c.EngineSettings.UseGPU = fc.EngineSettings.UseGPU
	c.EngineSettings.UseAngleCls = fc.EngineSettings.UseAngleCls
	if fc.PDF.DPI != 0 {
		c.PDF.DPI = fc.PDF.DPI
	}
	if fc.PDF.Page != 0 {
		c.PDF.Page = fc.PDF.Page
	}
	if fc.PDF.Pdftoppm != "" {
		c.PDF.Pdftoppm = fc.PDF.Pdftoppm
	}
	if fc.Ollama.URL != "" {
		c.Ollama.URL = fc.Ollama.URL
	}
	if fc.Ollama.Model != "" {
		c.Ollama.Model = fc.Ollama.Model
	}
}

func (c *Config) Validate() error {
	if len(c.Languages) == 0 {
		return fmt.Errorf("no languages configured")
	}
	if !slices.Contains(c.Languages, c.DefaultLanguage) {
		return fmt.Errorf("default language %q is not one of %v", c.DefaultLanguage, c.Languages)
	}
	if !slices.Contains(engines, c.Engine) {
		return fmt.Errorf("unknown engine type: %s", c.Engine)
	}
	if c.PDF.DPI <= 0 {
		return fmt.Errorf("pdf dpi must be positive, got %d", c.PDF.DPI)
	}
	if c.PDF.Page <= 0 {
		return fmt.Errorf("pdf page must be 1 or greater, got %d", c.PDF.Page)
	}
	return nil
}

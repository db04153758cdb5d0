package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OCR_BASE_DIR", "OCR_ENGINE", "OCR_DEFAULT_LANGUAGE", "OCR_LANGUAGES",
		"OCR_PDF_DPI", "OCR_PDF_PAGE", "PDFTOPPM_PATH", "OLLAMA_URL", "OLLAMA_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.BaseDir)
	assert.Equal(t, "tesseract", cfg.Engine)
	assert.Equal(t, "es", cfg.DefaultLanguage)
	assert.Equal(t, []string{"en", "es"}, cfg.Languages)
	assert.Equal(t, 300, cfg.PDF.DPI)
	assert.Equal(t, 1, cfg.PDF.Page)
	assert.Equal(t, "pdftoppm", cfg.PDF.Pdftoppm)
	assert.Equal(t, EngineSettings{DetLimitSideLen: 960, RecBatchSize: 6, CPUThreads: 4, UseGPU: false, UseAngleCls: true}, cfg.EngineSettings)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_BASE_DIR", "/srv/ocr")
	t.Setenv("OCR_DEFAULT_LANGUAGE", "EN")
	t.Setenv("OCR_LANGUAGES", " en , es ,fr")
	t.Setenv("OCR_PDF_DPI", "150")
	t.Setenv("OCR_PDF_PAGE", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/ocr", cfg.BaseDir)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, []string{"en", "es", "fr"}, cfg.Languages)
	assert.Equal(t, 150, cfg.PDF.DPI)
	assert.Equal(t, 1, cfg.PDF.Page, "invalid integers fall back to the default")
}

func TestLoad_YAMLOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_ENGINE", "tesseract")

	path := filepath.Join(t.TempDir(), "ocr.yaml")
	content := `
engine: ollama
base_dir: /data/ocr
engine_settings:
  cpu_threads: 8
  use_angle_cls: false
pdf:
  page: 2
ollama:
  model: llava
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Engine)
	assert.Equal(t, "/data/ocr", cfg.BaseDir)
	assert.Equal(t, 8, cfg.EngineSettings.CPUThreads)
	assert.Equal(t, 960, cfg.EngineSettings.DetLimitSideLen)
	assert.False(t, cfg.EngineSettings.UseAngleCls)
	assert.False(t, cfg.EngineSettings.UseGPU)
	assert.Equal(t, 2, cfg.PDF.Page)
	assert.Equal(t, 300, cfg.PDF.DPI)
	assert.Equal(t, "llava", cfg.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestLoad_LeavesValidationToCaller(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_ENGINE", "paddle")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "paddle", cfg.Engine)
	assert.ErrorContains(t, cfg.Validate(), "unknown engine type: paddle")

	cfg.Engine = "tesseract"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	testCases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "no languages", mutate: func(c *Config) { c.Languages = nil }, errMsg: "no languages configured"},
		{name: "default outside languages", mutate: func(c *Config) { c.DefaultLanguage = "de" }, errMsg: "default language"},
		{name: "unknown engine", mutate: func(c *Config) { c.Engine = "paddle" }, errMsg: "unknown engine type"},
		{name: "negative dpi", mutate: func(c *Config) { c.PDF.DPI = -1 }, errMsg: "pdf dpi"},
		{name: "page zero", mutate: func(c *Config) { c.PDF.Page = 0 }, errMsg: "pdf page"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.errMsg)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("languages: [en, es\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config file")
}

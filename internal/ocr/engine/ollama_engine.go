package engine

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
)

type OllamaSettings struct {
	Language   string
	CPUThreads int
	UseGPU     bool
}

type OllamaEngine struct {
	baseURL  string
	model    string
	settings OllamaSettings
	client   *http.Client
}

type OllamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type OllamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.2-vision"
)

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
}

const promptTemplate = `
You are an OCR engine.
Transcribe every piece of text visible in the image. The document is written in %s.

Rules:
1. Keep the original reading order, one line of the document per line of output.
2. Do not translate, summarize or correct the text.
3. %s
4. Return **only** a JSON object with this exact schema:

{
  "text": "<full transcription, lines separated by \n>"
}

* Do not add any other text, explanations, or formatting.
* If the image contains no text, return {"text": ""}.
`

// NewOllamaEngine returns an engine for model after checking that the
// Ollama server has it.
func NewOllamaEngine(baseURL, model string, settings OllamaSettings) (*OllamaEngine, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}

	o := &OllamaEngine{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		settings: settings,
		client:   &http.Client{},
	}
	if err := o.checkModel(); err != nil {
		return nil, err
	}
	return o, nil
}

type showRequest struct {
	Model string `json:"model"`
}

func (o *OllamaEngine) checkModel() error {
	jsonData, err := json.Marshal(showRequest{Model: o.model})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := o.client.Post(o.baseURL+"/api/show", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", o.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("ollama model %s is not available at %s", o.model, o.baseURL)
	default:
		return fmt.Errorf("ollama model check failed with status: %d", resp.StatusCode)
	}
}

func (o *OllamaEngine) prompt(opts Options) string {
	name, ok := languageNames[o.settings.Language]
	if !ok {
		name = o.settings.Language
	}
	rotation := "The image is upright; read it as given."
	if opts.DetectRotation {
		rotation = "The image may be rotated; determine its orientation before reading."
	}
	return fmt.Sprintf(promptTemplate, name, rotation)
}

func (o *OllamaEngine) ProcessImage(imagePath string, opts Options) (json.RawMessage, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	encodedImage := base64.StdEncoding.EncodeToString(imageData)

	options := map[string]any{}
	if o.settings.CPUThreads > 0 {
		options["num_thread"] = o.settings.CPUThreads
	}
	if !o.settings.UseGPU {
		options["num_gpu"] = 0
	}

	request := OllamaRequest{
		Model:   o.model,
		Prompt:  o.prompt(opts),
		Images:  []string{encodedImage},
		Stream:  false,
		Options: options,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := o.client.Post(o.baseURL+"/api/generate", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var ollamaResp OllamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	jsonObj, err := extractJSON(ollamaResp.Response)
	if err != nil {
		// Some models ignore the schema and answer with bare text.
		logger.DebugLog("[ollama]: no JSON object in response, keeping raw text: %v", err)
		return textToJSON(ollamaResp.Response, nil)
	}

	return jsonObj, nil
}

func (o *OllamaEngine) Version() string {
	return "Ollama " + o.model
}

func (o *OllamaEngine) Close() error {
	return nil
}

func extractJSON(text string) (json.RawMessage, error) {
	// Find opening brace
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, fmt.Errorf("no JSON found in text")
	}

	// Track brace depth to find the matching closing brace, ignoring braces
	// inside string literals.
	braceCount := 0
	end := -1
	inString := false
	escaped := false

matchingBrace:
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				end = i + 1
				break matchingBrace
			}
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	jsonStr := text[start:end]

	// Validate that it's actually valid JSON
	var temp any
	if err := json.Unmarshal([]byte(jsonStr), &temp); err != nil {
		return nil, fmt.Errorf("extracted text is not valid JSON: %w", err)
	}

	return json.RawMessage(jsonStr), nil
}

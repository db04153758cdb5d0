package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// tesseractLanguages maps the short codes used on the command line to
// Tesseract traineddata names.
var tesseractLanguages = map[string]string{
	"en": "eng",
	"es": "spa",
	"fr": "fra",
	"de": "deu",
	"it": "ita",
	"pt": "por",
}

type GosseractEngine struct {
	client     *gosseract.Client
	language   string
	allowAngle bool
}

type textLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

type textResult struct {
	Text  string     `json:"text"`
	Lines []textLine `json:"lines"`
}

// NewGosseractEngine creates a client bound to one language and loads its
// model by running a blank page through it, so a missing traineddata file
// fails here. allowAngle enables orientation detection for calls that
// request it.
func NewGosseractEngine(language string, allowAngle bool) (*GosseractEngine, error) {
	tessLang := tesseractLanguage(language)
	client := gosseract.NewClient()
	if err := client.SetLanguage(tessLang); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract language %s: %w", tessLang, err)
	}
	if err := warmUp(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("loading tesseract model %s: %w", tessLang, err)
	}
	return &GosseractEngine{client: client, language: tessLang, allowAngle: allowAngle}, nil
}

func warmUp(client *gosseract.Client) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(64, 32, color.White), imaging.PNG); err != nil {
		return fmt.Errorf("encoding blank page: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return err
	}
	_, err := client.Text()
	return err
}

func tesseractLanguage(lang string) string {
	if t, ok := tesseractLanguages[strings.ToLower(lang)]; ok {
		return t
	}
	return lang
}

// pageSegMode enables orientation and script detection only when the call
// asks for it and the engine allows it.
func (g *GosseractEngine) pageSegMode(opts Options) gosseract.PageSegMode {
	if opts.DetectRotation && g.allowAngle {
		return gosseract.PSM_AUTO_OSD
	}
	return gosseract.PSM_AUTO
}

func (g *GosseractEngine) ProcessImage(imagePath string, opts Options) (json.RawMessage, error) {
	if err := g.client.SetPageSegMode(g.pageSegMode(opts)); err != nil {
		return nil, fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := g.client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("loading image %s: %w", imagePath, err)
	}

	text, err := g.client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from image %s: %w", imagePath, err)
	}

	boxes, err := g.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("reading text lines from image %s: %w", imagePath, err)
	}
	lines := make([]textLine, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, textLine{
			Text:       strings.TrimSpace(b.Word),
			Confidence: b.Confidence / 100.0,
			Box:        [4]int{b.Box.Min.X, b.Box.Min.Y, b.Box.Max.X, b.Box.Max.Y},
		})
	}

	return textToJSON(text, lines)
}

func (g *GosseractEngine) Version() string {
	return "Tesseract " + g.client.Version() + " (" + g.language + ")"
}

func (g *GosseractEngine) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func textToJSON(text string, lines []textLine) (json.RawMessage, error) {
	cleanText := strings.TrimSpace(text)
	cleanText = strings.ReplaceAll(cleanText, "\r", "")
	if lines == nil {
		lines = []textLine{}
	}
	data := textResult{Text: cleanText, Lines: lines}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal text to JSON: %w", err)
	}
	return json.RawMessage(jsonBytes), nil
}

package image

import (
	"fmt"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

type ImageProcessor struct {
	// Pdftoppm is the poppler binary used to rasterize PDF pages.
	Pdftoppm string
}

func NewImageProcessor(pdftoppm string) *ImageProcessor {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	return &ImageProcessor{Pdftoppm: pdftoppm}
}

// PageImagePath is where ConvertPDFPage writes page of pdfPath: next to the
// PDF, named {stem}_page{N}.jpg.
func PageImagePath(pdfPath string, page int) string {
	extension := filepath.Ext(pdfPath)
	localPath := pdfPath[:len(pdfPath)-len(extension)]
	return fmt.Sprintf("%s_page%d.jpg", localPath, page)
}

func pdftoppmArgs(pdfPath, outPath string, page, dpi int) []string {
	p := strconv.Itoa(page)
	return []string{
		"-jpeg",
		"-r", strconv.Itoa(dpi),
		"-f", p, "-l", p,
		"-singlefile",
		pdfPath,
		strings.TrimSuffix(outPath, filepath.Ext(outPath)),
	}
}

// ConvertPDFPage renders a single page (1-based) of pdfPath at dpi into the
// JPEG outPath. No other page is rendered.
func (ip *ImageProcessor) ConvertPDFPage(pdfPath, outPath string, page, dpi int) error {
	if _, err := os.Stat(pdfPath); err != nil {
		return fmt.Errorf("opening pdf %s: %w", pdfPath, err)
	}
	cmd := exec.Command(ip.Pdftoppm, pdftoppmArgs(pdfPath, outPath, page, dpi)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pdftoppm failed on page %d of %s: %w: %s", page, pdfPath, err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("pdftoppm produced no image for page %d of %s: %w", page, pdfPath, err)
	}
	return nil
}

// Validate checks that path exists and decodes as a supported image.
func (ip *ImageProcessor) Validate(path string) error {
	if _, err := imaging.Open(path); err != nil {
		return fmt.Errorf("opening image %s: %w", path, err)
	}
	return nil
}

// NewBlank writes a solid white image of the given size to path. The format
// follows the file extension.
func (ip *ImageProcessor) NewBlank(path string, width, height int) error {
	img := imaging.New(width, height, color.White)
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("saving blank image: %w", err)
	}
	return nil
}

func (ip *ImageProcessor) Cleanup(filePath string) error {
	return os.Remove(filePath)
}

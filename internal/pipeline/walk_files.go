package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
)

var inputExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".pdf":  true,
}

// walkFiles lists the processable files directly inside directory, in
// directory-listing order. Subdirectories are not descended into.
func walkFiles(directory string) ([]string, error) {
	files, err := os.ReadDir(directory)
	if err != nil {
		logger.DebugLog("[walkFiles]: failed to read directory %s: %v", directory, err)
		return nil, fmt.Errorf("[walkFiles]: reading directory %s: %w", directory, err)
	}

	var paths []string
	for _, file := range files {
		fileName := file.Name()
		if file.IsDir() || !isInputFile(fileName) {
			continue
		}
		fullPath := filepath.Join(directory, fileName)
		logger.DebugLog("[walkFiles]: found file %s", fullPath)
		paths = append(paths, fullPath)
	}
	return paths, nil
}

func isInputFile(filename string) bool {
	return inputExtensions[strings.ToLower(filepath.Ext(filename))]
}

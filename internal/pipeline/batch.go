package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
)

type batchResult struct {
	items      []BatchItem
	successful int
	failed     int
}

func (r *batchResult) add(file string, res ProcessingResult) {
	r.items = append(r.items, BatchItem{File: file, Result: res})
	if res.Success {
		r.successful++
	} else {
		r.failed++
	}
}

// ProcessBatch runs Process, with persistence, over every image and PDF in
// the input directory and saves a summary next to the per-file results.
// A failing file never stops the batch.
func (d *Dispatcher) ProcessBatch(language string) BatchOutcome {
	lang := d.pool.Resolve(language)

	files, err := walkFiles(d.inputDir)
	if err == nil && len(files) == 0 {
		err = ErrNoInputFiles
	}
	if err != nil {
		logger.Log.WithField("input_dir", d.inputDir).WithError(err).Warn("Batch not started")
		return BatchOutcome{Failure: &BatchFailure{
			Success:  false,
			Error:    err.Error(),
			InputDir: d.inputDir,
		}}
	}

	logger.Log.WithFields(logrus.Fields{
		"files":    len(files),
		"language": lang,
	}).Info("Processing batch")

	results := &batchResult{}
	for _, path := range files {
		name := filepath.Base(path)
		logger.Log.WithField("file", name).Info("Processing file")
		res := d.Process(path, lang, ProcessOptions{DetectRotation: true, Persist: true})
		results.add(name, res)
	}

	now := d.now()
	summary := &BatchSummary{
		TotalFiles: len(files),
		Successful: results.successful,
		Failed:     results.failed,
		Language:   lang,
		Timestamp:  epoch(now),
		Results:    results.items,
	}

	summaryFile := d.summaryPath(lang, now.Unix())
	summary.SummarySaved = summaryFile
	if err := d.writer.WriteToFile(summary, summaryFile); err != nil {
		logger.Log.WithField("summary", summaryFile).WithError(err).Error("Saving batch summary failed")
		summary.SummarySaved = ""
	}

	logger.Log.WithFields(logrus.Fields{
		"total":      summary.TotalFiles,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}).Info("Batch finished")
	return BatchOutcome{Summary: summary}
}

// summaryPath returns batch_summary_{lang}_{unix}.json, or the first free
// batch_summary_{lang}_{unix}_{n}.json when runs share the same second.
func (d *Dispatcher) summaryPath(lang string, unix int64) string {
	base := fmt.Sprintf("batch_summary_%s_%d", lang, unix)
	path := filepath.Join(d.outputDir, base+".json")
	for n := 1; ; n++ {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(d.outputDir, fmt.Sprintf("%s_%d.json", base, n))
	}
}

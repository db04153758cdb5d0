package pipeline

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// ErrNoInputFiles is reported when a batch finds nothing to process.
var ErrNoInputFiles = errors.New("no image or PDF files found in the input directory")

// ProcessOptions are the per-request flags of Process.
type ProcessOptions struct {
	DetectRotation bool
	Persist        bool
}

// ProcessingResult is the outcome of one Process call. Exactly one of Result
// (on success) or Error (on failure) is set.
type ProcessingResult struct {
	Success        bool            `json:"success"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	Language       string          `json:"language"`
	ProcessingTime float64         `json:"processing_time"`
	Timestamp      float64         `json:"timestamp"`
	Version        string          `json:"version,omitempty"`
	AngleDetection *bool           `json:"angle_detection,omitempty"`
	ImagePath      string          `json:"image_path"`
	OutputSaved    string          `json:"output_saved,omitempty"`
}

// Failed reports whether the result carries an error instead of a payload.
func (r ProcessingResult) Failed() bool { return !r.Success }

type BatchItem struct {
	File   string           `json:"file"`
	Result ProcessingResult `json:"result"`
}

type BatchSummary struct {
	TotalFiles   int         `json:"total_files"`
	Successful   int         `json:"successful"`
	Failed       int         `json:"failed"`
	Language     string      `json:"language"`
	Timestamp    float64     `json:"timestamp"`
	Results      []BatchItem `json:"results"`
	SummarySaved string      `json:"summary_saved,omitempty"`
}

type BatchFailure struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	InputDir string `json:"input_dir"`
}

// BatchOutcome is either a summary of a completed batch or the reason no
// batch ran. Exactly one field is set.
type BatchOutcome struct {
	Summary *BatchSummary
	Failure *BatchFailure
}

func (o BatchOutcome) Success() bool { return o.Summary != nil }

func (o BatchOutcome) MarshalJSON() ([]byte, error) {
	if o.Summary != nil {
		return json.Marshal(o.Summary)
	}
	return json.Marshal(o.Failure)
}

type LanguageTest struct {
	Status       string  `json:"status"`
	ResponseTime float64 `json:"response_time"`
}

type HealthStatus struct {
	Status             string                  `json:"status"`
	Error              string                  `json:"error,omitempty"`
	Version            string                  `json:"version,omitempty"`
	SupportedLanguages []string                `json:"supported_languages,omitempty"`
	LanguageTests      map[string]LanguageTest `json:"language_tests,omitempty"`
}

func (h HealthStatus) Healthy() bool { return h.Status == StatusHealthy }

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusOK        = "ok"
)

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

package engine

// Options are the per-call knobs passed to an engine.
type Options struct {
	// DetectRotation asks the engine to detect and correct page orientation.
	DetectRotation bool
}

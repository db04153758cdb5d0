package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It writes to stderr so stdout stays
// reserved for JSON output.
var Log = logrus.New()

func init() {
	Log.SetOutput(os.Stderr)
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Log.SetLevel(logrus.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		Log.SetLevel(logrus.DebugLevel)
	}
}

// Setup switches debug output on when requested by flag or by DEBUG=1.
func Setup(debug bool) {
	if debug || os.Getenv("DEBUG") == "1" {
		Log.SetLevel(logrus.DebugLevel)
		return
	}
	Log.SetLevel(logrus.InfoLevel)
}

func DebugLog(format string, args ...any) {
	Log.Debugf(format, args...)
}

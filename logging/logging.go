// Package logging holds the process-wide logrus logger.
//
// Components derive their own entries with a "component" field:
//
//	log := logging.Log.WithFields(logrus.Fields{"component": "api"})
//	log.WithField("session_id", id).Info("session created")
//
// Init is called once from main. Until then Log writes text at info level to stderr.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger
var Log = logrus.New()

// Init configures the level and formatter of Log
func Init(debug, jsonFormat bool) {
	Log.SetOutput(os.Stderr)

	if debug {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}

	if jsonFormat {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects Log, mostly so tests and the stdio MCP server keep stdout clean
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// Component returns an entry tagged with the component name
func Component(name string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{"component": name})
}

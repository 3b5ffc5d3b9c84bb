// Package simlog provides the process-wide structured logger.
package simlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger used by every package in this module.
var Logger = newLogger()

// newLogger builds the default logger: stderr output, info level, and a
// timestamped text formatter. cmd/leosimd's --verbose flag and the
// control plane's config-driven log level adjust it further via
// SetLevel/SetOutput/SetJSONFormat rather than rebuilding it.
func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetLevel sets the logging level from a string (e.g. "debug", "info").
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput sets the log output destination.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches the logger to JSON output.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns an entry carrying a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns an entry carrying multiple fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithStation returns an entry tagged with a ground-station name.
func WithStation(station string) *logrus.Entry {
	return Logger.WithField("station", station)
}

// WithNode returns an entry tagged with a node name.
func WithNode(node string) *logrus.Entry {
	return Logger.WithField("node", node)
}

// WithTick returns an entry tagged with a geo-loop tick sequence number.
func WithTick(tick uint64) *logrus.Entry {
	return Logger.WithField("tick", tick)
}

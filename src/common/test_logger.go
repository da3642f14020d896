package common

import (
	"testing"

	"github.com/sirupsen/logrus"
)

// tLogWriter sends each log line to t.Log, so node and swarm logs are printed
// next to the test that produced them, and only when it fails or runs with -v.
type tLogWriter struct {
	t      testing.TB
	prefix string
}

func (w *tLogWriter) Write(p []byte) (int, error) {
	n := len(p)

	line := string(p)
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if w.prefix != "" {
		line = w.prefix + ": " + line
	}

	w.t.Log(line)

	return n, nil
}

// NewTestLogger returns a logger for tests. Every line ends up in t.Log.
func NewTestLogger(t testing.TB, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.Out = &tLogWriter{t: t}
	logger.Level = level
	return logger
}

// NewTestEntry returns a debug level test logger with its prefix field set,
// the way components receive their logger from Config.Logger.
func NewTestEntry(t testing.TB, prefix string) *logrus.Entry {
	return NewTestLogger(t, logrus.DebugLevel).WithField("prefix", prefix)
}

// Package logger builds the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger for the given environment. Production logs are JSON;
// everything else uses the text formatter with full timestamps. LOG_LEVEL
// overrides the default level (info, or debug in dev).
func New(env string) *logrus.Logger {
	return NewWithOutput(env, os.Getenv("LOG_LEVEL"), os.Stdout)
}

// NewWithOutput is New with explicit level and writer.
func NewWithOutput(env, level string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl := logrus.InfoLevel
	if strings.EqualFold(env, "dev") {
		lvl = logrus.DebugLevel
	}
	if level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	l.SetLevel(lvl)
	return l
}

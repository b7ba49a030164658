// Package logging provides structured logging for the scrapbook service.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// global logger instance
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. The level string follows logrus
// conventions ("debug", "info", "warn", "error"); unknown values fall back
// to info.
func Init(out io.Writer, level string) {
	once.Do(func() {
		l := logrus.New()
		l.SetOutput(out)
		l.SetFormatter(&logrus.JSONFormatter{})
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		l.SetLevel(lvl)
		global = l
	})
}

// L returns the global logger instance.
func L() *logrus.Logger {
	if global == nil {
		Init(os.Stdout, "info")
	}
	return global
}

// WithFields returns an entry with the given fields attached.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return L().WithFields(logrus.Fields(fields))
}

// Convenience functions using the global logger.

func Debug(msg string, fields ...map[string]interface{}) {
	entry(fields...).Debug(msg)
}

func Info(msg string, fields ...map[string]interface{}) {
	entry(fields...).Info(msg)
}

func Warn(msg string, fields ...map[string]interface{}) {
	entry(fields...).Warn(msg)
}

func Error(msg string, err error, fields ...map[string]interface{}) {
	e := entry(fields...)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

func entry(fields ...map[string]interface{}) *logrus.Entry {
	e := logrus.NewEntry(L())
	for _, f := range fields {
		e = e.WithFields(logrus.Fields(f))
	}
	return e
}

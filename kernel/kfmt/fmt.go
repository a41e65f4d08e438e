// Package kfmt provides the kernel console: raw Printf output for banners and
// a structured logger for diagnostics.
package kfmt

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/zhaodongru/xv6-loongarch/kernel"
)

var (
	// log is the kernel logger. Every module logs through an entry returned
	// by WithModule so the output can be filtered per module.
	log = newLogger(os.Stderr)

	errInvalidLogLevel = &kernel.Error{Module: "kfmt", Message: "invalid log level"}
)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	return l
}

// SetOutputSink redirects both Printf and logger output to w.
func SetOutputSink(w io.Writer) {
	log.SetOutput(w)
}

// SetLevel sets the minimum level of logged entries. Valid levels are the
// logrus level names (panic, fatal, error, warn, info, debug, trace).
func SetLevel(level string) *kernel.Error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errInvalidLogLevel
	}
	log.SetLevel(lvl)
	return nil
}

// WithModule returns a log entry tagged with the supplied module name.
func WithModule(module string) *logrus.Entry {
	return log.WithField("module", module)
}

// Printf writes unstructured text to the kernel console. It is used for
// output that must appear verbatim, such as the panic banner.
func Printf(format string, args ...interface{}) {
	fmt.Fprintf(log.Out, format, args...)
}

// Package logging configures the process wide logrus logger and hands out
// per component entries.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure sets level ("debug", "info", ...) and format ("text" or
// "json"). Empty values keep the current setting.
func Configure(level, format string) error {
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return errors.Wrap(err, "logging level")
		}
		root.SetLevel(lvl)
	}

	switch strings.ToLower(format) {
	case "":
	case "text":
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		root.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("logging format %q: want text or json", format)
	}
	return nil
}

// SetOutput redirects all log output. Tests use it to silence logs.
func SetOutput(w io.Writer) {
	root.SetOutput(w)
}

// GetLogger returns an entry tagged with the component name.
func GetLogger(component string) *logrus.Entry {
	return root.WithField("component", component)
}

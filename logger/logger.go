// Package logger holds the project wide logrus logger.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const projectName = "showctl"

var (
	projectLogger *logrus.Logger
	initOnce      sync.Once
)

func initialize() {
	projectLogger = logrus.New()
	projectLogger.SetOutput(os.Stderr)
	projectLogger.SetLevel(logrus.InfoLevel)
	projectLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
}

// GetProjectLogger returns an entry on the shared project logger.
func GetProjectLogger() *logrus.Entry {
	initOnce.Do(initialize)
	return logrus.NewEntry(projectLogger).WithField("name", projectName)
}

// SetLevel changes the level of the project logger. Unknown level names fall
// back to info and the parse error is returned.
func SetLevel(level string) error {
	initOnce.Do(initialize)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		projectLogger.SetLevel(logrus.InfoLevel)
		return err
	}
	projectLogger.SetLevel(parsed)
	return nil
}

// SetOutput redirects the project logger, mostly useful in tests.
func SetOutput(w io.Writer) {
	initOnce.Do(initialize)
	projectLogger.SetOutput(w)
}

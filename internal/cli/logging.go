package cli

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger returns a text logger writing to w at level.
func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return logger
}

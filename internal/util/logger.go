// internal/util/logger.go
// Logger terstruktur (logrus) dari LOG_LEVEL & LOG_FORMAT

package util

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger membuat logger; level tidak dikenal -> info, format "json" atau "text".
func NewLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(format), "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// Package logging configures the shared structured logger.
package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// New builds a logrus logger from level and format names.
// Levels: debug, info, warn, error. Formats: json, text.
func New(level, format string) (*logrus.Logger, error) {
	log := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)

	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or text)", format)
	}

	return log, nil
}

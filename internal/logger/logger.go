package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/keyauth-community/keyauth-go/pkg/config"
)

// New builds the client logger from configuration. An inactive logger keeps
// the full logrus API but writes nothing, so call sites never nil-check.
func New(cfg config.LoggerConfig) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(parseLevel(cfg.Level))

	if !cfg.Active {
		log.SetOutput(io.Discard)
	}
	return log
}

// WithName returns an entry carrying the configured logger name on every line.
func WithName(log *logrus.Logger, name string) *logrus.Entry {
	if name == "" {
		name = "keyauth"
	}
	return log.WithField("logger", name)
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

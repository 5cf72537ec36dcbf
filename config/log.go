package config

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Environment fallbacks for the log settings, for running without a
// config file.
const LogLevelEnv = "SIDECAR_LOG_LEVEL"
const LogFormatEnv = "SIDECAR_LOG_FORMAT"

// ConfigureLogger sets the global logrus level and formatter. Empty
// arguments fall back to the environment, then to info/color-text.
// Timestamps always render in UTC.
func ConfigureLogger(level, format string) {
	time.Local = time.FixedZone("UTC", 0)

	if level == "" {
		level = os.Getenv(LogLevelEnv)
	}
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	if format == "" {
		format = os.Getenv(LogFormatEnv)
	}
	switch strings.ToLower(format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
		})
	case "", "color-text":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: false,
			ForceColors:   true,
		})
	default:
		logrus.WithFields(logrus.Fields{
			"format":  format,
			"options": []string{"json", "text", "color-text"},
		}).Warn("unknown log format")
	}
}

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Format selects the log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New builds a logger writing to stderr.
func New(level string, format Format) (*logrus.Logger, error) {
	return NewWithOutput(os.Stderr, level, format)
}

// NewWithOutput builds a logger writing to w.
func NewWithOutput(w io.Writer, level string, format Format) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)

	switch format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case FormatText, "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
	return logger, nil
}

// Middleware logs one entry per HTTP request. Server errors log at error
// level, client errors at warn.
func Middleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"status":    status,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

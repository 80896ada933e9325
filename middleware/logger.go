package middleware

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/deepresearch/pkg/logging"
)

// RequestLogger logs gateway requests and their latency
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.WithComponent("gateway")
	}
	return &RequestLogger{logger: logger}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs the request before and after completion
func (m *RequestLogger) Execute(ctx *Context, next Handler) error {
	start := time.Now()
	m.logger.Debug("gateway request",
		"system_role_len", len(ctx.Request.SystemRole),
		"prompt_len", len(ctx.Request.Prompt),
	)

	err := next(ctx)

	if err != nil {
		m.logger.Warn("gateway request failed",
			"error", err,
			"elapsed", time.Since(start),
		)
		return err
	}
	m.logger.Debug("gateway response",
		"response_len", len(ctx.Response),
		"elapsed", time.Since(start),
	)
	return nil
}

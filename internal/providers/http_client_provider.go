package providers

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// leveledLogger adapts Logger to retryablehttp's leveled interface.
// Client errors are re-written to WARN because the client retries them.
type leveledLogger struct {
	inner Logger
	t     TypeEnum
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warnf(l.t, "%s %v", msg, keysAndValues)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warnf(l.t, "%s %v", msg, keysAndValues)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Infof(l.t, "%s %v", msg, keysAndValues)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debugf(l.t, "%s %v", msg, keysAndValues)
}

// NewRobustHTTPClient builds an HTTP client with retry-on-5xx and
// connection-error semantics. The returned client keeps the stdlib
// interface; retryablehttp logic runs underneath.
func NewRobustHTTPClient(logger Logger, t TypeEnum, timeout time.Duration) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledLogger{inner: logger, t: t})

	client := retryClient.StandardClient()
	client.Timeout = timeout
	return client
}

package internal

import (
	"io"

	"github.com/starford/tickler/internal/review"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	notifier review.Notifier
	logOut   io.Writer
	version  string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithNotifier sets where review notices are delivered in addition to the
// log. The HTTP server also sends them to SSE clients.
func WithNotifier(n review.Notifier) Option {
	return func(a *application) {
		a.notifier = n
	}
}

// WithLogOutput redirects the JSON log. The MCP server needs stdout for
// the protocol and logs to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

package vision

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/teslashibe/go-snaplabel/internal/httpc"
)

// DefaultEndpoint is the public Cloud Vision REST endpoint.
const DefaultEndpoint = "https://vision.googleapis.com/"

// Config holds client configuration.
type Config struct {
	// Authentication. APIKey wins when both are set.
	APIKey          string
	CredentialsFile string
	CredentialsJSON []byte

	// Endpoint is the API base URL.
	Endpoint string

	// HTTPClient carries the request; its timeout is the only deadline a
	// classification gets.
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithAPIKey sets the static API key attached to every call.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithCredentialsFile authenticates with a service account JSON file.
func WithCredentialsFile(path string) Option {
	return func(c *Config) { c.CredentialsFile = path }
}

// WithCredentialsJSON authenticates with service account JSON bytes.
func WithCredentialsJSON(data []byte) Option {
	return func(c *Config) { c.CredentialsJSON = data }
}

// WithEndpoint overrides the API base URL.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Endpoint = url }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for the public endpoint.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:   DefaultEndpoint,
		HTTPClient: httpc.Client,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present and normalizes the
// endpoint.
func (c *Config) Validate() error {
	if c.APIKey == "" && c.CredentialsFile == "" && len(c.CredentialsJSON) == 0 {
		return ErrNoCredentials
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(c.Endpoint, "/") {
		c.Endpoint += "/"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = httpc.Client
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

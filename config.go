package changestream

import (
	"context"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config holds the changestream configuration
type Config struct {
	// URL is the redis endpoint (redis:// or rediss://). Empty means the
	// plugin initializes inert and never publishes.
	URL string

	// Stream is the name of the stream entries are appended to.
	Stream string

	// Suffixes is the ordered list of collection suffixes that mark a
	// collection as relevant (e.g. "_products", "_categories").
	Suffixes []string

	// Retry settings for the connection state machine
	MaxAttempts int
	BackoffStep time.Duration
	BackoffCap  time.Duration

	// InsecureSkipVerify disables certificate validation on rediss://
	// endpoints. Off by default; enable only for deployments where the
	// store terminates TLS with an unverifiable certificate.
	InsecureSkipVerify bool

	// MaxLen caps the stream length via approximate trimming on append.
	// Zero means no trimming.
	MaxLen int64

	// DialFunc replaces the default dial for tests
	DialFunc func(ctx context.Context) (*redis.Client, error)
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Stream:      "content-events",
		Suffixes:    []string{"_products", "_categories"},
		MaxAttempts: 5,
		BackoffStep: 200 * time.Millisecond,
		BackoffCap:  2 * time.Second,
	}
}

// Option configures the changestream plugin
type Option func(*Config)

// WithURL sets the redis endpoint
func WithURL(url string) Option {
	return func(c *Config) {
		c.URL = url
	}
}

// WithStream sets the stream name
func WithStream(stream string) Option {
	return func(c *Config) {
		c.Stream = stream
	}
}

// WithSuffixes sets the ordered collection suffix list
func WithSuffixes(suffixes ...string) Option {
	return func(c *Config) {
		c.Suffixes = suffixes
	}
}

// WithRetry sets the reconnect policy
func WithRetry(attempts int, step, cap time.Duration) Option {
	return func(c *Config) {
		c.MaxAttempts = attempts
		c.BackoffStep = step
		c.BackoffCap = cap
	}
}

// WithInsecureSkipVerify disables certificate validation for rediss://
func WithInsecureSkipVerify() Option {
	return func(c *Config) {
		c.InsecureSkipVerify = true
	}
}

// WithMaxLen enables approximate stream trimming at the given length
func WithMaxLen(maxLen int64) Option {
	return func(c *Config) {
		c.MaxLen = maxLen
	}
}

// WithDialFunc sets the dial hook
func WithDialFunc(dial func(ctx context.Context) (*redis.Client, error)) Option {
	return func(c *Config) {
		c.DialFunc = dial
	}
}

// ConfigFromViper builds a Config from application configuration.
// "changestream.url" is the canonical endpoint key; "redis.url" is kept as
// a fallback for hosts that already configure a shared redis connection.
func ConfigFromViper(v *viper.Viper) Config {
	cfg := DefaultConfig()

	cfg.URL = v.GetString("changestream.url")
	if cfg.URL == "" {
		cfg.URL = v.GetString("redis.url")
	}

	if v.IsSet("changestream.stream") {
		cfg.Stream = v.GetString("changestream.stream")
	}

	if v.IsSet("changestream.suffixes") {
		cfg.Suffixes = v.GetStringSlice("changestream.suffixes")
	}

	if v.IsSet("changestream.max_attempts") {
		cfg.MaxAttempts = v.GetInt("changestream.max_attempts")
	}

	if v.IsSet("changestream.backoff_step") {
		cfg.BackoffStep = v.GetDuration("changestream.backoff_step")
	}

	if v.IsSet("changestream.backoff_cap") {
		cfg.BackoffCap = v.GetDuration("changestream.backoff_cap")
	}

	cfg.InsecureSkipVerify = v.GetBool("changestream.insecure_skip_verify")
	cfg.MaxLen = v.GetInt64("changestream.max_len")

	return cfg
}

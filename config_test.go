package changestream

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Stream != "content-events" {
		t.Errorf("expected stream content-events, got %s", cfg.Stream)
	}

	if cfg.MaxAttempts != 5 {
		t.Errorf("expected MaxAttempts 5, got %d", cfg.MaxAttempts)
	}

	if cfg.BackoffStep != 200*time.Millisecond {
		t.Errorf("expected BackoffStep 200ms, got %v", cfg.BackoffStep)
	}

	if cfg.BackoffCap != 2*time.Second {
		t.Errorf("expected BackoffCap 2s, got %v", cfg.BackoffCap)
	}

	if cfg.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify false")
	}

	if len(cfg.Suffixes) != 2 || cfg.Suffixes[0] != "_products" {
		t.Errorf("unexpected default suffixes: %v", cfg.Suffixes)
	}
}

func TestWithURL(t *testing.T) {
	cfg := Config{}
	WithURL("redis://localhost:6379/0")(&cfg)

	if cfg.URL != "redis://localhost:6379/0" {
		t.Errorf("expected url to be set, got %s", cfg.URL)
	}
}

func TestWithSuffixes(t *testing.T) {
	cfg := Config{}
	WithSuffixes("_assets", "_pages")(&cfg)

	if len(cfg.Suffixes) != 2 || cfg.Suffixes[1] != "_pages" {
		t.Errorf("unexpected suffixes: %v", cfg.Suffixes)
	}
}

func TestWithRetry(t *testing.T) {
	cfg := Config{}
	WithRetry(3, 100*time.Millisecond, time.Second)(&cfg)

	if cfg.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts 3, got %d", cfg.MaxAttempts)
	}

	if cfg.BackoffStep != 100*time.Millisecond || cfg.BackoffCap != time.Second {
		t.Errorf("unexpected backoff settings: %v %v", cfg.BackoffStep, cfg.BackoffCap)
	}
}

func TestConfigFromViper(t *testing.T) {
	v := viper.New()
	v.Set("changestream.url", "rediss://cache:6380")
	v.Set("changestream.stream", "search-events")
	v.Set("changestream.suffixes", []string{"_assets"})
	v.Set("changestream.max_attempts", 7)
	v.Set("changestream.backoff_step", "50ms")
	v.Set("changestream.insecure_skip_verify", true)
	v.Set("changestream.max_len", 10000)

	cfg := ConfigFromViper(v)

	if cfg.URL != "rediss://cache:6380" {
		t.Errorf("unexpected url: %s", cfg.URL)
	}

	if cfg.Stream != "search-events" {
		t.Errorf("unexpected stream: %s", cfg.Stream)
	}

	if len(cfg.Suffixes) != 1 || cfg.Suffixes[0] != "_assets" {
		t.Errorf("unexpected suffixes: %v", cfg.Suffixes)
	}

	if cfg.MaxAttempts != 7 {
		t.Errorf("expected MaxAttempts 7, got %d", cfg.MaxAttempts)
	}

	if cfg.BackoffStep != 50*time.Millisecond {
		t.Errorf("expected BackoffStep 50ms, got %v", cfg.BackoffStep)
	}

	if !cfg.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify true")
	}

	if cfg.MaxLen != 10000 {
		t.Errorf("expected MaxLen 10000, got %d", cfg.MaxLen)
	}

	// defaults survive unset keys
	if cfg.BackoffCap != 2*time.Second {
		t.Errorf("expected default BackoffCap, got %v", cfg.BackoffCap)
	}
}

func TestConfigFromViperFallbackURL(t *testing.T) {
	v := viper.New()
	v.Set("redis.url", "redis://shared:6379")

	cfg := ConfigFromViper(v)

	if cfg.URL != "redis://shared:6379" {
		t.Errorf("expected fallback url, got %s", cfg.URL)
	}
}

func TestConfigFromViperCanonicalWins(t *testing.T) {
	v := viper.New()
	v.Set("redis.url", "redis://shared:6379")
	v.Set("changestream.url", "redis://dedicated:6379")

	cfg := ConfigFromViper(v)

	if cfg.URL != "redis://dedicated:6379" {
		t.Errorf("expected canonical key to win, got %s", cfg.URL)
	}
}

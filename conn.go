package changestream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/golly-go/golly"
	"github.com/sirupsen/logrus"
)

// State is the connection lifecycle state
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateDisabled is terminal: all retry attempts are spent and no
	// further connects happen until process restart.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

var errNotConnected = errors.New("changestream: not connected")

const dialTimeout = 10 * time.Second

// Conn owns the single long-lived connection to the stream store and its
// connect/retry/disable state machine. The background loop started by
// Start is the sole mutator of the state; publishers only read
// availability and report append failures.
type Conn struct {
	cfg    Config
	logger *logrus.Entry

	state atomic.Int32

	mu     sync.Mutex
	client *redis.Client

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewConn creates a connection manager. It performs no I/O; the first dial
// happens in the background once Start is called.
func NewConn(cfg Config, logger *logrus.Entry) *Conn {
	if logger == nil {
		logger = logrus.NewEntry(golly.NewLogger())
	}

	return &Conn{
		cfg:    cfg,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the reconnect loop and returns immediately.
func (c *Conn) Start() {
	go c.run()
}

// Stop terminates the reconnect loop and closes the client. In-flight
// appends are not cancelled; they fail or finish on their own.
func (c *Conn) Stop() {
	c.stopOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		_ = c.client.Close()
		c.client = nil
	}
}

// State returns the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Available reports whether appends can currently be attempted.
func (c *Conn) Available() bool {
	return c.State() == StateConnected
}

// Append adds one entry to the stream and returns the id assigned by the
// server. A failed append flips the connection back into its reconnect
// path; the entry itself is the caller's to drop or count.
func (c *Conn) Append(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil || !c.Available() {
		return "", errNotConnected
	}

	args := &redis.XAddArgs{Stream: stream, Values: values}
	if c.cfg.MaxLen > 0 {
		args.MaxLen = c.cfg.MaxLen
		args.Approx = true
	}

	id, err := client.XAdd(ctx, args).Result()
	if err != nil {
		if ctx.Err() == nil {
			c.markFailure()
		}
		return "", err
	}

	return id, nil
}

// markFailure signals the loop that the connected client went bad. Safe to
// call from any number of publishers; redundant signals coalesce.
func (c *Conn) markFailure() {
	if c.State() != StateConnected {
		return
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Conn) dial(ctx context.Context) (*redis.Client, error) {
	if c.cfg.DialFunc != nil {
		return c.cfg.DialFunc(ctx)
	}

	opts, err := redis.ParseURL(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("changestream: invalid url: %w", err)
	}

	if opts.TLSConfig != nil && c.cfg.InsecureSkipVerify {
		opts.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// run is the reconnect loop. Backoff is linear in the attempt number and
// capped; the attempt counter resets only on a successful connect. Errors
// are logged on the transition into an outage, not on every retry.
func (c *Conn) run() {
	attempt := 0

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.setState(StateConnecting)

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		client, err := c.dial(ctx)
		cancel()

		if err == nil {
			c.mu.Lock()
			c.client = client
			c.mu.Unlock()

			attempt = 0
			c.setState(StateConnected)
			c.logger.Infof("changestream: connected, publishing to stream %q", c.cfg.Stream)

			select {
			case <-c.done:
				return
			case <-c.wake:
			}

			c.setState(StateDisconnected)
			c.logger.Warnf("changestream: connection lost, reconnecting")

			c.mu.Lock()
			if c.client != nil {
				_ = c.client.Close()
				c.client = nil
			}
			c.mu.Unlock()

			continue
		}

		attempt++

		if attempt == 1 {
			c.logger.Errorf("changestream: connect failed: %v", err)
		}

		if attempt > c.cfg.MaxAttempts {
			c.setState(StateDisabled)
			c.logger.Warnf("changestream: giving up after %d failed attempts, publishing disabled", attempt)
			return
		}

		select {
		case <-c.done:
			return
		case <-time.After(backoffDelay(attempt, c.cfg.BackoffStep, c.cfg.BackoffCap)):
		}
	}
}

// backoffDelay is linear in the attempt number, capped at max.
func backoffDelay(attempt int, step, max time.Duration) time.Duration {
	d := time.Duration(attempt) * step
	if d > max {
		d = max
	}
	return d
}

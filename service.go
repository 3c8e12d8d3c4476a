package changestream

import (
	"context"
	"sync/atomic"

	"github.com/golly-go/golly"
)

// Service implements golly.Service and owns the connection manager's
// lifetime. Start returns control of the connection loop to the framework;
// the loop itself never blocks host requests.
type Service struct {
	plugin  *Plugin
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
}

// NewService creates the changestream service
func NewService(plugin *Plugin) *Service {
	return &Service{plugin: plugin}
}

// Name returns the service name
func (s *Service) Name() string {
	return "changestream-publisher"
}

// Description returns the service description
func (s *Service) Description() string {
	return "Publishes content change events to the configured stream"
}

// Initialize prepares the service
func (s *Service) Initialize(app *golly.Application) error {
	return nil
}

// Start launches the reconnect loop and blocks until Stop is called. The
// framework runs this in its own goroutine; an inert plugin just idles.
func (s *Service) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if s.plugin.enabled {
		s.plugin.conn.Start()
	}

	s.running.Store(true)
	<-s.ctx.Done()
	s.running.Store(false)

	return nil
}

// Stop unblocks Start and tears down the connection.
func (s *Service) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}

	if s.plugin.conn != nil {
		s.plugin.conn.Stop()
	}

	return nil
}

// IsRunning indicates if the service is active
func (s *Service) IsRunning() bool {
	if s.ctx == nil {
		return false
	}

	return s.running.Load()
}

var _ golly.Service = (*Service)(nil)

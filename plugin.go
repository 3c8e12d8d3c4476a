package changestream

import (
	"github.com/golly-go/golly"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	PluginName = "changestream"
)

// Event names the host dispatches on its event manager when content
// mutations commit. Creates and updates both publish as upserts.
const (
	EventItemsCreate = "items.create"
	EventItemsUpdate = "items.update"
	EventItemsDelete = "items.delete"
)

// RecordEvent is the payload dispatched under the Event* names.
type RecordEvent struct {
	Collection string
	IDs        []string
}

// Plugin implements the golly.Plugin interface
type Plugin struct {
	config    Config
	conn      *Conn
	publisher *Publisher
	enabled   bool

	cfgFunc func(app *golly.Application) Config
}

// NewPlugin creates a new changestream plugin
func NewPlugin(opts ...Option) *Plugin {
	p := &Plugin{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&p.config)
	}
	return p
}

// NewPluginWithConfigFunc defers configuration until the application is
// available, typically to read it via ConfigFromViper.
func NewPluginWithConfigFunc(cfgFunc func(app *golly.Application) Config) *Plugin {
	return &Plugin{
		config:  DefaultConfig(),
		cfgFunc: cfgFunc,
	}
}

// Name returns the plugin name
func (p *Plugin) Name() string { return PluginName }

// Initialize sets up the publisher and its connection manager. A missing
// endpoint is not an error: the plugin stays inert for the process
// lifetime and the host never notices.
func (p *Plugin) Initialize(app *golly.Application) error {
	if p.cfgFunc != nil {
		p.config = p.cfgFunc(app)
	}

	if p.config.URL == "" && p.config.DialFunc == nil {
		app.Logger().Infof("changestream: no endpoint configured, publishing disabled")
		return nil
	}

	p.enabled = true
	p.conn = NewConn(p.config, logrus.NewEntry(golly.NewLogger()))
	p.publisher = NewPublisher(p.config, p.conn, logrus.NewEntry(golly.NewLogger()))

	app.Events().Register(EventItemsCreate, p.onRecordEvent(ActionUpsert))
	app.Events().Register(EventItemsUpdate, p.onRecordEvent(ActionUpsert))
	app.Events().Register(EventItemsDelete, p.onRecordEvent(ActionDelete))

	app.Events().Register(golly.EventShutdown, func(gctx *golly.Context, event *golly.Event) {
		p.conn.Stop()
	})

	return nil
}

// Deinitialize cleans up the plugin
func (p *Plugin) Deinitialize(app *golly.Application) error {
	if p.conn != nil {
		p.conn.Stop()
	}
	return nil
}

// Publisher returns the publisher instance; nil when the plugin is inert.
func (p *Plugin) Publisher() *Publisher { return p.publisher }

// Conn returns the connection manager; nil when the plugin is inert.
func (p *Plugin) Conn() *Conn { return p.conn }

// Enabled reports whether an endpoint was configured.
func (p *Plugin) Enabled() bool { return p.enabled }

func (p *Plugin) Services() []golly.Service {
	return []golly.Service{
		NewService(p),
	}
}

func (p *Plugin) Commands() []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "changestream:status",
			Short: "Print connection state and publish counters",
			Run: func(cmd *cobra.Command, args []string) {
				if !p.enabled {
					cmd.Println("changestream: disabled (no endpoint configured)")
					return
				}

				stats := p.publisher.Stats()
				cmd.Printf("state=%s published=%d dropped=%d skipped=%d\n",
					p.conn.State(), stats.Published, stats.Dropped, stats.Skipped)
			},
		},
		{
			Use:   "changestream:publish [collection] [id...]",
			Short: "Publish a test upsert entry for the given records",
			Args:  cobra.MinimumNArgs(2),
			Run: func(cmd *cobra.Command, args []string) {
				if !p.enabled {
					cmd.Println("changestream: disabled (no endpoint configured)")
					return
				}

				p.publisher.RecordsUpdated(cmd.Context(), args[0], args[1:])
			},
		},
	}
}

func (p *Plugin) onRecordEvent(action Action) golly.EventFunc {
	return func(gctx *golly.Context, event *golly.Event) {
		if e, ok := event.Data.(RecordEvent); ok {
			p.publisher.Handle(gctx, Notification{Action: action, Collection: e.Collection, IDs: e.IDs})
		}
	}
}

var _ golly.Plugin = (*Plugin)(nil)

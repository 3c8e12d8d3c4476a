package changestream

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/golly-go/golly"
	"github.com/sirupsen/logrus"
)

// appender is the slice of Conn the publisher needs.
// Keeping it an interface allows easy test stubbing.
type appender interface {
	Available() bool
	Append(ctx context.Context, stream string, values map[string]interface{}) (string, error)
}

// Stats is a snapshot of publisher counters. Failure states stay observable
// without parsing logs.
type Stats struct {
	Published int64
	Dropped   int64
	Skipped   int64
}

// Publisher converts change notifications into stream entries. Its public
// contract is failure-opaque: Handle never returns an error and never
// panics toward the host, whatever the stream store is doing.
type Publisher struct {
	cfg    Config
	conn   appender
	logger *logrus.Entry

	published atomic.Int64
	dropped   atomic.Int64
	skipped   atomic.Int64
}

// NewPublisher creates a publisher appending through conn.
func NewPublisher(cfg Config, conn appender, logger *logrus.Entry) *Publisher {
	if logger == nil {
		logger = logrus.NewEntry(golly.NewLogger())
	}

	return &Publisher{cfg: cfg, conn: conn, logger: logger}
}

// Handle appends one stream entry per affected record. Empty batches,
// irrelevant collections, and an unavailable connection are silent no-ops.
// A failed append is logged, counted, and dropped; the rest of the batch
// still goes out. Safe for concurrent use; entries within one call keep
// the order of n.IDs.
func (p *Publisher) Handle(ctx context.Context, n Notification) {
	if len(n.IDs) == 0 {
		return
	}

	classification := Classify(n.Collection, p.cfg.Suffixes)
	if !classification.Relevant {
		return
	}

	if p.conn == nil || !p.conn.Available() {
		p.skipped.Add(int64(len(n.IDs)))
		return
	}

	for _, id := range n.IDs {
		values := map[string]interface{}{
			"action":      string(n.Action),
			"tenant":      classification.Tenant,
			"entity_type": classification.EntityKind,
			"entity_id":   id,
			"collection":  n.Collection,
			"timestamp":   strconv.FormatInt(time.Now().UnixMilli(), 10),
		}

		if _, err := p.conn.Append(ctx, p.cfg.Stream, values); err != nil {
			p.dropped.Add(1)
			p.logger.Errorf("changestream: dropped entry %s/%s: %v", n.Collection, id, err)
			continue
		}

		p.published.Add(1)
	}
}

// RecordCreated is the bind point for the host's record-created lifecycle
// notification.
func (p *Publisher) RecordCreated(ctx context.Context, collection, id string) {
	p.Handle(ctx, Notification{Action: ActionUpsert, Collection: collection, IDs: []string{id}})
}

// RecordsUpdated is the bind point for the host's records-updated lifecycle
// notification.
func (p *Publisher) RecordsUpdated(ctx context.Context, collection string, ids []string) {
	p.Handle(ctx, Notification{Action: ActionUpsert, Collection: collection, IDs: ids})
}

// RecordsDeleted is the bind point for the host's records-deleted lifecycle
// notification.
func (p *Publisher) RecordsDeleted(ctx context.Context, collection string, ids []string) {
	p.Handle(ctx, Notification{Action: ActionDelete, Collection: collection, IDs: ids})
}

// Stats returns a snapshot of the publish counters.
func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Skipped:   p.skipped.Load(),
	}
}

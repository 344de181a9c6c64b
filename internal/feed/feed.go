// Package feed keeps a display surface in step with a live query over the
// photos collection.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"geosnap/internal/model"
)

// Source is a record store that can stream snapshots.
type Source interface {
	Subscribe(ctx context.Context, q model.Query, fn func(model.Snapshot)) (func(), error)
}

// Surface renders a snapshot. It replaces whatever it showed before.
type Surface interface {
	Render(model.Snapshot)
}

type SurfaceFunc func(model.Snapshot)

func (f SurfaceFunc) Render(s model.Snapshot) { f(s) }

// Consumer owns one subscription while open. A screen opens it on focus
// and closes it on blur; each Open is paired with exactly one unsubscribe.
type Consumer struct {
	source  Source
	query   model.Query
	surface Surface
	logger  *slog.Logger

	// lifecycle serializes Open and Close
	lifecycle sync.Mutex

	mu          sync.Mutex
	gen         uint64
	unsubscribe func()
	current     model.Snapshot
	opened      int
}

func NewConsumer(name string, source Source, q model.Query, surface Surface, logger *slog.Logger) *Consumer {
	return &Consumer{
		source:  source,
		query:   q,
		surface: surface,
		logger:  logger.With("component", "feed", "consumer", name),
	}
}

// Open subscribes. Opening an open consumer does nothing.
func (c *Consumer) Open(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	unsubscribe, err := c.source.Subscribe(ctx, c.query, func(s model.Snapshot) {
		c.deliver(gen, s)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribe = unsubscribe
	c.opened++
	c.logger.Debug("subscribed", "open", c.opened)
	return nil
}

func (c *Consumer) deliver(gen uint64, s model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.current = s
	c.surface.Render(s)
}

// Close unsubscribes. It is safe to call at any time and more than once.
func (c *Consumer) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	c.gen++
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		c.logger.Debug("unsubscribed")
	}
}

func (c *Consumer) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribe != nil
}

// Snapshot is the most recent state delivered while open.
func (c *Consumer) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

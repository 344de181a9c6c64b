package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"geosnap/internal/model"
)

// hub fans out change notifications. Each listener has its own goroutine
// and a one-slot wake channel, so a burst of writes collapses into a single
// re-read for a slow listener.
type hub struct {
	store  *Store
	logger *slog.Logger

	mu        sync.Mutex
	nextID    int
	listeners map[int]*listener
}

type listener struct {
	id    int
	query model.Query
	fn    func(model.Snapshot)
	wake  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}

	// held while fn runs; closed is set under it
	deliverMu sync.Mutex
	closed    bool
}

func newHub(s *Store, logger *slog.Logger) *hub {
	return &hub{
		store:     s,
		logger:    logger,
		listeners: make(map[int]*listener),
	}
}

// Subscribe registers fn for snapshots of q. fn is called once with the
// current result set and again after every write. The returned function
// detaches the listener; it is safe to call more than once, and fn is
// never invoked after it returns. It must not be called from inside fn.
func (s *Store) Subscribe(ctx context.Context, q model.Query, fn func(model.Snapshot)) (func(), error) {
	return s.hub.add(ctx, q, fn), nil
}

// ActiveListeners reports how many subscriptions are attached.
func (s *Store) ActiveListeners() int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return len(s.hub.listeners)
}

func (h *hub) add(ctx context.Context, q model.Query, fn func(model.Snapshot)) func() {
	lctx, cancel := context.WithCancel(ctx)
	l := &listener{
		query:  q,
		fn:     fn,
		wake:   make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.wake <- struct{}{}

	h.mu.Lock()
	h.nextID++
	l.id = h.nextID
	h.listeners[l.id] = l
	h.mu.Unlock()

	go h.run(lctx, l)

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(l) })
	}
}

func (h *hub) remove(l *listener) {
	l.deliverMu.Lock()
	l.closed = true
	l.deliverMu.Unlock()

	l.cancel()
	<-l.done
}

func (h *hub) drop(l *listener) {
	h.mu.Lock()
	delete(h.listeners, l.id)
	h.mu.Unlock()
}

// run delivers snapshots until ctx ends, either through the returned
// unsubscribe or the subscriber's own context.
func (h *hub) run(ctx context.Context, l *listener) {
	defer close(l.done)
	defer h.drop(l)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}

		records, err := h.store.List(ctx, l.query)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warn("snapshot read failed", "listener", l.id, "err", err)
			continue
		}

		l.deliverMu.Lock()
		if !l.closed {
			l.fn(model.Snapshot{Records: records, ReadAt: time.Now()})
		}
		l.deliverMu.Unlock()
	}
}

func (h *hub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.listeners {
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	ls := make([]*listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		ls = append(ls, l)
	}
	h.mu.Unlock()

	for _, l := range ls {
		h.remove(l)
	}
}

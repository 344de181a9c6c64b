package location

import (
	"context"
	"time"

	"geosnap/internal/model"
)

// Watch starts refreshing the last-known fix every WatchInterval. It is a
// no-op while a watch is already running. Errors from individual readings
// are logged at debug level and otherwise dropped; callers only ever see
// the last fix that did succeed.
func (p *Provider) Watch(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchCancel != nil {
		return
	}

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.watchCancel = cancel
	p.watchDone = done

	go func() {
		defer close(done)
		p.runWatch(wctx)
	}()
}

func (p *Provider) runWatch(ctx context.Context) {
	interval := p.opts.WatchInterval
	if interval <= 0 {
		interval = DefaultOptions().WatchInterval
	}
	req := FixRequest{HighAccuracy: true, Timeout: interval, MaximumAge: p.opts.WatchMaxAge}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.refresh(ctx, req)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx, req)
		}
	}
}

func (p *Provider) refresh(ctx context.Context, req FixRequest) {
	fctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	fix, err := p.source.CurrentFix(fctx, req)
	if err != nil {
		p.logger.Debug("watch reading dropped", "err", err)
		return
	}
	pos := toPosition(fix, model.AccuracyHigh)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchCancel == nil || ctx.Err() != nil {
		return
	}
	p.last = &pos
	p.lastAt = p.now()
}

// ClearWatch stops the watch and waits for it to exit. Safe to call any
// number of times.
func (p *Provider) ClearWatch() {
	p.mu.Lock()
	cancel, done := p.watchCancel, p.watchDone
	p.watchCancel, p.watchDone = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Watching reports whether a watch is active.
func (p *Provider) Watching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watchCancel != nil
}

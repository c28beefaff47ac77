// Package eventloop delivers host input and render ticks to a Dispatcher one at a time
// from a single queue.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"cdr.dev/slog"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/lib/go2"
	"oss.terrastruct.com/canvasglue/lib/log"
)

// DefaultInterval is the render tick cadence, 20 frames per second.
const DefaultInterval = 50 * time.Millisecond

var ErrClosed = errors.New("event loop closed")

type Opts struct {
	// Interval is the render tick cadence. Zero means DefaultInterval and a negative value
	// disables the ticker.
	Interval time.Duration
	// Ticks, if set, replaces the internal ticker.
	Ticks <-chan time.Time
	// QueueSize bounds the number of pending events.
	QueueSize int
	// StopOnError makes Run return the first dispatch error instead of logging it.
	StopOnError bool
}

type Loop struct {
	d    *dispatch.Dispatcher
	opts Opts

	events chan Event

	runOnce  sync.Once
	doneOnce sync.Once
	done     chan struct{}
}

func New(d *dispatch.Dispatcher, opts Opts) *Loop {
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	return &Loop{
		d:      d,
		opts:   opts,
		events: make(chan Event, go2.Max(opts.QueueSize, 1)),
		done:   make(chan struct{}),
	}
}

// Post queues ev, blocking until there is room, ctx is done or the loop has stopped.
func (l *Loop) Post(ctx context.Context, ev Event) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPost queues ev without blocking and reports whether it was queued.
// Browser callbacks must not block, so they use TryPost.
func (l *Loop) TryPost(ev Event) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- ev:
		return true
	default:
		return false
	}
}

// Sync blocks until every event posted before it has been dispatched.
func (l *Loop) Sync(ctx context.Context) error {
	ev := syncEvent(make(chan struct{}))
	err := l.Post(ctx, ev)
	if err != nil {
		return err
	}
	select {
	case <-ev:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

type syncEvent chan struct{}

func (ev syncEvent) Dispatch(context.Context, *dispatch.Dispatcher) error {
	close(ev)
	return nil
}

func (syncEvent) String() string {
	return "sync"
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run starts the dispatcher and then serves events and ticks until ctx is done.
// It may only be called once.
func (l *Loop) Run(ctx context.Context) (err error) {
	ran := false
	l.runOnce.Do(func() {
		ran = true
		err = l.run(ctx)
	})
	if !ran {
		return errors.New("event loop already ran")
	}
	return err
}

func (l *Loop) run(ctx context.Context) error {
	defer l.doneOnce.Do(func() { close(l.done) })
	ctx = log.Named(ctx, "eventloop")

	err := l.d.Start(ctx)
	if err != nil {
		return err
	}

	ticks := l.opts.Ticks
	if ticks == nil && l.opts.Interval > 0 {
		t := time.NewTicker(l.opts.Interval)
		defer t.Stop()
		ticks = t.C
	}
	log.Debug(ctx, "event loop started", slog.F("variant", l.d.Variant().Name), slog.F("interval", l.opts.Interval))

	for {
		select {
		case ev := <-l.events:
			err = ev.Dispatch(ctx, l.d)
			if err != nil {
				if l.opts.StopOnError {
					return err
				}
				log.Error(ctx, "failed to dispatch event", slog.F("event", ev.String()), slog.Error(err))
			}
		case _, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			err = l.d.Tick(ctx)
			if err != nil {
				if l.opts.StopOnError {
					return err
				}
				log.Error(ctx, "failed to tick", slog.Error(err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Package dispatch translates host input into backend operations.
//
// A Dispatcher is stateless: it holds an immutable reference to the backend and the
// variant it was constructed with, and every call forwards synchronously. Transformation
// state lives in the backend.
package dispatch

import (
	"context"

	"oss.terrastruct.com/xdefer"
)

type Dispatcher struct {
	backend Backend
	variant *Variant
}

// New returns a Dispatcher forwarding to b according to v.
// A nil backend or variant is a startup ordering bug and panics.
func New(b Backend, v *Variant) *Dispatcher {
	if b == nil {
		panic("dispatch: nil backend")
	}
	if v == nil {
		panic("dispatch: nil variant")
	}
	return &Dispatcher{
		backend: b,
		variant: v,
	}
}

func (d *Dispatcher) mustBackend() Backend {
	if d == nil || d.backend == nil || d.variant == nil {
		panic("dispatch: backend not initialized")
	}
	return d.backend
}

func (d *Dispatcher) Variant() *Variant {
	d.mustBackend()
	return d.variant
}

// Start performs the one-time setup of the variant, clearing the canvas if requested.
func (d *Dispatcher) Start(ctx context.Context) (err error) {
	b := d.mustBackend()
	if !d.variant.ClearOnStart {
		return nil
	}
	defer xdefer.Errorf(&err, "failed to clear canvas")
	return b.ClearCanvas(ctx)
}

// Key forwards the command code for key to the backend.
// Keys outside the variant's table are dropped without a backend call.
func (d *Dispatcher) Key(ctx context.Context, key string) (err error) {
	b := d.mustBackend()
	code, ok := d.variant.Keys.Translate(key)
	if !ok {
		return nil
	}
	defer xdefer.Errorf(&err, "failed to press %q (%v)", key, code)
	return b.KeyPress(ctx, code)
}

// PointerDown forwards a primary pointer press at (x, y) unchanged.
func (d *Dispatcher) PointerDown(ctx context.Context, x, y float64) (err error) {
	b := d.mustBackend()
	if !d.variant.Pointer {
		return nil
	}
	defer xdefer.Errorf(&err, "failed to forward pointer down at (%v, %v)", x, y)
	return b.PointerDown(ctx, x, y)
}

// PointerMove forwards pointer motion to (x, y) unchanged. Every call is forwarded;
// wrap the backend in a Coalescer to collapse bursts.
func (d *Dispatcher) PointerMove(ctx context.Context, x, y float64) (err error) {
	b := d.mustBackend()
	if !d.variant.Pointer {
		return nil
	}
	defer xdefer.Errorf(&err, "failed to forward pointer move to (%v, %v)", x, y)
	return b.PointerMove(ctx, x, y)
}

// Wheel forwards delta unchanged.
func (d *Dispatcher) Wheel(ctx context.Context, delta float64) (err error) {
	b := d.mustBackend()
	if !d.variant.Wheel {
		return nil
	}
	defer xdefer.Errorf(&err, "failed to forward wheel %v", delta)
	return b.Wheel(ctx, delta)
}

// Tick runs the variant's tick plan in order. It stops at the first failing operation so
// that a frame is never painted after a failed commit.
func (d *Dispatcher) Tick(ctx context.Context) error {
	b := d.mustBackend()
	for _, op := range d.variant.Tick {
		err := tick(ctx, b, op)
		if err != nil {
			return err
		}
	}
	return nil
}

func tick(ctx context.Context, b Backend, op Op) (err error) {
	defer xdefer.Errorf(&err, "failed to tick at %s", op)
	return CallNullary(ctx, b, op)
}

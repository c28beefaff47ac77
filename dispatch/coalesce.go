package dispatch

import (
	"context"

	"oss.terrastruct.com/canvasglue/keymap"
)

// Coalescer wraps a Backend and collapses bursts of pointer moves: only the latest
// pending move is kept, and it is delivered before any other call reaches the wrapped
// backend. It is not safe for concurrent use; hosts call it from their event loop.
type Coalescer struct {
	b Backend

	pending bool
	x, y    float64
}

var _ Backend = &Coalescer{}

func NewCoalescer(b Backend) *Coalescer {
	return &Coalescer{b: b}
}

// Flush delivers the pending move, if any.
func (c *Coalescer) Flush(ctx context.Context) error {
	if !c.pending {
		return nil
	}
	c.pending = false
	return c.b.PointerMove(ctx, c.x, c.y)
}

func (c *Coalescer) PointerMove(ctx context.Context, x, y float64) error {
	c.pending = true
	c.x, c.y = x, y
	return nil
}

func (c *Coalescer) ClearCanvas(ctx context.Context) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	return c.b.ClearCanvas(ctx)
}

func (c *Coalescer) KeyPress(ctx context.Context, code keymap.Code) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	return c.b.KeyPress(ctx, code)
}

func (c *Coalescer) PointerDown(ctx context.Context, x, y float64) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	return c.b.PointerDown(ctx, x, y)
}

func (c *Coalescer) Wheel(ctx context.Context, delta float64) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	return c.b.Wheel(ctx, delta)
}

func (c *Coalescer) ApplyTransformation(ctx context.Context) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	return c.b.ApplyTransformation(ctx)
}

func (c *Coalescer) RenderFrame(ctx context.Context) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	return c.b.RenderFrame(ctx)
}

func (c *Coalescer) DrawLine(ctx context.Context) error {
	if err := c.Flush(ctx); err != nil {
		return err
	}
	return c.b.DrawLine(ctx)
}

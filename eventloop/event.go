package eventloop

import (
	"context"
	"fmt"
	"strconv"

	"oss.terrastruct.com/canvasglue/dispatch"
)

// Event is one unit of host input delivered to a Dispatcher.
type Event interface {
	Dispatch(ctx context.Context, d *dispatch.Dispatcher) error
	String() string
}

type KeyEvent struct {
	Key string
}

type PointerDownEvent struct {
	X, Y float64
}

type PointerMoveEvent struct {
	X, Y float64
}

type WheelEvent struct {
	Delta float64
}

// TickEvent requests a render tick outside the ticker cadence.
type TickEvent struct{}

func (e KeyEvent) Dispatch(ctx context.Context, d *dispatch.Dispatcher) error {
	return d.Key(ctx, e.Key)
}

func (e PointerDownEvent) Dispatch(ctx context.Context, d *dispatch.Dispatcher) error {
	return d.PointerDown(ctx, e.X, e.Y)
}

func (e PointerMoveEvent) Dispatch(ctx context.Context, d *dispatch.Dispatcher) error {
	return d.PointerMove(ctx, e.X, e.Y)
}

func (e WheelEvent) Dispatch(ctx context.Context, d *dispatch.Dispatcher) error {
	return d.Wheel(ctx, e.Delta)
}

func (TickEvent) Dispatch(ctx context.Context, d *dispatch.Dispatcher) error {
	return d.Tick(ctx)
}

func (e KeyEvent) String() string {
	return "key " + e.Key
}

func (e PointerDownEvent) String() string {
	return fmt.Sprintf("down %s %s", ftoa(e.X), ftoa(e.Y))
}

func (e PointerMoveEvent) String() string {
	return fmt.Sprintf("move %s %s", ftoa(e.X), ftoa(e.Y))
}

func (e WheelEvent) String() string {
	return "wheel " + ftoa(e.Delta)
}

func (TickEvent) String() string {
	return "tick"
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

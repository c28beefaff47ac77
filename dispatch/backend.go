package dispatch

import (
	"context"
	"fmt"

	"oss.terrastruct.com/canvasglue/keymap"
)

// Backend is the operation set exposed by the computational module.
// The dispatcher only invokes it and never owns it.
type Backend interface {
	ClearCanvas(ctx context.Context) error
	KeyPress(ctx context.Context, code keymap.Code) error
	PointerDown(ctx context.Context, x, y float64) error
	PointerMove(ctx context.Context, x, y float64) error
	Wheel(ctx context.Context, delta float64) error
	ApplyTransformation(ctx context.Context) error
	RenderFrame(ctx context.Context) error
	DrawLine(ctx context.Context) error
}

// Op names one backend operation.
type Op string

const (
	OpClearCanvas         Op = "clear_canvas"
	OpKeyPress            Op = "key_press"
	OpPointerDown         Op = "pointer_down"
	OpPointerMove         Op = "pointer_move"
	OpWheel               Op = "wheel"
	OpApplyTransformation Op = "apply_transformation"
	OpRenderFrame         Op = "render_frame"
	OpDrawLine            Op = "draw_line"
)

// Ops lists every operation in declaration order.
var Ops = []Op{
	OpClearCanvas,
	OpKeyPress,
	OpPointerDown,
	OpPointerMove,
	OpWheel,
	OpApplyTransformation,
	OpRenderFrame,
	OpDrawLine,
}

func (op Op) Valid() bool {
	for _, op2 := range Ops {
		if op == op2 {
			return true
		}
	}
	return false
}

// Nullary reports whether op takes no arguments. Only nullary ops may appear in a tick
// plan or be invoked through CallNullary.
func (op Op) Nullary() bool {
	switch op {
	case OpClearCanvas, OpApplyTransformation, OpRenderFrame, OpDrawLine:
		return true
	}
	return false
}

// CallNullary invokes the argument-less operation op on b.
func CallNullary(ctx context.Context, b Backend, op Op) error {
	switch op {
	case OpClearCanvas:
		return b.ClearCanvas(ctx)
	case OpApplyTransformation:
		return b.ApplyTransformation(ctx)
	case OpRenderFrame:
		return b.RenderFrame(ctx)
	case OpDrawLine:
		return b.DrawLine(ctx)
	default:
		return fmt.Errorf("%s is not a nullary operation", op)
	}
}

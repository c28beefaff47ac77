//go:build js && wasm

package jshost

import (
	"context"
	"fmt"
	"syscall/js"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/keymap"
)

// Backend invokes functions on a WebAssembly instance's exports object.
type Backend struct {
	exports js.Value
	names   Exports
}

var _ dispatch.Backend = &Backend{}

// NewBackend panics if exports is not an object: the module must be instantiated before
// the glue starts.
func NewBackend(exports js.Value, names Exports) *Backend {
	if exports.Type() != js.TypeObject {
		panic("jshost: module exports not initialized")
	}
	if names == nil {
		names = DefaultExports
	}
	return &Backend{
		exports: exports,
		names:   names,
	}
}

// Check reports the first op in ops without a callable export.
func (b *Backend) Check(ops []dispatch.Op) error {
	for _, op := range ops {
		if b.exports.Get(b.names[op]).Type() != js.TypeFunction {
			return fmt.Errorf("module does not export %q for %s", b.names[op], op)
		}
	}
	return nil
}

func (b *Backend) call(op dispatch.Op, args ...interface{}) (err error) {
	name := b.names[op]
	fn := b.exports.Get(name)
	if fn.Type() != js.TypeFunction {
		return fmt.Errorf("module does not export %q for %s", name, op)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s threw: %v", name, r)
		}
	}()
	b.exports.Call(name, args...)
	return nil
}

func (b *Backend) ClearCanvas(ctx context.Context) error {
	return b.call(dispatch.OpClearCanvas)
}

func (b *Backend) KeyPress(ctx context.Context, code keymap.Code) error {
	return b.call(dispatch.OpKeyPress, int(code))
}

func (b *Backend) PointerDown(ctx context.Context, x, y float64) error {
	return b.call(dispatch.OpPointerDown, x, y)
}

func (b *Backend) PointerMove(ctx context.Context, x, y float64) error {
	return b.call(dispatch.OpPointerMove, x, y)
}

func (b *Backend) Wheel(ctx context.Context, delta float64) error {
	return b.call(dispatch.OpWheel, delta)
}

func (b *Backend) ApplyTransformation(ctx context.Context) error {
	return b.call(dispatch.OpApplyTransformation)
}

func (b *Backend) RenderFrame(ctx context.Context) error {
	return b.call(dispatch.OpRenderFrame)
}

func (b *Backend) DrawLine(ctx context.Context) error {
	return b.call(dispatch.OpDrawLine)
}

// Package wasmhost runs the computational module in-process with wazero and exposes its
// exports as a dispatch.Backend.
package wasmhost

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/keymap"
)

// Exports maps backend operations to the names the module exports them under.
type Exports map[dispatch.Op]string

// DefaultExports follows the camelCase names the module uses for clearCanvas and drawLine.
var DefaultExports = Exports{
	dispatch.OpClearCanvas:         "clearCanvas",
	dispatch.OpKeyPress:            "keyPress",
	dispatch.OpPointerDown:         "pointerDown",
	dispatch.OpPointerMove:         "pointerMove",
	dispatch.OpWheel:               "wheel",
	dispatch.OpApplyTransformation: "applyTransformation",
	dispatch.OpRenderFrame:         "renderFrame",
	dispatch.OpDrawLine:            "drawLine",
}

// With returns a copy of e with the given overrides applied.
func (e Exports) With(overrides map[dispatch.Op]string) Exports {
	e2 := make(Exports, len(e)+len(overrides))
	for op, name := range e {
		e2[op] = name
	}
	for op, name := range overrides {
		e2[op] = name
	}
	return e2
}

type MissingExportError struct {
	Op   dispatch.Op
	Name string
}

func (e MissingExportError) Error() string {
	return fmt.Sprintf("module does not export %q for %s", e.Name, e.Op)
}

// Backend calls a module's exported functions. Calls are serialized.
type Backend struct {
	mod api.Module

	mu    sync.Mutex
	names Exports
	fns   map[dispatch.Op]api.Function
}

var _ dispatch.Backend = &Backend{}

// NewBackend resolves the exports of mod. Missing exports are only reported when called
// or through Check.
func NewBackend(mod api.Module, exports Exports) *Backend {
	if exports == nil {
		exports = DefaultExports
	}
	b := &Backend{
		mod:   mod,
		names: exports,
		fns:   make(map[dispatch.Op]api.Function),
	}
	for op, name := range exports {
		if fn := mod.ExportedFunction(name); fn != nil {
			b.fns[op] = fn
		}
	}
	return b
}

// Check reports the first operation in ops the module cannot serve.
func (b *Backend) Check(ops []dispatch.Op) error {
	for _, op := range ops {
		if _, ok := b.fns[op]; !ok {
			return MissingExportError{Op: op, Name: b.names[op]}
		}
	}
	return nil
}

// Available returns the operations the module exports, sorted.
func (b *Backend) Available() []dispatch.Op {
	ops := make([]dispatch.Op, 0, len(b.fns))
	for op := range b.fns {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i] < ops[j]
	})
	return ops
}

func (b *Backend) call(ctx context.Context, op dispatch.Op, args ...float64) (err error) {
	fn, ok := b.fns[op]
	if !ok {
		return MissingExportError{Op: op, Name: b.names[op]}
	}
	defer xdefer.Errorf(&err, "failed to call %s", b.names[op])

	params := encodeParams(fn.Definition().ParamTypes(), args)

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err = fn.Call(ctx, params...)
	return err
}

// encodeParams converts args to the export's parameter types the way a JS caller would:
// extra arguments are dropped, missing ones are zero and integers truncate.
func encodeParams(types []api.ValueType, args []float64) []uint64 {
	params := make([]uint64, len(types))
	for i, t := range types {
		var v float64
		if i < len(args) {
			v = args[i]
		}
		switch t {
		case api.ValueTypeI32:
			params[i] = api.EncodeI32(toInt32(v))
		case api.ValueTypeI64:
			params[i] = api.EncodeI64(toInt64(v))
		case api.ValueTypeF32:
			params[i] = api.EncodeF32(float32(v))
		case api.ValueTypeF64:
			params[i] = api.EncodeF64(v)
		}
	}
	return params
}

func toInt64(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Trunc(v)
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	if v <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(v)
}

// toInt32 wraps modulo 2^32 like ECMAScript ToInt32.
func toInt32(v float64) int32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(v), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return int32(uint32(m))
}

func (b *Backend) ClearCanvas(ctx context.Context) error {
	return b.call(ctx, dispatch.OpClearCanvas)
}

func (b *Backend) KeyPress(ctx context.Context, code keymap.Code) error {
	return b.call(ctx, dispatch.OpKeyPress, float64(code))
}

func (b *Backend) PointerDown(ctx context.Context, x, y float64) error {
	return b.call(ctx, dispatch.OpPointerDown, x, y)
}

func (b *Backend) PointerMove(ctx context.Context, x, y float64) error {
	return b.call(ctx, dispatch.OpPointerMove, x, y)
}

func (b *Backend) Wheel(ctx context.Context, delta float64) error {
	return b.call(ctx, dispatch.OpWheel, delta)
}

func (b *Backend) ApplyTransformation(ctx context.Context) error {
	return b.call(ctx, dispatch.OpApplyTransformation)
}

func (b *Backend) RenderFrame(ctx context.Context) error {
	return b.call(ctx, dispatch.OpRenderFrame)
}

func (b *Backend) DrawLine(ctx context.Context) error {
	return b.call(ctx, dispatch.OpDrawLine)
}

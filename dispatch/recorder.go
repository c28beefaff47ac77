package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"oss.terrastruct.com/canvasglue/keymap"
)

// Call is one recorded backend invocation.
type Call struct {
	Op   Op        `json:"op"`
	Args []float64 `json:"args,omitempty"`
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strconv.FormatFloat(a, 'g', -1, 64)
	}
	return fmt.Sprintf("%s(%s)", c.Op, strings.Join(args, ", "))
}

// Recorder is a Backend that records every call. Err, when set, is returned from every
// call to ops listed in FailOn (or from all calls if FailOn is empty) after recording.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	Err    error
	FailOn []Op
}

var _ Backend = &Recorder{}

func (r *Recorder) record(op Op, args ...float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	if r.Err == nil {
		return nil
	}
	if len(r.FailOn) == 0 {
		return r.Err
	}
	for _, op2 := range r.FailOn {
		if op == op2 {
			return r.Err
		}
	}
	return nil
}

// Calls returns a copy of the calls recorded so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Strings returns the recorded calls formatted like pointer_down(12, 34).
func (r *Recorder) Strings() []string {
	calls := r.Calls()
	ss := make([]string, len(calls))
	for i, c := range calls {
		ss[i] = c.String()
	}
	return ss
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) ClearCanvas(ctx context.Context) error {
	return r.record(OpClearCanvas)
}

func (r *Recorder) KeyPress(ctx context.Context, code keymap.Code) error {
	return r.record(OpKeyPress, float64(code))
}

func (r *Recorder) PointerDown(ctx context.Context, x, y float64) error {
	return r.record(OpPointerDown, x, y)
}

func (r *Recorder) PointerMove(ctx context.Context, x, y float64) error {
	return r.record(OpPointerMove, x, y)
}

func (r *Recorder) Wheel(ctx context.Context, delta float64) error {
	return r.record(OpWheel, delta)
}

func (r *Recorder) ApplyTransformation(ctx context.Context) error {
	return r.record(OpApplyTransformation)
}

func (r *Recorder) RenderFrame(ctx context.Context) error {
	return r.record(OpRenderFrame)
}

func (r *Recorder) DrawLine(ctx context.Context) error {
	return r.record(OpDrawLine)
}

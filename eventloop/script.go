package eventloop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/canvasglue/dispatch"
)

// ParseError reports a malformed script line.
type ParseError struct {
	Line int
	Msg  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// MaxTicks bounds the count of a single tick line.
const MaxTicks = 1 << 16

// ParseLine parses a single script line. Blank lines yield no events. A field starting
// with # begins a comment, except as the identifier of a key line so that "key #"
// replays the # key.
//
//	key <identifier>
//	down <x> <y>
//	move <x> <y>
//	wheel <delta>
//	tick [n]
func ParseLine(line string) ([]Event, error) {
	fields := strings.Fields(line)
	for i, f := range fields {
		if strings.HasPrefix(f, "#") && !(i == 1 && fields[0] == "key") {
			fields = fields[:i]
			break
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}

	args := fields[1:]
	switch fields[0] {
	case "key":
		if len(args) != 1 {
			return nil, fmt.Errorf("key takes 1 argument, got %d", len(args))
		}
		return []Event{KeyEvent{Key: args[0]}}, nil
	case "down", "move":
		xy, err := parseFloats(fields[0], args, 2)
		if err != nil {
			return nil, err
		}
		if fields[0] == "down" {
			return []Event{PointerDownEvent{X: xy[0], Y: xy[1]}}, nil
		}
		return []Event{PointerMoveEvent{X: xy[0], Y: xy[1]}}, nil
	case "wheel":
		d, err := parseFloats(fields[0], args, 1)
		if err != nil {
			return nil, err
		}
		return []Event{WheelEvent{Delta: d[0]}}, nil
	case "tick":
		n := 1
		if len(args) > 1 {
			return nil, fmt.Errorf("tick takes at most 1 argument, got %d", len(args))
		}
		if len(args) == 1 {
			var err error
			n, err = strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid tick count %q", args[0])
			}
			if n > MaxTicks {
				return nil, fmt.Errorf("tick count %d exceeds %d", n, MaxTicks)
			}
		}
		evs := make([]Event, n)
		for i := range evs {
			evs[i] = TickEvent{}
		}
		return evs, nil
	default:
		return nil, fmt.Errorf("unknown event %q", fields[0])
	}
}

func parseFloats(name string, args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", name, n, len(args))
	}
	fs := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", name, a)
		}
		fs[i] = f
	}
	return fs, nil
}

// ParseScript parses every line of r.
func ParseScript(r io.Reader) (_ []Event, err error) {
	defer xdefer.Errorf(&err, "failed to parse script")

	var evs []Event
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		lineEvs, err := ParseLine(sc.Text())
		if err != nil {
			return nil, ParseError{Line: n, Msg: err.Error()}
		}
		evs = append(evs, lineEvs...)
	}
	return evs, sc.Err()
}

// Replay dispatches evs in order and stops at the first error.
func Replay(ctx context.Context, d *dispatch.Dispatcher, evs []Event) error {
	for i, ev := range evs {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := ev.Dispatch(ctx, d)
		if err != nil {
			return fmt.Errorf("event %d (%v): %w", i+1, ev, err)
		}
	}
	return nil
}

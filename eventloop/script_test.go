package eventloop_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/eventloop"
)

func TestParseLine(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		line   string
		exp    []eventloop.Event
		expErr string
	}{
		{line: ""},
		{line: "   "},
		{line: "# just a comment"},
		{line: "key ArrowLeft", exp: []eventloop.Event{eventloop.KeyEvent{Key: "ArrowLeft"}}},
		{line: "key + # step up", exp: []eventloop.Event{eventloop.KeyEvent{Key: "+"}}},
		{line: "down 12 34", exp: []eventloop.Event{eventloop.PointerDownEvent{X: 12, Y: 34}}},
		{line: "move -1.5 2e3", exp: []eventloop.Event{eventloop.PointerMoveEvent{X: -1.5, Y: 2000}}},
		{line: "wheel -5", exp: []eventloop.Event{eventloop.WheelEvent{Delta: -5}}},
		{line: "tick", exp: []eventloop.Event{eventloop.TickEvent{}}},
		{line: "tick 3", exp: []eventloop.Event{eventloop.TickEvent{}, eventloop.TickEvent{}, eventloop.TickEvent{}}},
		{line: "key", expErr: "key takes 1 argument, got 0"},
		{line: "down 1", expErr: "down takes 2 arguments, got 1"},
		{line: "move a b", expErr: `move: invalid number "a"`},
		{line: "tick 0", expErr: `invalid tick count "0"`},
		{line: "tick 1 2", expErr: "tick takes at most 1 argument, got 2"},
		{line: "jump 1", expErr: `unknown event "jump"`},
		{line: "key #", exp: []eventloop.Event{eventloop.KeyEvent{Key: "#"}}},
		{line: "  key   #   # the hash key", exp: []eventloop.Event{eventloop.KeyEvent{Key: "#"}}},
		{line: "key # trailing", expErr: "key takes 1 argument, got 2"},
		{line: "#key w"},
		{line: "tick # once", exp: []eventloop.Event{eventloop.TickEvent{}}},
		{line: "tick 2 #twice", exp: []eventloop.Event{eventloop.TickEvent{}, eventloop.TickEvent{}}},
		{line: "wheel # none", expErr: "wheel takes 1 arguments, got 0"},
		{line: "tick 65537", expErr: "tick count 65537 exceeds 65536"},
		{line: "tick 99999999999999999999", expErr: `invalid tick count "99999999999999999999"`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.line, func(t *testing.T) {
			t.Parallel()

			evs, err := eventloop.ParseLine(tc.line)
			if tc.expErr != "" {
				assert.EqualError(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, evs)
		})
	}
}

func TestParseLineMaxTicks(t *testing.T) {
	t.Parallel()

	evs, err := eventloop.ParseLine("tick 65536")
	require.NoError(t, err)
	assert.Len(t, evs, eventloop.MaxTicks)
}

func TestParseScript(t *testing.T) {
	t.Parallel()

	evs, err := eventloop.ParseScript(strings.NewReader(`# warm up
key w
key #
down 12 34

move 1 1
tick 2
`))
	require.NoError(t, err)
	var ss []string
	for _, ev := range evs {
		ss = append(ss, ev.String())
	}
	assert.Equal(t, []string{"key w", "key #", "down 12 34", "move 1 1", "tick", "tick"}, ss)

	_, err = eventloop.ParseScript(strings.NewReader("key w\nwheel\n"))
	var perr eventloop.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Line)
}

func TestReplay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := &dispatch.Recorder{}
	d := dispatch.New(r, dispatch.Directional)

	evs, err := eventloop.ParseScript(strings.NewReader("key ArrowLeft\nkey x\nkey x\nwheel -5\ntick\n"))
	require.NoError(t, err)
	require.NoError(t, eventloop.Replay(ctx, d, evs))
	assert.Equal(t, []string{
		"key_press(1)",
		"wheel(-5)",
		"apply_transformation()",
		"render_frame()",
	}, r.Strings())

	r2 := &dispatch.Recorder{Err: errors.New("boom"), FailOn: []dispatch.Op{dispatch.OpWheel}}
	err = eventloop.Replay(ctx, dispatch.New(r2, dispatch.Directional), evs)
	assert.ErrorContains(t, err, "event 4 (wheel -5)")
	assert.Len(t, r2.Calls(), 2)
}

package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/keymap"
)

func TestKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		variant *dispatch.Variant
		keys    []string
		exp     []string
	}{
		{
			name:    "directional_aliases",
			variant: dispatch.Directional,
			keys:    []string{"ArrowLeft", "a", "A", "4"},
			exp:     []string{"key_press(1)", "key_press(1)", "key_press(1)", "key_press(1)"},
		},
		{
			name:    "directional_right",
			variant: dispatch.Directional,
			keys:    []string{"d", "D", "ArrowRight"},
			exp:     []string{"key_press(2)", "key_press(2)", "key_press(2)"},
		},
		{
			name:    "orbit_right",
			variant: dispatch.Orbit,
			keys:    []string{"d", "D", "ArrowRight"},
			exp:     []string{"key_press(2)", "key_press(2)", "key_press(12)"},
		},
		{
			name:    "step",
			variant: dispatch.Directional,
			keys:    []string{"-", "+"},
			exp:     []string{"key_press(9)", "key_press(10)"},
		},
		{
			name:    "unknown",
			variant: dispatch.Directional,
			keys:    []string{"x", "Enter", "", "5", "x", "x"},
		},
		{
			name:    "line_ignores_keys",
			variant: dispatch.Line,
			keys:    []string{"ArrowLeft", "a"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := &dispatch.Recorder{}
			d := dispatch.New(r, tc.variant)
			for _, k := range tc.keys {
				err := d.Key(context.Background(), k)
				require.NoError(t, err)
			}
			assert.Equal(t, len(tc.exp), len(r.Calls()))
			if len(tc.exp) > 0 {
				assert.Equal(t, tc.exp, r.Strings())
			}
		})
	}
}

func TestPointer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := &dispatch.Recorder{}
	d := dispatch.New(r, dispatch.Orbit)

	require.NoError(t, d.PointerDown(ctx, 12, 34))
	assert.Equal(t, []dispatch.Call{{Op: dispatch.OpPointerDown, Args: []float64{12, 34}}}, r.Calls())

	r.Reset()
	require.NoError(t, d.PointerMove(ctx, -1.5, 1e6))
	require.NoError(t, d.PointerMove(ctx, -1.5, 1e6))
	require.NoError(t, d.PointerMove(ctx, 3, 4))
	assert.Equal(t, []string{
		"pointer_move(-1.5, 1e+06)",
		"pointer_move(-1.5, 1e+06)",
		"pointer_move(3, 4)",
	}, r.Strings())

	r.Reset()
	require.NoError(t, d.Wheel(ctx, -5))
	assert.Equal(t, []string{"wheel(-5)"}, r.Strings())
}

func TestPointerNotListened(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := &dispatch.Recorder{}
	d := dispatch.New(r, dispatch.Line)

	require.NoError(t, d.PointerDown(ctx, 1, 2))
	require.NoError(t, d.PointerMove(ctx, 1, 2))
	require.NoError(t, d.Wheel(ctx, 1))
	assert.Empty(t, r.Calls())

	d = dispatch.New(r, dispatch.Classic)
	require.NoError(t, d.PointerDown(ctx, 1, 2))
	require.NoError(t, d.Wheel(ctx, 3))
	assert.Equal(t, []string{"pointer_down(1, 2)"}, r.Strings())
}

func TestPointerVariants(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		variant *dispatch.Variant
		exp     []string
	}{
		{
			name:    "directional",
			variant: dispatch.Directional,
			exp:     []string{"pointer_down(12, 34)", "pointer_move(56, 78)", "wheel(-3)"},
		},
		{
			name:    "classic",
			variant: dispatch.Classic,
			exp:     []string{"pointer_down(12, 34)", "pointer_move(56, 78)"},
		},
		{
			name:    "orbit",
			variant: dispatch.Orbit,
			exp:     []string{"pointer_down(12, 34)", "pointer_move(56, 78)", "wheel(-3)"},
		},
		{
			name:    "line",
			variant: dispatch.Line,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			r := &dispatch.Recorder{}
			d := dispatch.New(r, tc.variant)
			require.NoError(t, d.PointerDown(ctx, 12, 34))
			require.NoError(t, d.PointerMove(ctx, 56, 78))
			require.NoError(t, d.Wheel(ctx, -3))
			if len(tc.exp) == 0 {
				assert.Empty(t, r.Calls())
				return
			}
			assert.Equal(t, tc.exp, r.Strings())
		})
	}
}

func TestTick(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	r := &dispatch.Recorder{}
	d := dispatch.New(r, dispatch.Directional)
	require.NoError(t, d.Tick(ctx))
	require.NoError(t, d.Tick(ctx))
	assert.Equal(t, []string{
		"apply_transformation()",
		"render_frame()",
		"apply_transformation()",
		"render_frame()",
	}, r.Strings())

	r = &dispatch.Recorder{}
	d = dispatch.New(r, dispatch.Line)
	require.NoError(t, d.Tick(ctx))
	assert.Equal(t, []string{"draw_line()"}, r.Strings())

	r = &dispatch.Recorder{}
	d = dispatch.New(r, dispatch.Classic)
	require.NoError(t, d.Tick(ctx))
	assert.Equal(t, []string{"render_frame()"}, r.Strings())
}

func TestTickStopsOnError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	r := &dispatch.Recorder{
		Err:    errBoom,
		FailOn: []dispatch.Op{dispatch.OpApplyTransformation},
	}
	d := dispatch.New(r, dispatch.Directional)
	err := d.Tick(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorContains(t, err, "failed to tick at apply_transformation")
	assert.Equal(t, []string{"apply_transformation()"}, r.Strings())
}

func TestKeyError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	r := &dispatch.Recorder{Err: errBoom}
	d := dispatch.New(r, dispatch.Directional)

	err := d.Key(context.Background(), "w")
	assert.ErrorIs(t, err, errBoom)

	err = d.Key(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Len(t, r.Calls(), 1)
}

func TestStart(t *testing.T) {
	t.Parallel()

	r := &dispatch.Recorder{}
	d := dispatch.New(r, dispatch.Line)
	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, []string{"clear_canvas()"}, r.Strings())

	r = &dispatch.Recorder{}
	v := &dispatch.Variant{Name: "quiet", Keys: keymap.Empty}
	d = dispatch.New(r, v)
	require.NoError(t, d.Start(context.Background()))
	assert.Empty(t, r.Calls())
}

func TestUninitialized(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		dispatch.New(nil, dispatch.Directional)
	})
	assert.Panics(t, func() {
		dispatch.New(&dispatch.Recorder{}, nil)
	})

	var d dispatch.Dispatcher
	assert.Panics(t, func() {
		_ = d.Key(context.Background(), "x")
	})
	assert.Panics(t, func() {
		_ = d.Tick(context.Background())
	})

	var dp *dispatch.Dispatcher
	assert.Panics(t, func() {
		_ = dp.PointerDown(context.Background(), 1, 2)
	})
}

func TestCoalescer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := &dispatch.Recorder{}
	d := dispatch.New(dispatch.NewCoalescer(r), dispatch.Orbit)

	for i := 0; i < 10; i++ {
		require.NoError(t, d.PointerMove(ctx, float64(i), float64(i*2)))
	}
	assert.Empty(t, r.Calls())

	require.NoError(t, d.Tick(ctx))
	assert.Equal(t, []string{
		"pointer_move(9, 18)",
		"apply_transformation()",
		"render_frame()",
	}, r.Strings())

	r.Reset()
	require.NoError(t, d.PointerMove(ctx, 1, 1))
	require.NoError(t, d.PointerDown(ctx, 2, 2))
	require.NoError(t, d.Tick(ctx))
	assert.Equal(t, []string{
		"pointer_move(1, 1)",
		"pointer_down(2, 2)",
		"apply_transformation()",
		"render_frame()",
	}, r.Strings())
}

func TestCoalescerFlush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := &dispatch.Recorder{}
	c := dispatch.NewCoalescer(r)

	require.NoError(t, c.Flush(ctx))
	assert.Empty(t, r.Calls())

	require.NoError(t, c.PointerMove(ctx, 5, 6))
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, []string{"pointer_move(5, 6)"}, r.Strings())
}

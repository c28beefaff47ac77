package cglcli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"

	"oss.terrastruct.com/canvasglue/lib/xmain"
)

// lineModule exports clearCanvas and drawLine as no-ops, enough for the line variant.
var lineModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: () -> ()
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	// func: two of type 0
	0x03, 0x03, 0x02, 0x00, 0x00,
	// export
	0x07, 0x1a, 0x02,
	0x0b, 'c', 'l', 'e', 'a', 'r', 'C', 'a', 'n', 'v', 'a', 's', 0x00, 0x00,
	0x08, 'd', 'r', 'a', 'w', 'L', 'i', 'n', 'e', 0x00, 0x01,
	// code: two empty bodies
	0x0a, 0x07, 0x02, 0x02, 0x00, 0x0b, 0x02, 0x00, 0x0b,
}

// classicModule exports clearCanvas, keyPressHandler(i32), clickHandler(i32, i32),
// moveHandler(i32, i32) and renderFrame as no-ops.
var classicModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: () -> (), (i32) -> (), (i32, i32) -> ()
	0x01, 0x0d, 0x03, 0x60, 0x00, 0x00, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x02, 0x7f, 0x7f, 0x00,
	// func
	0x03, 0x06, 0x05, 0x00, 0x01, 0x02, 0x02, 0x00,
	// export
	0x07, 0x4c, 0x05,
	0x0b, 'c', 'l', 'e', 'a', 'r', 'C', 'a', 'n', 'v', 'a', 's', 0x00, 0x00,
	0x0f, 'k', 'e', 'y', 'P', 'r', 'e', 's', 's', 'H', 'a', 'n', 'd', 'l', 'e', 'r', 0x00, 0x01,
	0x0c, 'c', 'l', 'i', 'c', 'k', 'H', 'a', 'n', 'd', 'l', 'e', 'r', 0x00, 0x02,
	0x0b, 'm', 'o', 'v', 'e', 'H', 'a', 'n', 'd', 'l', 'e', 'r', 0x00, 0x03,
	0x0b, 'r', 'e', 'n', 'd', 'e', 'r', 'F', 'r', 'a', 'm', 'e', 0x00, 0x04,
	// code: five empty bodies
	0x0a, 0x10, 0x05,
	0x02, 0x00, 0x0b, 0x02, 0x00, 0x0b, 0x02, 0x00, 0x0b, 0x02, 0x00, 0x0b, 0x02, 0x00, 0x0b,
}

type nopWriteCloser struct {
	*bytes.Buffer
}

func (nopWriteCloser) Close() error {
	return nil
}

func newState(t *testing.T, stdin string, args ...string) (*xmain.State, *bytes.Buffer) {
	t.Helper()

	stdout := &bytes.Buffer{}
	ms := &xmain.State{
		Name: "canvasglue",

		Stdin:  strings.NewReader(stdin),
		Stdout: nopWriteCloser{stdout},
		Stderr: nopWriteCloser{&bytes.Buffer{}},

		Env: xos.NewEnv([]string{"BROWSER=0"}),
		PWD: t.TempDir(),
	}
	ms.Log = cmdlog.NewTB(ms.Env, t)
	ms.Opts = xmain.NewOpts(ms.Env, ms.Log, args)
	return ms, stdout
}

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fp, b, 0644))
	return fp
}

func TestKeys(t *testing.T) {
	t.Parallel()

	ms, stdout := newState(t, "", "keys", "--variant", "orbit")
	require.NoError(t, Run(context.Background(), ms))

	out := stdout.String()
	assert.Contains(t, out, "orbit")
	assert.Contains(t, out, "apply_transformation, render_frame")
	var rotateDown string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "rotate_down") {
			rotateDown = line
		}
	}
	assert.Equal(t, []string{"14", "rotate_down", "ArrowDown"}, strings.Fields(rotateDown))
}

func TestReplayDryRun(t *testing.T) {
	t.Parallel()

	script := writeFile(t, "script.txt", []byte(`# orbit around
key ArrowLeft
key q
down 1 2
move 3 4
wheel -1
tick 2
`))
	ms, stdout := newState(t, "", "replay", "--dry-run", "--variant", "orbit", script)
	require.NoError(t, Run(context.Background(), ms))
	assert.Equal(t, `clear_canvas()
key_press(11)
pointer_down(1, 2)
pointer_move(3, 4)
wheel(-1)
apply_transformation()
render_frame()
apply_transformation()
render_frame()
`, stdout.String())
}

func TestReplayCoalesce(t *testing.T) {
	t.Parallel()

	script := writeFile(t, "script.txt", []byte("move 1 1\nmove 2 2\nmove 3 3\ntick\nmove 4 4\n"))
	ms, stdout := newState(t, "", "replay", "-n", "--coalesce-moves", "--variant", "orbit", script)
	require.NoError(t, Run(context.Background(), ms))
	assert.Equal(t, `clear_canvas()
pointer_move(3, 3)
apply_transformation()
render_frame()
pointer_move(4, 4)
`, stdout.String())
}

func TestReplayModule(t *testing.T) {
	t.Parallel()

	mod := writeFile(t, "line.wasm", lineModule)
	script := writeFile(t, "script.txt", []byte("key w\ntick 3\n"))

	ms, _ := newState(t, "", "replay", "--variant", "line", mod, script)
	require.NoError(t, Run(context.Background(), ms))

	ms, _ = newState(t, "", "replay", "--variant", "directional", mod, script)
	err := Run(context.Background(), ms)
	assert.ErrorContains(t, err, "cannot serve variant directional")
	assert.ErrorContains(t, err, "keyPress")
}

func TestReplayVariantExports(t *testing.T) {
	t.Parallel()

	classic := writeFile(t, "classic.wasm", classicModule)
	line := writeFile(t, "line.wasm", lineModule)
	renamed := writeFile(t, "renamed.json", []byte(`{"name": "renamed", "tick": ["draw_line"], "exports": {"draw_line": "paint"}}`))
	script := writeFile(t, "script.txt", []byte("key w\ndown 1 2\nmove 3 4\nwheel 5\ntick 2\n"))

	testCases := []struct {
		name   string
		args   []string
		expErr []string
	}{
		{
			name: "classic",
			args: []string{"--variant", "classic", classic, script},
		},
		{
			name:   "directional_on_classic_module",
			args:   []string{"--variant", "directional", classic, script},
			expErr: []string{"cannot serve variant directional", `"keyPress"`},
		},
		{
			name:   "classic_on_line_module",
			args:   []string{"--variant", "classic", line, script},
			expErr: []string{"cannot serve variant classic", `"keyPressHandler"`},
		},
		{
			name:   "variant_file_exports",
			args:   []string{"--variant-file", renamed, line, script},
			expErr: []string{"cannot serve variant renamed", `"paint"`},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ms, _ := newState(t, "", append([]string{"replay"}, tc.args...)...)
			err := Run(context.Background(), ms)
			if len(tc.expErr) == 0 {
				require.NoError(t, err)
				return
			}
			for _, exp := range tc.expErr {
				assert.ErrorContains(t, err, exp)
			}
		})
	}
}

func TestReplayClassicDryRun(t *testing.T) {
	t.Parallel()

	script := writeFile(t, "script.txt", []byte("key 6\ndown 12 34\nmove 5 6\nwheel 1\ntick\n"))
	ms, stdout := newState(t, "", "replay", "-n", "--variant", "classic", script)
	require.NoError(t, Run(context.Background(), ms))
	assert.Equal(t, `clear_canvas()
key_press(2)
pointer_down(12, 34)
pointer_move(5, 6)
render_frame()
`, stdout.String())
}

func TestReplayModuleStdin(t *testing.T) {
	t.Parallel()

	script := writeFile(t, "script.txt", []byte("tick\n"))
	ms, _ := newState(t, string(lineModule), "replay", "--variant", "line", "-", script)
	require.NoError(t, Run(context.Background(), ms))
}

func TestRun(t *testing.T) {
	t.Parallel()

	mod := writeFile(t, "line.wasm", lineModule)
	ms, _ := newState(t, "tick 2\nbogus\nkey w\n", "run", "--variant", "line", "--tick", "0", mod)
	require.NoError(t, Run(context.Background(), ms))
}

func TestVariantFile(t *testing.T) {
	t.Parallel()

	vf := writeFile(t, "variant.json", []byte(`{
	"name": "zoom",
	"keys": {"+": 10, "-": 9},
	"tick": ["render_frame"],
	"wheel": true
}`))
	script := writeFile(t, "script.txt", []byte("key +\nkey w\nwheel 3\ntick\n"))
	ms, stdout := newState(t, "", "replay", "-n", "--variant-file", vf, script)
	require.NoError(t, Run(context.Background(), ms))
	assert.Equal(t, "key_press(10)\nwheel(3)\nrender_frame()\n", stdout.String())
}

func TestUsage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		args   []string
		expErr string
	}{
		{
			name:   "unknown_variant",
			args:   []string{"keys", "--variant", "spiral"},
			expErr: `unknown variant "spiral", available: classic, directional, line, orbit`,
		},
		{
			name:   "unknown_subcommand",
			args:   []string{"paint"},
			expErr: `unknown subcommand "paint"`,
		},
		{
			name:   "replay_args",
			args:   []string{"replay", "only.wasm"},
			expErr: "replay expects a module and a script argument",
		},
		{
			name:   "replay_both_stdin",
			args:   []string{"replay", "-", "-"},
			expErr: "module and script cannot both be read from stdin",
		},
		{
			name:   "run_stdin_module",
			args:   []string{"run", "-"},
			expErr: "run reads events from stdin",
		},
		{
			name:   "serve_without_glue",
			args:   []string{"serve", "m.wasm"},
			expErr: "serve needs --glue",
		},
		{
			name:   "bad_flag",
			args:   []string{"--nope"},
			expErr: "failed to parse flags",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ms, _ := newState(t, "", tc.args...)
			err := Run(context.Background(), ms)
			var uerr xmain.UsageError
			require.ErrorAs(t, err, &uerr)
			assert.Contains(t, err.Error(), tc.expErr)
		})
	}
}

func TestHelpAndVersion(t *testing.T) {
	t.Parallel()

	ms, stdout := newState(t, "", "--help")
	require.NoError(t, Run(context.Background(), ms))
	assert.Contains(t, stdout.String(), "Subcommands:")
	assert.Contains(t, stdout.String(), "$CANVASGLUE_VARIANT")
	assert.Contains(t, stdout.String(), "disables ticks. (default 50)")

	ms, stdout = newState(t, "", "version")
	require.NoError(t, Run(context.Background(), ms))
	assert.Equal(t, "v0.1.0-HEAD\n", stdout.String())
}

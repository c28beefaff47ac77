// Package cglcli implements the canvasglue command.
package cglcli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cdr.dev/slog"
	"github.com/spf13/pflag"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/eventloop"
	"oss.terrastruct.com/canvasglue/lib/go2"
	"oss.terrastruct.com/canvasglue/lib/log"
	timelib "oss.terrastruct.com/canvasglue/lib/time"
	"oss.terrastruct.com/canvasglue/lib/version"
	"oss.terrastruct.com/canvasglue/lib/xmain"
	"oss.terrastruct.com/canvasglue/wasmhost"
)

type flags struct {
	variant       string
	variantFile   string
	tickMS        int64
	coalesceMoves bool
	dryRun        bool
	host          string
	port          string
	background    string
	glue          string
}

func Run(ctx context.Context, ms *xmain.State) (err error) {
	variantFlag := ms.Opts.String("CANVASGLUE_VARIANT", "variant", "", dispatch.Directional.Name, fmt.Sprintf("built-in variant: %s", strings.Join(dispatch.VariantNames(), ", ")))
	variantFileFlag := ms.Opts.String("CANVASGLUE_VARIANT_FILE", "variant-file", "", "", "path to a JSON variant definition. Overrides --variant.")
	tickFlag, err := ms.Opts.Int64("CANVASGLUE_TICK_MS", "tick", "t", eventloop.DefaultInterval.Milliseconds(), "milliseconds between render ticks for run. 0 or less disables ticks.")
	if err != nil {
		return err
	}
	coalesceFlag, err := ms.Opts.Bool("CANVASGLUE_COALESCE_MOVES", "coalesce-moves", "", false, "forward only the latest pointer move before each other backend call")
	if err != nil {
		return err
	}
	dryRunFlag, err := ms.Opts.Bool("", "dry-run", "n", false, "replay against a recording backend and print the calls instead of loading a module")
	if err != nil {
		return err
	}
	hostFlag := ms.Opts.String("HOST", "host", "h", "localhost", "host listening address for serve")
	portFlag := ms.Opts.String("PORT", "port", "p", "0", "port listening address for serve")
	backgroundFlag := ms.Opts.String("CANVASGLUE_BACKGROUND", "background", "", "lightgrey", "CSS color of the canvas page served by serve")
	glueFlag := ms.Opts.String("CANVASGLUE_GLUE", "glue", "", "", "path to the canvasglue-js build that serve hands to the page")
	browserFlag := ms.Opts.String("CANVASGLUE_BROWSER", "browser", "", "", "browser executable that serve opens. Setting to 0 opens no browser.")
	debugFlag, err := ms.Opts.Bool("DEBUG", "debug", "d", false, "print debug logs.")
	if err != nil {
		ms.Log.Warn.Printf("Invalid DEBUG flag value ignored")
		debugFlag = go2.Pointer(false)
	}
	versionFlag, err := ms.Opts.Bool("", "version", "v", false, "get the version")
	if err != nil {
		return err
	}

	err = ms.Opts.Flags.Parse(ms.Opts.Args)
	if !errors.Is(err, pflag.ErrHelp) && err != nil {
		return xmain.UsageErrorf("failed to parse flags: %v", err)
	}
	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}

	ctx = log.Writer(ctx, ms.Stderr)
	if *debugFlag {
		ctx = log.Leveled(ctx, slog.LevelDebug)
		ms.Env.Setenv("DEBUG", "1")
	}
	if *browserFlag != "" {
		ms.Env.Setenv("BROWSER", *browserFlag)
	}
	ctx, cancel := timelib.WithTimeout(ctx, 0)
	defer cancel()

	f := flags{
		variant:       *variantFlag,
		variantFile:   *variantFileFlag,
		tickMS:        *tickFlag,
		coalesceMoves: *coalesceFlag,
		dryRun:        *dryRunFlag,
		host:          *hostFlag,
		port:          *portFlag,
		background:    *backgroundFlag,
		glue:          *glueFlag,
	}

	args := ms.Opts.Flags.Args()
	if len(args) == 0 {
		if *versionFlag {
			fmt.Fprintln(ms.Stdout, version.Version)
			return nil
		}
		help(ms)
		return nil
	}

	switch args[0] {
	case "keys":
		return keysCmd(ctx, ms, f, args[1:])
	case "replay":
		return replayCmd(ctx, ms, f, args[1:])
	case "run":
		return runCmd(ctx, ms, f, args[1:])
	case "serve":
		return serveCmd(ctx, ms, f, args[1:])
	case "version":
		if len(args) > 1 {
			return xmain.UsageErrorf("version subcommand accepts no arguments")
		}
		fmt.Fprintln(ms.Stdout, version.Version)
		return nil
	default:
		return xmain.UsageErrorf("unknown subcommand %q", args[0])
	}
}

func loadVariant(ms *xmain.State, f flags) (*dispatch.Variant, error) {
	if f.variantFile != "" {
		b, err := ms.ReadPath(f.variantFile)
		if err != nil {
			return nil, err
		}
		v, err := dispatch.ParseVariant(b)
		if err != nil {
			return nil, xmain.UsageErrorf("%s: %v", ms.HumanPath(f.variantFile), err)
		}
		return v, nil
	}
	v, ok := dispatch.LookupVariant(f.variant)
	if !ok {
		return nil, xmain.UsageErrorf("unknown variant %q, available: %s", f.variant, strings.Join(dispatch.VariantNames(), ", "))
	}
	return v, nil
}

// loadModule instantiates the module at fp and checks it exports every operation v needs.
func loadModule(ctx context.Context, ms *xmain.State, fp string, v *dispatch.Variant) (*wasmhost.Host, error) {
	wasm, err := ms.ReadPath(fp)
	if err != nil {
		return nil, err
	}
	h, err := wasmhost.Load(ctx, wasm, wasmhost.Opts{
		Exports: wasmhost.DefaultExports.With(v.Exports),
		Stdout:  ms.Stdout,
		Stderr:  ms.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ms.HumanPath(fp), err)
	}
	err = h.Check(v.Required())
	if err != nil {
		h.Close(ctx)
		return nil, fmt.Errorf("%s cannot serve variant %s: %w", ms.HumanPath(fp), v.Name, err)
	}
	return h, nil
}

func backend(b dispatch.Backend, f flags) (dispatch.Backend, func(context.Context) error) {
	if !f.coalesceMoves {
		return b, func(context.Context) error { return nil }
	}
	c := dispatch.NewCoalescer(b)
	return c, c.Flush
}

package wasmhost

import (
	"context"
	"io"

	"cdr.dev/slog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/lib/log"
)

// HostModuleName is the import module offered to the computational module.
const HostModuleName = "canvasglue"

type Opts struct {
	// Exports overrides DefaultExports.
	Exports Exports
	// StartFunctions run after instantiation. Defaults to the reactor entrypoint
	// _initialize; names the module does not export are skipped.
	StartFunctions []string
	Stdout         io.Writer
	Stderr         io.Writer
}

// Host owns a wazero runtime with one instantiated module.
type Host struct {
	*Backend

	rt  wazero.Runtime
	mod api.Module
}

// Load compiles and instantiates wasm. The module may import WASI and the canvasglue host
// module, which provides log(ptr, len i32).
func Load(ctx context.Context, wasm []byte, opts Opts) (_ *Host, err error) {
	defer xdefer.Errorf(&err, "failed to load module")

	rt := wazero.NewRuntime(ctx)
	defer func() {
		if err != nil {
			rt.Close(ctx)
		}
	}()

	_, err = wasi_snapshot_preview1.Instantiate(ctx, rt)
	if err != nil {
		return nil, err
	}
	_, err = rt.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().WithFunc(hostLog).Export("log").
		Instantiate(ctx)
	if err != nil {
		return nil, err
	}

	starts := opts.StartFunctions
	if starts == nil {
		starts = []string{"_initialize"}
	}
	cfg := wazero.NewModuleConfig().WithStartFunctions(starts...)
	if opts.Stdout != nil {
		cfg = cfg.WithStdout(opts.Stdout)
	}
	if opts.Stderr != nil {
		cfg = cfg.WithStderr(opts.Stderr)
	}

	mod, err := rt.InstantiateWithConfig(ctx, wasm, cfg)
	if err != nil {
		return nil, err
	}

	b := NewBackend(mod, opts.Exports)
	log.Debug(ctx, "module loaded", slog.F("exports", b.Available()))
	return &Host{
		Backend: b,
		rt:      rt,
		mod:     mod,
	}, nil
}

// Verify compiles wasm without instantiating it and reports the first op in ops it does
// not export a function for. Unlike Load it accepts modules whose imports only a browser
// can satisfy, such as the Go js/wasm runtime.
func Verify(ctx context.Context, wasm []byte, exports Exports, ops []dispatch.Op) (err error) {
	defer xdefer.Errorf(&err, "failed to verify module")

	if exports == nil {
		exports = DefaultExports
	}
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	cm, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return err
	}
	fns := cm.ExportedFunctions()
	for _, op := range ops {
		if _, ok := fns[exports[op]]; !ok {
			return MissingExportError{Op: op, Name: exports[op]}
		}
	}
	return nil
}

func (h *Host) Close(ctx context.Context) error {
	return h.rt.Close(ctx)
}

func hostLog(ctx context.Context, m api.Module, ptr, n uint32) {
	mem := m.Memory()
	if mem == nil {
		log.Warn(ctx, "module logged without exporting memory")
		return
	}
	b, ok := mem.Read(ptr, n)
	if !ok {
		log.Warn(ctx, "module logged out of bounds", slog.F("ptr", ptr), slog.F("len", n))
		return
	}
	log.Info(ctx, string(b), slog.F("module", m.Name()))
}

package cglcli

import (
	"bytes"
	"context"
	"fmt"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/eventloop"
	"oss.terrastruct.com/canvasglue/lib/xmain"
)

func replayCmd(ctx context.Context, ms *xmain.State, f flags, args []string) error {
	var modulePath, scriptPath string
	if f.dryRun {
		if len(args) != 1 {
			return xmain.UsageErrorf("replay --dry-run expects exactly one script argument")
		}
		scriptPath = args[0]
	} else {
		if len(args) != 2 {
			return xmain.UsageErrorf("replay expects a module and a script argument")
		}
		modulePath, scriptPath = args[0], args[1]
		if modulePath == "-" && scriptPath == "-" {
			return xmain.UsageErrorf("module and script cannot both be read from stdin")
		}
	}

	v, err := loadVariant(ms, f)
	if err != nil {
		return err
	}
	script, err := ms.ReadPath(scriptPath)
	if err != nil {
		return err
	}
	evs, err := eventloop.ParseScript(bytes.NewReader(script))
	if err != nil {
		return xmain.UsageErrorf("%s: %v", ms.HumanPath(scriptPath), err)
	}

	var b dispatch.Backend
	var rec *dispatch.Recorder
	if f.dryRun {
		rec = &dispatch.Recorder{}
		b = rec
	} else {
		h, err := loadModule(ctx, ms, modulePath, v)
		if err != nil {
			return err
		}
		defer h.Close(ctx)
		b = h
	}
	b, flush := backend(b, f)

	d := dispatch.New(b, v)
	err = d.Start(ctx)
	if err == nil {
		err = eventloop.Replay(ctx, d, evs)
	}
	if err == nil {
		err = flush(ctx)
	}
	if rec != nil {
		for _, c := range rec.Strings() {
			fmt.Fprintln(ms.Stdout, c)
		}
	}
	if err != nil {
		return err
	}
	ms.Log.Success.Printf("replayed %d events from %s", len(evs), ms.HumanPath(scriptPath))
	return nil
}

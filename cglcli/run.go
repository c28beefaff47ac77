package cglcli

import (
	"bufio"
	"context"
	"errors"
	"time"

	"oss.terrastruct.com/xcontext"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/eventloop"
	"oss.terrastruct.com/canvasglue/lib/xmain"
)

func runCmd(ctx context.Context, ms *xmain.State, f flags, args []string) error {
	if len(args) != 1 {
		return xmain.UsageErrorf("run expects exactly one module argument")
	}
	if args[0] == "-" {
		return xmain.UsageErrorf("run reads events from stdin so the module must be a file")
	}
	v, err := loadVariant(ms, f)
	if err != nil {
		return err
	}
	h, err := loadModule(ctx, ms, args[0], v)
	if err != nil {
		return err
	}
	defer h.Close(ctx)

	b, flush := backend(h, f)
	interval := time.Duration(f.tickMS) * time.Millisecond
	if interval <= 0 {
		interval = -1
	}
	l := eventloop.New(dispatch.New(b, v), eventloop.Opts{
		Interval:  interval,
		QueueSize: 64,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- l.Run(ctx)
	}()

	ms.Log.Info.Printf("running %s with variant %s: reading events from stdin", ms.HumanPath(args[0]), v.Name)
	err = postLines(ctx, ms, l)
	if err == nil {
		err = l.Sync(ctx)
	}
	cancel()
	runErr := <-errc
	if errors.Is(err, eventloop.ErrClosed) || err == nil && !errors.Is(runErr, context.Canceled) {
		err = runErr
	}
	if err != nil {
		return err
	}
	// The loop has stopped so a buffered move can be sent from here.
	return flush(xcontext.WithoutCancel(ctx))
}

// postLines posts the events of every stdin line until EOF. Bad lines are reported and
// skipped.
func postLines(ctx context.Context, ms *xmain.State, l *eventloop.Loop) error {
	sc := bufio.NewScanner(ms.Stdin)
	for n := 1; sc.Scan(); n++ {
		evs, err := eventloop.ParseLine(sc.Text())
		if err != nil {
			ms.Log.Warn.Print(eventloop.ParseError{Line: n, Msg: err.Error()})
			continue
		}
		for _, ev := range evs {
			err = l.Post(ctx, ev)
			if err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

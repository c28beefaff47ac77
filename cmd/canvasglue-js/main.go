//go:build js && wasm

// Command canvasglue-js is the browser glue. The page instantiates the computational
// module first and publishes its exports as globalThis.canvasglueBackend; this program
// then wires the canvas to it.
//
// Optional globals: canvasglueVariant (JSON variant definition or built-in name),
// canvasglueCanvasID (default "canvas") and canvasglueTickMS (default 50).
package main

import (
	"context"
	"os"
	"syscall/js"
	"time"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/eventloop"
	"oss.terrastruct.com/canvasglue/jshost"
	"oss.terrastruct.com/canvasglue/lib/log"
)

func main() {
	ctx := log.Writer(context.Background(), os.Stderr)
	global := js.Global()

	v := variant(global.Get("canvasglueVariant"))
	b := jshost.NewBackend(global.Get("canvasglueBackend"), jshost.DefaultExports.With(v.Exports))
	if err := b.Check(v.Required()); err != nil {
		log.Error(ctx, "backend cannot serve variant "+v.Name+": "+err.Error())
	}

	interval := eventloop.DefaultInterval
	if ms := global.Get("canvasglueTickMS"); ms.Type() == js.TypeNumber {
		interval = time.Duration(ms.Float() * float64(time.Millisecond))
	}
	canvasID := "canvas"
	if id := global.Get("canvasglueCanvasID"); id.Type() == js.TypeString {
		canvasID = id.String()
	}

	doc := global.Get("document")
	canvas := doc.Call("getElementById", canvasID)
	if canvas.IsNull() {
		panic("canvasglue: no canvas with id " + canvasID)
	}
	canvas.Set("tabIndex", 0)

	l := eventloop.New(dispatch.New(b, v), eventloop.Opts{
		Interval:  interval,
		QueueSize: 256,
	})
	release := jshost.Attach(doc, canvas, v, l)
	defer release()

	api := jshost.NewAPI()
	jshost.Register(api, v)
	api.ExportTo(global, "canvasglue")

	if cb := global.Get("onCanvasglueInitialized"); !cb.IsUndefined() {
		cb.Invoke()
	}

	err := l.Run(ctx)
	if err != nil {
		log.Error(ctx, "event loop stopped: "+err.Error())
	}
}

func variant(val js.Value) *dispatch.Variant {
	if val.Type() != js.TypeString {
		return dispatch.Directional
	}
	s := val.String()
	if v, ok := dispatch.LookupVariant(s); ok {
		return v
	}
	v, err := dispatch.ParseVariant([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

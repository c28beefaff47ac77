//go:build js && wasm

package jshost

import (
	"syscall/js"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/eventloop"
)

// Attach registers the DOM listeners the variant listens to on canvas and posts their
// events to l. Keys are read from the document so the canvas does not need focus.
// The returned func removes the listeners.
func Attach(doc, canvas js.Value, v *dispatch.Variant, l *eventloop.Loop) (release func()) {
	var releases []func()
	listen := func(target js.Value, typ string) {
		f := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) == 0 {
				return nil
			}
			// Listeners run on the browser's event loop and must never block.
			if ev := convert(typ, jsEvent{args[0]}); ev != nil {
				l.TryPost(ev)
			}
			return nil
		})
		target.Call("addEventListener", typ, f)
		releases = append(releases, func() {
			target.Call("removeEventListener", typ, f)
			f.Release()
		})
	}

	if v.Keys.Len() > 0 {
		listen(doc, "keydown")
	}
	if v.Pointer {
		listen(canvas, "mousedown")
		listen(canvas, "mousemove")
	}
	if v.Wheel {
		listen(canvas, "wheel")
	}

	return func() {
		for _, r := range releases {
			r()
		}
	}
}

type jsEvent struct {
	v js.Value
}

func (e jsEvent) String(prop string) string {
	return e.v.Get(prop).String()
}

func (e jsEvent) Float(prop string) float64 {
	return e.v.Get(prop).Float()
}

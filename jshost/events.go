// Package jshost wires the dispatcher into a browser page: DOM listeners feed an event
// loop, and the backend calls the computational module's instance.exports.
package jshost

import (
	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/eventloop"
)

// Exports maps backend operations to JavaScript export names.
type Exports map[dispatch.Op]string

var DefaultExports = Exports{
	dispatch.OpClearCanvas:         "clearCanvas",
	dispatch.OpKeyPress:            "keyPress",
	dispatch.OpPointerDown:         "pointerDown",
	dispatch.OpPointerMove:         "pointerMove",
	dispatch.OpWheel:               "wheel",
	dispatch.OpApplyTransformation: "applyTransformation",
	dispatch.OpRenderFrame:         "renderFrame",
	dispatch.OpDrawLine:            "drawLine",
}

// With returns a copy of e with the given overrides applied.
func (e Exports) With(overrides map[dispatch.Op]string) Exports {
	e2 := make(Exports, len(e)+len(overrides))
	for op, name := range e {
		e2[op] = name
	}
	for op, name := range overrides {
		e2[op] = name
	}
	return e2
}

// domEvent reads the properties of a DOM event.
type domEvent interface {
	String(prop string) string
	Float(prop string) float64
}

// convert turns a DOM event of type typ into a loop event, or nil for types the glue
// does not handle. Pointer positions are the client coordinates of the event.
func convert(typ string, ev domEvent) eventloop.Event {
	switch typ {
	case "keydown":
		return eventloop.KeyEvent{Key: ev.String("key")}
	case "mousedown":
		return eventloop.PointerDownEvent{X: ev.Float("clientX"), Y: ev.Float("clientY")}
	case "mousemove":
		return eventloop.PointerMoveEvent{X: ev.Float("clientX"), Y: ev.Float("clientY")}
	case "wheel":
		return eventloop.WheelEvent{Delta: ev.Float("deltaY")}
	default:
		return nil
	}
}

//go:build js && wasm

package jshost

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"syscall/js"
)

// API collects Go functions exported to JavaScript under one namespace object.
// Every exported function returns a JSON string holding either data or an error.
type API struct {
	exports map[string]js.Func
}

func NewAPI() *API {
	return &API{
		exports: make(map[string]js.Func),
	}
}

func (api *API) Register(name string, fn func(args []js.Value) (interface{}, error)) {
	api.exports[name] = wrapJSCall(fn)
}

func (api *API) ExportTo(target js.Value, namespace string) {
	ns := make(map[string]interface{})
	for name, fn := range api.exports {
		ns[name] = fn
	}
	target.Set(namespace, js.ValueOf(ns))
}

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *Error) Error() string {
	return e.Message
}

func wrapJSCall(fn func(args []js.Value) (interface{}, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) (result any) {
		defer func() {
			if r := recover(); r != nil {
				result = encode(Response{
					Error: &Error{
						Message: fmt.Sprintf("panic recovered: %v\n%s", r, debug.Stack()),
						Code:    500,
					},
				})
			}
		}()

		data, err := fn(args)
		if err != nil {
			jerr, ok := err.(*Error)
			if !ok {
				jerr = &Error{
					Message: err.Error(),
					Code:    500,
				}
			}
			return encode(Response{Error: jerr})
		}
		return encode(Response{Data: data})
	})
}

func encode(resp Response) string {
	b, _ := json.Marshal(resp)
	return string(b)
}

//go:build js && wasm

package jshost

import (
	"syscall/js"

	"oss.terrastruct.com/canvasglue/dispatch"
	"oss.terrastruct.com/canvasglue/lib/version"
)

type KeysResponse struct {
	Variant string          `json:"variant"`
	Keys    map[string]int  `json:"keys"`
	Tick    []dispatch.Op   `json:"tick"`
	Inputs  map[string]bool `json:"inputs"`
}

type TranslateResponse struct {
	Code  int    `json:"code"`
	Name  string `json:"name,omitempty"`
	Match bool   `json:"match"`
}

// Register exports the glue's introspection functions, bound to v.
func Register(api *API, v *dispatch.Variant) {
	api.Register("keys", func(args []js.Value) (interface{}, error) {
		keys := make(map[string]int, v.Keys.Len())
		for _, k := range v.Keys.Keys() {
			code, _ := v.Keys.Translate(k)
			keys[k] = int(code)
		}
		return KeysResponse{
			Variant: v.Name,
			Keys:    keys,
			Tick:    v.Tick,
			Inputs: map[string]bool{
				"keys":    v.Keys.Len() > 0,
				"pointer": v.Pointer,
				"wheel":   v.Wheel,
			},
		}, nil
	})
	api.Register("translate", func(args []js.Value) (interface{}, error) {
		if len(args) < 1 {
			return nil, &Error{Message: "missing key argument", Code: 400}
		}
		code, ok := v.Keys.Translate(args[0].String())
		if !ok {
			return TranslateResponse{}, nil
		}
		return TranslateResponse{
			Code:  int(code),
			Name:  code.String(),
			Match: true,
		}, nil
	})
	api.Register("variants", func(args []js.Value) (interface{}, error) {
		return dispatch.VariantNames(), nil
	})
	api.Register("version", func(args []js.Value) (interface{}, error) {
		return version.Version, nil
	})
}

package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/canvasglue/keymap"
	"oss.terrastruct.com/canvasglue/lib/go2"
)

// Variant is one configuration of the glue: which keys are recognized, which pointer
// inputs are listened to, and what a render tick does.
type Variant struct {
	Name string        `json:"name"`
	Keys *keymap.Table `json:"keys"`
	// Tick is called in order on every render tick.
	Tick         []Op `json:"tick"`
	Pointer      bool `json:"pointer"`
	Wheel        bool `json:"wheel"`
	ClearOnStart bool `json:"clearOnStart"`
	// Exports renames the module functions backing each op. Ops not listed keep the
	// host's default export name.
	Exports map[Op]string `json:"exports,omitempty"`
}

var (
	Directional = &Variant{
		Name:         "directional",
		Keys:         keymap.Directional,
		Tick:         []Op{OpApplyTransformation, OpRenderFrame},
		Pointer:      true,
		Wheel:        true,
		ClearOnStart: true,
	}
	// Classic drives modules exporting keyPressHandler, clickHandler and moveHandler and
	// repainting with renderFrame alone.
	Classic = &Variant{
		Name:         "classic",
		Keys:         keymap.Directional,
		Tick:         []Op{OpRenderFrame},
		Pointer:      true,
		ClearOnStart: true,
		Exports: map[Op]string{
			OpKeyPress:    "keyPressHandler",
			OpPointerDown: "clickHandler",
			OpPointerMove: "moveHandler",
		},
	}
	Orbit = &Variant{
		Name:         "orbit",
		Keys:         keymap.Orbit,
		Tick:         []Op{OpApplyTransformation, OpRenderFrame},
		Pointer:      true,
		Wheel:        true,
		ClearOnStart: true,
	}
	Line = &Variant{
		Name:         "line",
		Keys:         keymap.Empty,
		Tick:         []Op{OpDrawLine},
		ClearOnStart: true,
	}
)

var builtin = map[string]*Variant{
	Directional.Name: Directional,
	Classic.Name:     Classic,
	Orbit.Name:       Orbit,
	Line.Name:        Line,
}

// VariantNames returns the names of the built-in variants, sorted.
func VariantNames() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupVariant returns the built-in variant called name.
func LookupVariant(name string) (*Variant, bool) {
	v, ok := builtin[name]
	return v, ok
}

// Required returns the backend operations the variant may invoke, in Ops order.
func (v *Variant) Required() []Op {
	var ops []Op
	for _, op := range Ops {
		switch op {
		case OpClearCanvas:
			if v.ClearOnStart || go2.Contains(v.Tick, op) {
				ops = append(ops, op)
			}
		case OpKeyPress:
			if v.Keys.Len() > 0 {
				ops = append(ops, op)
			}
		case OpPointerDown, OpPointerMove:
			if v.Pointer {
				ops = append(ops, op)
			}
		case OpWheel:
			if v.Wheel {
				ops = append(ops, op)
			}
		default:
			if go2.Contains(v.Tick, op) {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

func (v *Variant) Validate() error {
	if v.Name == "" {
		return errors.New("variant has no name")
	}
	for i, op := range v.Tick {
		if !op.Valid() {
			return fmt.Errorf("tick[%d]: unknown operation %q", i, op)
		}
		if !op.Nullary() {
			return fmt.Errorf("tick[%d]: %s takes arguments and cannot run on a tick", i, op)
		}
	}
	for op, name := range v.Exports {
		if !op.Valid() {
			return fmt.Errorf("exports: unknown operation %q", op)
		}
		if name == "" {
			return fmt.Errorf("exports: empty name for %s", op)
		}
	}
	return nil
}

// ParseVariant decodes and validates a JSON variant definition.
func ParseVariant(b []byte) (_ *Variant, err error) {
	defer xdefer.Errorf(&err, "failed to parse variant")

	v := &Variant{}
	err = json.Unmarshal(b, v)
	if err != nil {
		return nil, err
	}
	if v.Keys == nil {
		v.Keys = keymap.Empty
	}
	err = v.Validate()
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Package keymap holds the declarative tables that translate raw key identifiers into
// command codes.
//
// A Table is built once per configuration and never mutated afterwards. Translate is a
// pure lookup: identifiers outside the table report no match rather than an error.
package keymap

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Code is a command code understood by the backend's key handler.
type Code int

const (
	CodeLeft Code = iota + 1
	CodeRight
	CodeUp
	CodeDown
	CodeForward
	CodeBack
	CodeRollLeft
	CodeRollRight
	CodeStepDown
	CodeStepUp
	CodeRotateLeft
	CodeRotateRight
	CodeRotateUp
	CodeRotateDown
)

var codeNames = map[Code]string{
	CodeLeft:        "left",
	CodeRight:       "right",
	CodeUp:          "up",
	CodeDown:        "down",
	CodeForward:     "forward",
	CodeBack:        "back",
	CodeRollLeft:    "roll_left",
	CodeRollRight:   "roll_right",
	CodeStepDown:    "step_down",
	CodeStepUp:      "step_up",
	CodeRotateLeft:  "rotate_left",
	CodeRotateRight: "rotate_right",
	CodeRotateUp:    "rotate_up",
	CodeRotateDown:  "rotate_down",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "code_" + strconv.Itoa(int(c))
}

var ErrEmptyKey = errors.New("empty key identifier")

// InvalidCodeError is returned when a table maps a key to a non positive code.
type InvalidCodeError struct {
	Key  string
	Code Code
}

func (e InvalidCodeError) Error() string {
	return fmt.Sprintf("key %q maps to invalid command code %d: codes must be positive", e.Key, int(e.Code))
}

// Table maps raw key identifiers to command codes.
// The zero value is an empty table that matches nothing.
type Table struct {
	codes map[string]Code
}

// New validates m and returns a Table holding a copy of it.
func New(m map[string]Code) (*Table, error) {
	codes := make(map[string]Code, len(m))
	for k, c := range m {
		if k == "" {
			return nil, ErrEmptyKey
		}
		if c <= 0 {
			return nil, InvalidCodeError{Key: k, Code: c}
		}
		codes[k] = c
	}
	return &Table{codes: codes}, nil
}

// MustNew is like New but panics on an invalid table.
// Only for tables known at compile time.
func MustNew(m map[string]Code) *Table {
	t, err := New(m)
	if err != nil {
		panic(err)
	}
	return t
}

// Group builds a table fragment where every key aliases code.
func Group(code Code, keys ...string) map[string]Code {
	m := make(map[string]Code, len(keys))
	for _, k := range keys {
		m[k] = code
	}
	return m
}

// Merge combines fragments. Later fragments win on conflicting keys.
func Merge(fragments ...map[string]Code) map[string]Code {
	m := make(map[string]Code)
	for _, f := range fragments {
		for k, c := range f {
			m[k] = c
		}
	}
	return m
}

// Translate returns the command code for key, or false if key is not in the table.
func (t *Table) Translate(key string) (Code, bool) {
	if t == nil {
		return 0, false
	}
	c, ok := t.codes[key]
	return c, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// Keys returns every recognized identifier, sorted.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.codes))
	for k := range t.codes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Codes returns the distinct codes of the table in ascending order.
func (t *Table) Codes() []Code {
	if t == nil {
		return nil
	}
	seen := make(map[Code]struct{})
	var codes []Code
	for _, c := range t.codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i] < codes[j]
	})
	return codes
}

// Aliases returns the sorted identifiers that translate to c.
func (t *Table) Aliases(c Code) []string {
	var keys []string
	for _, k := range t.Keys() {
		if t.codes[k] == c {
			keys = append(keys, k)
		}
	}
	return keys
}

func (t *Table) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.codes)
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var m map[string]Code
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	t2, err := New(m)
	if err != nil {
		return err
	}
	*t = *t2
	return nil
}

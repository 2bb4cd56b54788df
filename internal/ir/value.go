package ir

import (
	"slices"
	"unicode/utf16"

	"github.com/google/uuid"
)

// Value is a sealed interface over the dynamic value shapes.
type Value interface {
	irValue() // Sealed - only the types in this file implement it
}

// Null is the absent value: an empty option, a null reference or the value
// of a singleton shape.
type Null struct{}

func (Null) irValue() {}

// String is a UTF-8 string value.
type String string

func (String) irValue() {}

// Int is an integer value. Always int64, never float.
type Int int64

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Bytes is an opaque byte block.
type Bytes []byte

func (Bytes) irValue() {}

// List is an ordered sequence of values.
type List []Value

func (List) irValue() {}

// Record maps field names to values. The schema decides field order; use
// SortedKeys for deterministic iteration without one.
type Record map[string]Value

func (Record) irValue() {}

// Variant is a value of one named case of a union.
type Variant struct {
	Case  string
	Value Value
}

func (Variant) irValue() {}

// Cell is a shared, mutable reference. Identity is the pointer; ID is a
// stable key for ordering and hashing that never changes after creation.
type Cell struct {
	id    uuid.UUID
	Value Value
}

func (*Cell) irValue() {}

// NewCell returns a cell holding v with a fresh time-ordered identity.
func NewCell(v Value) *Cell {
	return &Cell{id: uuid.Must(uuid.NewV7()), Value: v}
}

// ID returns the cell's identity key.
func (c *Cell) ID() uuid.UUID { return c.id }

// R is a shorthand for building records in tests and loaders.
// Example: R("name", String("cart"), "count", Int(5))
func R(kv ...any) Record {
	rec := make(Record, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		rec[kv[i].(string)] = kv[i+1].(Value)
	}
	return rec
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Kind names the shape of v for error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Bytes:
		return "bytes"
	case List:
		return "list"
	case Record:
		return "record"
	case Variant:
		return "variant"
	case *Cell:
		return "ref"
	default:
		return "unknown"
	}
}

// Walk visits v and everything reachable from it once, cells included.
// Cycles through cells are followed only once.
func Walk(v Value, visit func(Value)) {
	seen := make(map[*Cell]bool)
	var walk func(Value)
	walk = func(v Value) {
		visit(v)
		switch val := v.(type) {
		case List:
			for _, e := range val {
				walk(e)
			}
		case Record:
			for _, k := range val.SortedKeys() {
				walk(val[k])
			}
		case Variant:
			walk(val.Value)
		case *Cell:
			if val == nil || seen[val] {
				return
			}
			seen[val] = true
			walk(val.Value)
		}
	}
	walk(v)
}

// HasCells reports whether any cell is reachable from v.
func HasCells(v Value) bool {
	found := false
	Walk(v, func(v Value) {
		if _, ok := v.(*Cell); ok {
			found = true
		}
	})
	return found
}

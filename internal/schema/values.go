package schema

import (
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/traitsmith/internal/ir"
	"github.com/roach88/traitsmith/internal/traits"
)

// expect returns a guard accepting only values of dynamic type V.
func expect[V ir.Value](name string) func(ir.Value) error {
	return func(v ir.Value) error {
		if _, ok := v.(V); !ok {
			return fmt.Errorf("%s expects a %s, got %s", name, ir.Kind(*new(V)), ir.Kind(v))
		}
		return nil
	}
}

// scalar adapts traits over a Go scalar to ir values of type V.
func scalar[V ir.Value, U any](name string, inner traits.Traits[U], to func(V) U, from func(U) V) traits.Traits[ir.Value] {
	conv := traits.NewConvert(inner,
		func(v ir.Value) U {
			x, _ := v.(V)
			return to(x)
		},
		func(u U) ir.Value { return from(u) })
	return traits.NewGuarded(name, conv, expect[V](name))
}

// primitiveTraits returns the traits for a builtin type name.
func primitiveTraits(name string) (traits.Traits[ir.Value], error) {
	switch name {
	case TypeString:
		return scalar(name, traits.String(),
			func(v ir.String) string { return string(v) },
			func(s string) ir.String { return ir.String(s) }), nil
	case TypeInt:
		return scalar(name, traits.Int64(),
			func(v ir.Int) int64 { return int64(v) },
			func(n int64) ir.Int { return ir.Int(n) }), nil
	case TypeInt32:
		narrow := scalar(name, traits.Int32(),
			func(v ir.Int) int32 { return int32(v) },
			func(n int32) ir.Int { return ir.Int(n) })
		return traits.NewGuarded(name, narrow, func(v ir.Value) error {
			if n, ok := v.(ir.Int); ok && (n < math.MinInt32 || n > math.MaxInt32) {
				return fmt.Errorf("%d overflows int32", n)
			}
			return nil
		}), nil
	case TypeBool:
		return scalar(name, traits.Bool(),
			func(v ir.Bool) bool { return bool(v) },
			func(b bool) ir.Bool { return ir.Bool(b) }), nil
	case TypeBytes:
		return scalar(name, traits.Bytes(),
			func(v ir.Bytes) []byte { return []byte(v) },
			func(p []byte) ir.Bytes { return ir.Bytes(p) }), nil
	case TypeUnit:
		return unitTraits(name), nil
	default:
		return nil, fmt.Errorf("unknown primitive %q", name)
	}
}

// unitTraits holds only ir.Null and writes nothing.
func unitTraits(name string) traits.Traits[ir.Value] {
	return traits.NewGuarded(name, traits.NewSingleton[ir.Value](name, traits.TokenUnit, ir.Null{}), expect[ir.Null](name))
}

func listTraits(elem traits.Traits[ir.Value]) traits.Traits[ir.Value] {
	return scalar("list", traits.NewList(elem),
		func(v ir.List) []ir.Value { return v },
		func(vs []ir.Value) ir.List { return ir.List(vs) })
}

// setTraits treats a list as a set: elements are ordered and deduplicated
// by elem before every operation, so two lists holding the same elements
// in any order are equal.
func setTraits(elem traits.Traits[ir.Value]) traits.Traits[ir.Value] {
	return scalar("set", traits.NewSetTraits(elem),
		func(v ir.List) traits.Set[ir.Value] { return traits.NewSet(elem, v...) },
		func(s traits.Set[ir.Value]) ir.List { return ir.List(slices.Clone(s.Items())) })
}

// optionTraits maps ir.Null (or a missing value) to the empty option.
func optionTraits(elem traits.Traits[ir.Value]) traits.Traits[ir.Value] {
	return traits.NewConvert(traits.NewOption(elem),
		func(v ir.Value) traits.Option[ir.Value] {
			if v == nil {
				return traits.None[ir.Value]()
			}
			if _, null := v.(ir.Null); null {
				return traits.None[ir.Value]()
			}
			return traits.Some(v)
		},
		func(o traits.Option[ir.Value]) ir.Value {
			if !o.Valid {
				return ir.Null{}
			}
			return o.Value
		})
}

// refTraits shares cells by identity. Every ref traits uses the same
// scope, so one cell has one id in a traversal whatever type reaches it.
// ir.Null and a nil cell are the null reference.
func refTraits(elem traits.Traits[ir.Value]) traits.Traits[ir.Value] {
	shared := traits.NewSharedRef(traits.SharedRefOptions[*ir.Cell, uuid.UUID, ir.Value]{
		Name:           "ref",
		Identity:       (*ir.Cell).ID,
		IdentityTraits: traits.UUID(),
		Payload:        func(c *ir.Cell) ir.Value { return c.Value },
		PayloadTraits:  elem,
		New:            func() *ir.Cell { return ir.NewCell(nil) },
		Fill:           func(c *ir.Cell, v ir.Value) { c.Value = v },
		IsNull:         func(c *ir.Cell) bool { return c == nil },
		Null:           func() *ir.Cell { return nil },
		Scope:          traits.TypeScope[*ir.Cell](),
	})
	conv := traits.NewConvert(shared,
		func(v ir.Value) *ir.Cell {
			c, _ := v.(*ir.Cell)
			return c
		},
		func(c *ir.Cell) ir.Value {
			if c == nil {
				return ir.Null{}
			}
			return c
		})
	return traits.NewGuarded("ref", conv, func(v ir.Value) error {
		switch v.(type) {
		case *ir.Cell, ir.Null:
			return nil
		}
		return fmt.Errorf("ref expects a ref or null, got %s", ir.Kind(v))
	})
}

// recordField returns the field traits reading and writing name of an
// ir.Record.
func recordField(name, typeName string, tr traits.Traits[ir.Value]) traits.Field[ir.Value] {
	return traits.NewNamedField(name, typeName, tr,
		func(r ir.Value) ir.Value {
			rec, _ := r.(ir.Record)
			return rec[name]
		},
		func(r *ir.Value, v ir.Value) {
			if rec, ok := (*r).(ir.Record); ok {
				rec[name] = v
			}
		})
}

// recordTraits builds traits for a declared record. Values must be
// ir.Record holding no fields beyond the declared ones.
func recordTraits(name string, fields []traits.Field[ir.Value]) (traits.Traits[ir.Value], error) {
	rec, err := traits.NewRecord(name, fields...)
	if err != nil {
		return nil, err
	}
	rec.WithConstructor(func() ir.Value { return ir.Record{} })

	known := make(map[string]bool, len(fields))
	for _, f := range rec.Fields() {
		known[f.Name()] = true
	}
	return traits.NewGuarded(name, traits.Traits[ir.Value](rec), func(v ir.Value) error {
		r, ok := v.(ir.Record)
		if !ok {
			return fmt.Errorf("%s expects a record, got %s", name, ir.Kind(v))
		}
		for _, k := range r.SortedKeys() {
			if !known[k] {
				return fmt.Errorf("%s has no field %q", name, k)
			}
		}
		return nil
	}), nil
}

// variantCase returns the union case selected by ir.Variant values tagged
// name.
func variantCase(name string, tr traits.Traits[ir.Value]) traits.Case[ir.Value] {
	return traits.NewTaggedCase(name, tr,
		func(v ir.Value) (ir.Value, bool) {
			vr, ok := v.(ir.Variant)
			if !ok || vr.Case != name {
				return nil, false
			}
			return vr.Value, true
		},
		func(payload ir.Value) ir.Value {
			return ir.Variant{Case: name, Value: payload}
		})
}

// singletonTraits is a declared type with the single value ir.Null.
func singletonTraits(name string) traits.Traits[ir.Value] {
	return unitTraits(name)
}

package artifact

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Kind tags what sort of product a Key asks for.
type Kind uint8

const (
	// KindTypeTraits asks for the value traits of a type.
	KindTypeTraits Kind = iota + 1

	// KindComparator asks for a plain comparison function derived from
	// the type's traits.
	KindComparator

	// KindFieldTraits asks for the traits of one field of a record type.
	// The qualifier is the field name and is required.
	KindFieldTraits
)

// String returns the kind name used in key renderings.
func (k Kind) String() string {
	switch k {
	case KindTypeTraits:
		return "TypeTraits"
	case KindComparator:
		return "Comparator"
	case KindFieldTraits:
		return "FieldTraits"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// RequiresQualifier reports whether keys of this kind carry a qualifier.
func (k Kind) RequiresQualifier() bool {
	return k == KindFieldTraits
}

func (k Kind) valid() bool {
	return k >= KindTypeTraits && k <= KindFieldTraits
}

// TypeRef names the type a key refers to. Two refs are the same type when
// their names are equal.
type TypeRef struct {
	name string
}

// Name returns the fully qualified type name.
func (t TypeRef) Name() string {
	return t.name
}

// IsZero reports whether t names no type.
func (t TypeRef) IsZero() bool {
	return t.name == ""
}

func (t TypeRef) String() string {
	return t.name
}

// NamedType returns a TypeRef for a type that is not a Go type, such as a
// shape declared in a schema.
func NamedType(name string) TypeRef {
	return TypeRef{name: name}
}

// typeNameCache memoizes reflect-derived names; the same Go types are
// looked up over and over while planning.
var typeNameCache sync.Map // reflect.Type -> string

// TypeOf returns the TypeRef of the Go type T.
func TypeOf[T any]() TypeRef {
	return typeRefOf(reflect.TypeFor[T]())
}

func typeRefOf(t reflect.Type) TypeRef {
	if cached, ok := typeNameCache.Load(t); ok {
		return TypeRef{name: cached.(string)}
	}
	name := qualifiedName(t)
	typeNameCache.Store(t, name)
	return TypeRef{name: name}
}

// qualifiedName renders t with full package paths so that same-named types
// from different packages stay distinct.
func qualifiedName(t reflect.Type) string {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + qualifiedName(t.Elem())
	case reflect.Slice:
		return "[]" + qualifiedName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + qualifiedName(t.Elem())
	case reflect.Map:
		return "map[" + qualifiedName(t.Key()) + "]" + qualifiedName(t.Elem())
	default:
		return t.String()
	}
}

// Key identifies one desired build product. Keys are immutable, comparable
// with == and usable as map keys.
type Key struct {
	kind      Kind
	typ       TypeRef
	qualifier string
	qualified bool
}

// NewKey creates a key. Kinds that require a qualifier take exactly one;
// all other kinds take none. Any mismatch is a ConfigurationError.
func NewKey(kind Kind, typ TypeRef, qualifier ...string) (Key, error) {
	if !kind.valid() {
		return Key{}, &ConfigurationError{Message: fmt.Sprintf("unknown key kind %d", kind)}
	}
	if typ.IsZero() {
		return Key{}, &ConfigurationError{Kind: kind, Message: "type descriptor is required"}
	}
	if len(qualifier) > 1 {
		return Key{}, &ConfigurationError{Kind: kind, Type: typ, Message: "at most one qualifier is allowed"}
	}
	has := len(qualifier) == 1
	if has != kind.RequiresQualifier() {
		msg := "qualifier is not allowed"
		if kind.RequiresQualifier() {
			msg = "qualifier is required"
		}
		return Key{}, &ConfigurationError{Kind: kind, Type: typ, Message: msg}
	}
	k := Key{kind: kind, typ: typ, qualified: has}
	if has {
		k.qualifier = qualifier[0]
	}
	return k, nil
}

// MustKey is NewKey for keys known to be well formed. It panics on a
// ConfigurationError.
func MustKey(kind Kind, typ TypeRef, qualifier ...string) Key {
	k, err := NewKey(kind, typ, qualifier...)
	if err != nil {
		panic(err)
	}
	return k
}

// TypeTraitsKey is shorthand for the TypeTraits key of typ.
func TypeTraitsKey(typ TypeRef) Key {
	return Key{kind: KindTypeTraits, typ: typ}
}

// ComparatorKey is shorthand for the Comparator key of typ.
func ComparatorKey(typ TypeRef) Key {
	return Key{kind: KindComparator, typ: typ}
}

// FieldKey is shorthand for the FieldTraits key of one field of record.
func FieldKey(record TypeRef, field string) Key {
	return Key{kind: KindFieldTraits, typ: record, qualifier: field, qualified: true}
}

// Kind returns the key's kind.
func (k Key) Kind() Kind { return k.kind }

// Type returns the key's type descriptor.
func (k Key) Type() TypeRef { return k.typ }

// Qualifier returns the qualifier and whether the key has one.
func (k Key) Qualifier() (string, bool) { return k.qualifier, k.qualified }

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k.kind == 0 }

// String renders the key as Kind(type) or Kind(type, qualifier).
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.kind.String())
	b.WriteByte('(')
	b.WriteString(k.typ.name)
	if k.qualified {
		b.WriteString(", ")
		b.WriteString(k.qualifier)
	}
	b.WriteByte(')')
	return b.String()
}

// Compare orders keys by kind, type name, qualifier presence and qualifier.
func Compare(a, b Key) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := strings.Compare(a.typ.name, b.typ.name); c != 0 {
		return c
	}
	if a.qualified != b.qualified {
		if !a.qualified {
			return -1
		}
		return 1
	}
	return strings.Compare(a.qualifier, b.qualifier)
}

// SortKeys sorts keys in place by Compare and returns them.
func SortKeys(keys []Key) []Key {
	slices.SortFunc(keys, Compare)
	return keys
}

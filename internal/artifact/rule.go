package artifact

import (
	"fmt"
	"reflect"
)

// Artifact is an opaque built product, most often a traits.Traits[T].
type Artifact = any

// Rule is a stateless build policy.
//
// CanBuild must be pure and deterministic. Prerequisites and Build are only
// called for keys CanBuild accepted, and Build is only called once every
// prerequisite is present in available, either as a finished artifact or
// as a placeholder when the prerequisite sits on a cycle.
type Rule interface {
	CanBuild(key Key) bool
	Prerequisites(key Key) []Key
	Build(key Key, available map[Key]Artifact) (Artifact, error)
}

// Supplier hands rules to a store. Schema compilers and other rule
// discovery mechanisms implement it.
type Supplier interface {
	Rules() []Rule
}

// Rules is a fixed rule list usable as a Supplier.
type Rules []Rule

// Rules returns r itself.
func (r Rules) Rules() []Rule { return r }

// RuleName returns a display name for r: its String method when it has
// one, its dynamic type otherwise.
func RuleName(r Rule) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}

// As looks up key in available and asserts it to T.
func As[T any](available map[Key]Artifact, key Key) (T, error) {
	var zero T
	a, ok := available[key]
	if !ok {
		return zero, fmt.Errorf("prerequisite %s not available", key)
	}
	v, ok := a.(T)
	if !ok {
		return zero, fmt.Errorf("prerequisite %s is %T, want %v", key, a, reflect.TypeFor[T]())
	}
	return v, nil
}

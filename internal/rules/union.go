package rules

import (
	"fmt"
	"reflect"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/traits"
)

// CaseSpec declares one case of a union over T.
type CaseSpec[T any] interface {
	// Name is the case tag.
	Name() string

	key() artifact.Key
	check() error
	build(available map[artifact.Key]artifact.Artifact) (traits.Case[T], error)
}

type caseSpec[T, U any] struct {
	name string
}

// CaseOf declares a case of union T whose values are of concrete type U.
// The mapping from tag to case type is supplied by the caller; nothing
// walks a type hierarchy.
func CaseOf[T, U any](name string) CaseSpec[T] {
	return caseSpec[T, U]{name: name}
}

func (c caseSpec[T, U]) Name() string      { return c.name }
func (c caseSpec[T, U]) key() artifact.Key { return TypeKey[U]() }

func (c caseSpec[T, U]) check() error {
	union, member := reflect.TypeFor[T](), reflect.TypeFor[U]()
	if !member.AssignableTo(union) {
		return fmt.Errorf("case %q: %v is not assignable to %v", c.name, member, union)
	}
	return nil
}

func (c caseSpec[T, U]) build(available map[artifact.Key]artifact.Artifact) (traits.Case[T], error) {
	tr, err := need[U](available, c.key())
	if err != nil {
		return traits.Case[T]{}, err
	}
	return traits.NewCase[T, U](c.name, tr), nil
}

// Union returns the rule for a closed union over T. Every case type must
// be assignable to T and every tag must be unique.
func Union[T any](name string, cases ...CaseSpec[T]) (artifact.Rule, error) {
	seen := make(map[string]bool, len(cases))
	prereqs := make([]artifact.Key, 0, len(cases))
	for _, c := range cases {
		if err := c.check(); err != nil {
			return nil, fmt.Errorf("union %s: %w", name, err)
		}
		if seen[c.Name()] {
			return nil, fmt.Errorf("union %s: duplicate case %q", name, c.Name())
		}
		seen[c.Name()] = true
		prereqs = append(prereqs, c.key())
	}
	return newTraitsRule("union "+name, prereqs,
		func(av map[artifact.Key]artifact.Artifact) (traits.Traits[T], error) {
			built := make([]traits.Case[T], 0, len(cases))
			for _, c := range cases {
				tc, err := c.build(av)
				if err != nil {
					return nil, err
				}
				built = append(built, tc)
			}
			return traits.NewUnion(name, built...)
		}), nil
}

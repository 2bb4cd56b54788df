package rules

import (
	"fmt"
	"reflect"

	"github.com/roach88/traitsmith/internal/artifact"
	"github.com/roach88/traitsmith/internal/traits"
)

// FieldSpec declares one field of record type R.
type FieldSpec[R any] interface {
	// Name is the field name, used as the FieldTraits qualifier.
	Name() string
	// TypeName names the field's Go type.
	TypeName() string

	rule() artifact.Rule
}

type fieldSpec[R, F any] struct {
	name string
	get  func(R) F
	set  func(*R, F)
}

// FieldOf declares a field of R with Go type F, read by get and written by
// set.
func FieldOf[R, F any](name string, get func(R) F, set func(*R, F)) FieldSpec[R] {
	return &fieldSpec[R, F]{name: name, get: get, set: set}
}

func (f *fieldSpec[R, F]) Name() string     { return f.name }
func (f *fieldSpec[R, F]) TypeName() string { return reflect.TypeFor[F]().String() }

func (f *fieldSpec[R, F]) rule() artifact.Rule {
	return &fieldRule[R, F]{
		keyed: keyed{
			key:  artifact.FieldKey(artifact.TypeOf[R](), f.name),
			name: fmt.Sprintf("field %s.%s", artifact.TypeOf[R](), f.name),
		},
		spec:     f,
		valueKey: TypeKey[F](),
	}
}

// fieldRule builds FieldTraits(R, name) from TypeTraits(F).
type fieldRule[R, F any] struct {
	keyed
	spec     *fieldSpec[R, F]
	valueKey artifact.Key
}

func (r *fieldRule[R, F]) Prerequisites(artifact.Key) []artifact.Key {
	return []artifact.Key{r.valueKey}
}

func (r *fieldRule[R, F]) Build(_ artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	tr, err := need[F](available, r.valueKey)
	if err != nil {
		return nil, err
	}
	return traits.NewField(r.spec.name, tr, r.spec.get, r.spec.set), nil
}

// NewPlaceholder implements artifact.PlaceholderFactory.
func (r *fieldRule[R, F]) NewPlaceholder(artifact.Key) artifact.Placeholder {
	return traits.NewRecursiveField[R](r.spec.name, r.spec.TypeName())
}

// recordRule builds TypeTraits(R) from the FieldTraits of its fields.
type recordRule[R any] struct {
	keyed
	record string
	fields []artifact.Key
	create func() R
}

// RecordOption configures a record rule.
type RecordOption[R any] func(*recordRule[R])

// WithConstructor sets the value decoded fields are written into.
func WithConstructor[R any](create func() R) RecordOption[R] {
	return func(r *recordRule[R]) { r.create = create }
}

// Record returns the rules for record type R: one for the record and one
// per distinct field. Declaring a field name twice is allowed when both
// declarations agree on its type; otherwise Record fails with a
// traits.TypeMismatchError.
func Record[R any](name string, fields []FieldSpec[R], opts ...RecordOption[R]) ([]artifact.Rule, error) {
	rec := &recordRule[R]{
		keyed:  keyed{key: TypeKey[R](), name: "record " + name},
		record: name,
	}
	for _, opt := range opts {
		opt(rec)
	}

	out := []artifact.Rule{rec}
	seen := make(map[string]FieldSpec[R], len(fields))
	for _, f := range fields {
		if prev, ok := seen[f.Name()]; ok {
			if prev.TypeName() != f.TypeName() {
				return nil, &traits.TypeMismatchError{Record: name, Field: f.Name(), First: prev.TypeName(), Second: f.TypeName()}
			}
			continue
		}
		seen[f.Name()] = f
		rec.fields = append(rec.fields, artifact.FieldKey(artifact.TypeOf[R](), f.Name()))
		out = append(out, f.rule())
	}
	return out, nil
}

func (r *recordRule[R]) Prerequisites(artifact.Key) []artifact.Key {
	return r.fields
}

func (r *recordRule[R]) Build(_ artifact.Key, available map[artifact.Key]artifact.Artifact) (artifact.Artifact, error) {
	fields := make([]traits.Field[R], 0, len(r.fields))
	for _, k := range r.fields {
		f, err := artifact.As[traits.Field[R]](available, k)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	rec, err := traits.NewRecord(r.record, fields...)
	if err != nil {
		return nil, err
	}
	if r.create != nil {
		rec.WithConstructor(r.create)
	}
	return traits.Traits[R](rec), nil
}

// NewPlaceholder implements artifact.PlaceholderFactory.
func (r *recordRule[R]) NewPlaceholder(artifact.Key) artifact.Placeholder {
	return traits.NewRecursive[R]()
}

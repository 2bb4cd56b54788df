package schema

import (
	"fmt"
	"strings"
)

// ExprKind classifies a type expression.
type ExprKind int

const (
	// ExprPrimitive is one of the builtin scalar shapes.
	ExprPrimitive ExprKind = iota
	// ExprNamed refers to a declared type.
	ExprNamed
	ExprList
	ExprSet
	ExprOption
	// ExprRef is a shared, possibly null reference to its element.
	ExprRef
)

// Primitive type names.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeInt32  = "int32"
	TypeBool   = "bool"
	TypeBytes  = "bytes"
	TypeUnit   = "unit"
)

var primitives = map[string]bool{
	TypeString: true,
	TypeInt:    true,
	TypeInt32:  true,
	TypeBool:   true,
	TypeBytes:  true,
	TypeUnit:   true,
}

var constructors = map[string]ExprKind{
	"list":   ExprList,
	"set":    ExprSet,
	"option": ExprOption,
	"ref":    ExprRef,
}

// TypeExpr is a parsed type expression such as "list<ref<Node>>".
type TypeExpr struct {
	Kind ExprKind
	// Name is the primitive or declared type name. Empty for
	// constructors.
	Name string
	// Elem is the argument of a constructor.
	Elem *TypeExpr
}

// String renders e in its canonical spelling, without spaces.
func (e TypeExpr) String() string {
	switch e.Kind {
	case ExprPrimitive, ExprNamed:
		return e.Name
	case ExprList:
		return "list<" + e.Elem.String() + ">"
	case ExprSet:
		return "set<" + e.Elem.String() + ">"
	case ExprOption:
		return "option<" + e.Elem.String() + ">"
	case ExprRef:
		return "ref<" + e.Elem.String() + ">"
	default:
		return fmt.Sprintf("ExprKind(%d)", e.Kind)
	}
}

// Named returns the declared type names e refers to, outermost first.
func (e TypeExpr) Named() []string {
	var names []string
	for cur := &e; cur != nil; cur = cur.Elem {
		if cur.Kind == ExprNamed {
			names = append(names, cur.Name)
		}
	}
	return names
}

// ParseType parses a type expression.
//
//	expr := ident | ctor "<" expr ">"
//	ctor := "list" | "set" | "option" | "ref"
func ParseType(s string) (TypeExpr, error) {
	p := &exprParser{src: s}
	e, err := p.expr()
	if err != nil {
		return TypeExpr{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeExpr{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

// MustParseType is ParseType for expressions known to be valid.
func MustParseType(s string) TypeExpr {
	e, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return e
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		digit := c >= '0' && c <= '9'
		if !letter && !(digit && p.pos > start) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *exprParser) expr() (TypeExpr, error) {
	name := p.ident()
	if name == "" {
		return TypeExpr{}, p.errorf("expected a type name")
	}
	p.skipSpace()
	kind, isCtor := constructors[name]
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		if !isCtor {
			return TypeExpr{}, p.errorf("%s takes no type argument", name)
		}
		p.pos++
		elem, err := p.expr()
		if err != nil {
			return TypeExpr{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '>' {
			return TypeExpr{}, p.errorf("expected '>'")
		}
		p.pos++
		return TypeExpr{Kind: kind, Elem: &elem}, nil
	}
	if isCtor {
		return TypeExpr{}, p.errorf("%s needs a type argument", name)
	}
	if primitives[name] {
		return TypeExpr{Kind: ExprPrimitive, Name: name}, nil
	}
	return TypeExpr{Kind: ExprNamed, Name: name}, nil
}

// reserved reports whether name cannot be used for a declared type.
func reserved(name string) bool {
	_, ctor := constructors[name]
	return ctor || primitives[name] || strings.HasPrefix(name, "_")
}

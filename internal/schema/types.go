// Package schema holds the Schema Registry (S): declared types,
// message and enum declarations, and dependency metadata, grounded on
// the teacher's pkg/schema registry/field-declaration shape —
// generalized here from a UI form schema to the relational DependoBuf
// schema this module actually implements.
package schema

import "fmt"

// Primitive enumerates the built-in scalar declared types.
type Primitive int

const (
	Int Primitive = iota
	Double
	String
	Bool
)

func (p Primitive) String() string {
	switch p {
	case Int:
		return "Int"
	case Double:
		return "Double"
	case String:
		return "String"
	case Bool:
		return "Bool"
	default:
		return "Unknown"
	}
}

// DTKind discriminates a Declared Type (DT).
type DTKind int

const (
	DTPrimitive DTKind = iota
	DTMessage
	DTEnum
)

// DT is a closed reference into the registry: either a primitive, or
// a named reference to a MessageDecl or EnumDecl.
type DT struct {
	Kind DTKind
	Prim Primitive // valid when Kind == DTPrimitive
	Name string    // valid when Kind == DTMessage or DTEnum
}

func PrimitiveType(p Primitive) DT { return DT{Kind: DTPrimitive, Prim: p} }
func MessageType(name string) DT   { return DT{Kind: DTMessage, Name: name} }
func EnumType(name string) DT      { return DT{Kind: DTEnum, Name: name} }

func (d DT) String() string {
	switch d.Kind {
	case DTPrimitive:
		return d.Prim.String()
	case DTMessage:
		return d.Name
	case DTEnum:
		return d.Name
	default:
		return "?"
	}
}

// Equal compares two declared types structurally.
func (d DT) Equal(o DT) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case DTPrimitive:
		return d.Prim == o.Prim
	default:
		return d.Name == o.Name
	}
}

// IsNumeric reports whether d is Int or Double.
func (d DT) IsNumeric() bool {
	return d.Kind == DTPrimitive && (d.Prim == Int || d.Prim == Double)
}

// FieldDecl is one field of a MessageDecl or enum variant: name,
// declared type, and the (opaque, loader-supplied) set of earlier
// field indices its declared type depends on.
type FieldDecl struct {
	Name         string
	Type         DT
	Dependencies []int // strictly-less-than-self field indices
}

// MessageDecl is a record type: an ordered, name-unique field list.
// Field order defines positional INSERT and literal-construction
// semantics.
type MessageDecl struct {
	Name   string
	Fields []FieldDecl
}

// FieldIndex returns the position of a named field, or -1.
func (m *MessageDecl) FieldIndex(name string) int {
	for i, f := range m.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Deps returns the declared-by-name dependency set of one field.
func (m *MessageDecl) Deps(fieldName string) []string {
	idx := m.FieldIndex(fieldName)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(m.Fields[idx].Dependencies))
	for _, di := range m.Fields[idx].Dependencies {
		if di >= 0 && di < len(m.Fields) {
			out = append(out, m.Fields[di].Name)
		}
	}
	return out
}

// EnumDecl is a tagged union: a name-unique mapping from variant name
// to its ordered field list.
type EnumDecl struct {
	Name     string
	Variants map[string][]FieldDecl
	// Order preserves declaration order for deterministic exhaustiveness
	// error messages; Variants is keyed the same way.
	Order []string
}

// VariantFields returns the declared fields of one variant, or
// (nil, false) if the variant is not declared.
func (e *EnumDecl) VariantFields(name string) ([]FieldDecl, bool) {
	f, ok := e.Variants[name]
	return f, ok
}

// Decl is either a MessageDecl or an EnumDecl, sharing one namespace
// in the registry.
type Decl struct {
	Message *MessageDecl
	Enum    *EnumDecl
}

func (d Decl) Name() string {
	if d.Message != nil {
		return d.Message.Name
	}
	if d.Enum != nil {
		return d.Enum.Name
	}
	return ""
}

func (d Decl) IsMessage() bool { return d.Message != nil }
func (d Decl) IsEnum() bool    { return d.Enum != nil }

func (d Decl) String() string {
	if d.Message != nil {
		return fmt.Sprintf("message %s", d.Message.Name)
	}
	if d.Enum != nil {
		return fmt.Sprintf("enum %s", d.Enum.Name)
	}
	return "<empty decl>"
}

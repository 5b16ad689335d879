// Package value implements the tagged-tree runtime value model (V):
// integers, doubles, strings, booleans, messages and variant
// instances. Values are immutable and copied freely — none of them
// alias mutable state, matching the Row storage note in the schema
// design (rows are owned by their table, values never alias outside
// it).
package value

import "fmt"

// Tag discriminates the Value sum type.
type Tag int

const (
	TagInt Tag = iota
	TagDouble
	TagString
	TagBool
	TagMessage
	TagVariant
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "Int"
	case TagDouble:
		return "Double"
	case TagString:
		return "String"
	case TagBool:
		return "Bool"
	case TagMessage:
		return "Message"
	case TagVariant:
		return "Variant"
	default:
		return "Unknown"
	}
}

// Value is the closed sum type described in spec §3. Zero value is
// not meaningful; always construct through the Int/Double/String/Bool/
// Message/Variant constructors below.
type Value struct {
	tag Tag

	i   int64
	f   float64
	s   string
	b   bool

	typeName    string // Message: type_name; Variant: enum_name
	variantName string // Variant only
	fields      []Value
}

func Int(i int64) Value       { return Value{tag: TagInt, i: i} }
func Double(f float64) Value  { return Value{tag: TagDouble, f: f} }
func String(s string) Value   { return Value{tag: TagString, s: s} }
func Bool(b bool) Value       { return Value{tag: TagBool, b: b} }

// Message constructs a Value::Message{type_name, fields}. fields is
// copied defensively so later mutation of the caller's slice cannot
// alias the stored value.
func Message(typeName string, fields []Value) Value {
	return Value{tag: TagMessage, typeName: typeName, fields: append([]Value(nil), fields...)}
}

// Variant constructs a Value::Variant{enum_name, variant_name, fields}.
func Variant(enumName, variantName string, fields []Value) Value {
	return Value{
		tag:         TagVariant,
		typeName:    enumName,
		variantName: variantName,
		fields:      append([]Value(nil), fields...),
	}
}

func (v Value) Tag() Tag { return v.tag }

func (v Value) AsInt() (int64, bool)       { return v.i, v.tag == TagInt }
func (v Value) AsDouble() (float64, bool)  { return v.f, v.tag == TagDouble }
func (v Value) AsString() (string, bool)   { return v.s, v.tag == TagString }
func (v Value) AsBool() (bool, bool)       { return v.b, v.tag == TagBool }

// MessageType returns the message's declared type name and ok=true
// when the value is a Message.
func (v Value) MessageType() (string, bool) {
	return v.typeName, v.tag == TagMessage
}

// VariantParts returns the enum name, variant name, and ok=true when the
// value is a Variant.
func (v Value) VariantParts() (enum, variant string, ok bool) {
	return v.typeName, v.variantName, v.tag == TagVariant
}

// Fields returns the positional field values of a Message or Variant.
// Returns nil for scalar tags.
func (v Value) Fields() []Value {
	return v.fields
}

// Field returns the i-th positional field, or the zero Value and
// false if out of range or not a composite tag.
func (v Value) Field(i int) (Value, bool) {
	if i < 0 || i >= len(v.fields) {
		return Value{}, false
	}
	return v.fields[i], true
}

// Equal implements structural equality (spec §3: "Equality is
// structural").
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	switch v.tag {
	case TagInt:
		return v.i == other.i
	case TagDouble:
		return v.f == other.f
	case TagString:
		return v.s == other.s
	case TagBool:
		return v.b == other.b
	case TagMessage:
		if v.typeName != other.typeName || len(v.fields) != len(other.fields) {
			return false
		}
		for i := range v.fields {
			if !v.fields[i].Equal(other.fields[i]) {
				return false
			}
		}
		return true
	case TagVariant:
		if v.typeName != other.typeName || v.variantName != other.variantName || len(v.fields) != len(other.fields) {
			return false
		}
		for i := range v.fields {
			if !v.fields[i].Equal(other.fields[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a debug-friendly representation; used by the demo
// host and by CLI-style tabular output, not by any core algorithm.
func (v Value) String() string {
	switch v.tag {
	case TagInt:
		return fmt.Sprintf("%d", v.i)
	case TagDouble:
		return fmt.Sprintf("%g", v.f)
	case TagString:
		return v.s
	case TagBool:
		return fmt.Sprintf("%t", v.b)
	case TagMessage:
		return fmt.Sprintf("%s%v", v.typeName, v.fields)
	case TagVariant:
		if len(v.fields) == 0 {
			return fmt.Sprintf("%s::%s", v.typeName, v.variantName)
		}
		return fmt.Sprintf("%s::%s%v", v.typeName, v.variantName, v.fields)
	default:
		return "<invalid>"
	}
}

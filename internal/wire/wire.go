// Package wire implements the JSON request/response shape for
// cmd/dbufserver's POST /query endpoint: plain, tagged-union DTOs that
// decode into internal/expr and internal/value trees and back, so the
// HTTP boundary carries no query semantics of its own (SPEC_FULL
// §4.15 — "a thin adapter, only marshalling and dispatch").
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/arkemis/dbufdb/internal/dispatch"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/value"
)

// Value is the wire shape of internal/value.Value.
type Value struct {
	Tag     string  `json:"tag"`
	Int     int64   `json:"int,omitempty"`
	Double  float64 `json:"double,omitempty"`
	String  string  `json:"string,omitempty"`
	Bool    bool    `json:"bool,omitempty"`
	Type    string  `json:"type,omitempty"`    // message: type name
	Enum    string  `json:"enum,omitempty"`    // variant: enum name
	Variant string  `json:"variant,omitempty"` // variant: variant name
	Fields  []Value `json:"fields,omitempty"`
}

// ToValue converts a decoded wire.Value into a value.Value.
func (w Value) ToValue() (value.Value, error) {
	switch w.Tag {
	case "int":
		return value.Int(w.Int), nil
	case "double":
		return value.Double(w.Double), nil
	case "string":
		return value.String(w.String), nil
	case "bool":
		return value.Bool(w.Bool), nil
	case "message":
		fields, err := toValues(w.Fields)
		if err != nil {
			return value.Value{}, err
		}
		return value.Message(w.Type, fields), nil
	case "variant":
		fields, err := toValues(w.Fields)
		if err != nil {
			return value.Value{}, err
		}
		return value.Variant(w.Enum, w.Variant, fields), nil
	default:
		return value.Value{}, fmt.Errorf("wire: unknown value tag %q", w.Tag)
	}
}

func toValues(ws []Value) ([]value.Value, error) {
	out := make([]value.Value, len(ws))
	for i, w := range ws {
		v, err := w.ToValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FromValue converts a value.Value into its wire shape, for encoding
// SELECT results back to the client.
func FromValue(v value.Value) Value {
	switch v.Tag() {
	case value.TagInt:
		i, _ := v.AsInt()
		return Value{Tag: "int", Int: i}
	case value.TagDouble:
		d, _ := v.AsDouble()
		return Value{Tag: "double", Double: d}
	case value.TagString:
		s, _ := v.AsString()
		return Value{Tag: "string", String: s}
	case value.TagBool:
		b, _ := v.AsBool()
		return Value{Tag: "bool", Bool: b}
	case value.TagMessage:
		typeName, _ := v.MessageType()
		return Value{Tag: "message", Type: typeName, Fields: fromValues(v.Fields())}
	case value.TagVariant:
		enum, variant, _ := v.VariantParts()
		return Value{Tag: "variant", Enum: enum, Variant: variant, Fields: fromValues(v.Fields())}
	default:
		return Value{Tag: "unknown"}
	}
}

func fromValues(vs []value.Value) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = FromValue(v)
	}
	return out
}

// Case is the wire shape of one EnumMatch arm.
type Case struct {
	Enum    string `json:"enum"`
	Variant string `json:"variant"`
	Body    Expr   `json:"body"`
}

// Expr is the wire shape of internal/expr.Expr: a tagged union decoded
// by Kind. Left/Right/Operand are themselves *Expr so a missing
// branch decodes to nil rather than a zero-valued node.
type Expr struct {
	Kind string `json:"kind"` // literal, column, binary, not, negate, message_field, enum_match

	// literal
	Value *Value `json:"value,omitempty"`

	// column
	Name string `json:"name,omitempty"`

	// binary
	Op    string `json:"op,omitempty"`
	Left  *Expr  `json:"left,omitempty"`
	Right *Expr  `json:"right,omitempty"`

	// unary
	Operand *Expr  `json:"operand,omitempty"`
	Field   string `json:"field,omitempty"`
	Cases   []Case `json:"cases,omitempty"`
}

var binOps = map[string]expr.BinOp{
	"add": expr.Add, "sub": expr.Sub, "mul": expr.Mul, "div": expr.Div,
	"eq": expr.Eq, "neq": expr.Neq, "lt": expr.Lt, "gt": expr.Gt,
	"and": expr.And, "or": expr.Or,
}

// ToExpr converts a decoded wire.Expr into an internal/expr.Expr tree.
func (w *Expr) ToExpr() (expr.Expr, error) {
	if w == nil {
		return nil, fmt.Errorf("wire: nil expression")
	}
	switch w.Kind {
	case "literal":
		if w.Value == nil {
			return nil, fmt.Errorf("wire: literal missing value")
		}
		v, err := w.Value.ToValue()
		if err != nil {
			return nil, err
		}
		return expr.Literal{Value: v}, nil
	case "column":
		if w.Name == "" {
			return nil, fmt.Errorf("wire: column missing name")
		}
		return expr.ColumnRef{Name: w.Name}, nil
	case "binary":
		op, ok := binOps[w.Op]
		if !ok {
			return nil, fmt.Errorf("wire: unknown binary op %q", w.Op)
		}
		left, err := w.Left.ToExpr()
		if err != nil {
			return nil, err
		}
		right, err := w.Right.ToExpr()
		if err != nil {
			return nil, err
		}
		return expr.BinaryExpr{Op: op, Left: left, Right: right}, nil
	case "not", "negate", "message_field", "enum_match":
		return w.toUnary()
	default:
		return nil, fmt.Errorf("wire: unknown expression kind %q", w.Kind)
	}
}

func (w *Expr) toUnary() (expr.Expr, error) {
	operand, err := w.Operand.ToExpr()
	if err != nil {
		return nil, err
	}
	switch w.Kind {
	case "not":
		return expr.UnaryExpr{Kind: expr.Not, Operand: operand}, nil
	case "negate":
		return expr.UnaryExpr{Kind: expr.Negate, Operand: operand}, nil
	case "message_field":
		if w.Field == "" {
			return nil, fmt.Errorf("wire: message_field missing field name")
		}
		return expr.UnaryExpr{Kind: expr.MessageField, Operand: operand, FieldName: w.Field}, nil
	case "enum_match":
		cases := make([]expr.Case, len(w.Cases))
		for i, c := range w.Cases {
			body, err := c.Body.ToExpr()
			if err != nil {
				return nil, err
			}
			cases[i] = expr.Case{Enum: c.Enum, Variant: c.Variant, Body: body}
		}
		return expr.UnaryExpr{Kind: expr.EnumMatch, Operand: operand, Cases: cases}, nil
	default:
		return nil, fmt.Errorf("wire: unknown unary kind %q", w.Kind)
	}
}

// SelectField is the wire shape of one SELECT projection entry.
type SelectField struct {
	Expr  Expr   `json:"expr"`
	Alias string `json:"alias"`
}

// Query is the wire shape of dispatch.Query, decoded from POST
// /query's JSON body.
type Query struct {
	Kind string `json:"kind"`

	Path string `json:"path,omitempty"`

	Table   string `json:"table,omitempty"`
	RowType string `json:"row_type,omitempty"`

	Rows []Value `json:"rows,omitempty"`

	Fields []SelectField `json:"fields,omitempty"`
	Where  *Expr         `json:"where,omitempty"`
}

// ToQuery converts a decoded wire.Query into a dispatch.Query.
func (w Query) ToQuery() (dispatch.Query, error) {
	q := dispatch.Query{
		Kind:    dispatch.OpKind(w.Kind),
		Path:    w.Path,
		Table:   w.Table,
		RowType: w.RowType,
	}
	if len(w.Rows) > 0 {
		rows, err := toValues(w.Rows)
		if err != nil {
			return dispatch.Query{}, err
		}
		q.Rows = rows
	}
	if len(w.Fields) > 0 {
		fields := make([]dispatch.SelectField, len(w.Fields))
		for i, f := range w.Fields {
			e, err := f.Expr.ToExpr()
			if err != nil {
				return dispatch.Query{}, err
			}
			fields[i] = dispatch.SelectField{Expr: e, Alias: f.Alias}
		}
		q.Fields = fields
	}
	if w.Where != nil {
		e, err := w.Where.ToExpr()
		if err != nil {
			return dispatch.Query{}, err
		}
		q.Where = e
	}
	return q, nil
}

// Result is the wire shape of dispatch.Result, returned as POST
// /query's JSON body.
type Result struct {
	OK             bool               `json:"ok"`
	CommittedTypes []string           `json:"committed_types,omitempty"`
	Rows           []map[string]Value `json:"rows,omitempty"`
	FirstRowError  string             `json:"first_row_error,omitempty"`
}

// FromResult converts a dispatch.Result into its wire shape.
func FromResult(res dispatch.Result) Result {
	out := Result{OK: res.OK, CommittedTypes: res.CommittedTypes}
	if len(res.Rows) > 0 {
		out.Rows = make([]map[string]Value, len(res.Rows))
		for i, row := range res.Rows {
			m := make(map[string]Value, len(row))
			for k, v := range row {
				m[k] = FromValue(v)
			}
			out.Rows[i] = m
		}
	}
	if res.FirstRowError != nil {
		out.FirstRowError = res.FirstRowError.Error()
	}
	return out
}

// DecodeQuery decodes a POST /query request body.
func DecodeQuery(data []byte) (dispatch.Query, error) {
	var w Query
	if err := json.Unmarshal(data, &w); err != nil {
		return dispatch.Query{}, fmt.Errorf("wire: invalid query body: %w", err)
	}
	return w.ToQuery()
}

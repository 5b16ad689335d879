package expr

import (
	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/value"
)

// Row is the evaluation context: bindings from name to value, for
// both top-level table columns and (inside a match body) match-local
// variant-field bindings.
type Row map[string]value.Value

// Evaluator implements the pure reduction (expression, row) -> V of
// spec §4.7, against a Registry used only to resolve MessageField
// indices and EnumMatch variant field names.
type Evaluator struct {
	Registry *schema.Registry
}

// Eval reduces e under row to a Value. Presupposes e already
// type-checked under row's schema (spec §4.7): an unmatched
// EnumMatch variant or a missing column binding indicates the typer
// was bypassed, not a user-facing error — both still return a
// dberrors value rather than panicking, since this is a library
// boundary.
func (ev *Evaluator) Eval(e Expr, row Row) (value.Value, error) {
	switch n := e.(type) {
	case Literal:
		return n.Value, nil
	case ColumnRef:
		v, ok := row[n.Name]
		if !ok {
			return value.Value{}, dberrors.NewUnboundColumn(n.Name)
		}
		return v, nil
	case BinaryExpr:
		return ev.evalBinary(n, row)
	case UnaryExpr:
		return ev.evalUnary(n, row)
	default:
		return value.Value{}, dberrors.NewParse("unknown expression node")
	}
}

func (ev *Evaluator) evalBinary(b BinaryExpr, row Row) (value.Value, error) {
	// && and || short-circuit left-to-right (spec §4.7); evaluate
	// Right only when necessary.
	if b.Op == And || b.Op == Or {
		l, err := ev.Eval(b.Left, row)
		if err != nil {
			return value.Value{}, err
		}
		lb, _ := l.AsBool()
		if b.Op == And && !lb {
			return value.Bool(false), nil
		}
		if b.Op == Or && lb {
			return value.Bool(true), nil
		}
		r, err := ev.Eval(b.Right, row)
		if err != nil {
			return value.Value{}, err
		}
		rb, _ := r.AsBool()
		return value.Bool(rb), nil
	}

	l, err := ev.Eval(b.Left, row)
	if err != nil {
		return value.Value{}, err
	}
	r, err := ev.Eval(b.Right, row)
	if err != nil {
		return value.Value{}, err
	}

	switch b.Op {
	case Add:
		if l.Tag() == value.TagString {
			ls, _ := l.AsString()
			rs, _ := r.AsString()
			return value.String(ls + rs), nil
		}
		return arith(l, r, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	case Sub:
		return arith(l, r, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case Mul:
		return arith(l, r, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case Div:
		return divide(l, r)
	case Eq:
		return value.Bool(l.Equal(r)), nil
	case Neq:
		return value.Bool(!l.Equal(r)), nil
	case Lt:
		return compare(l, r, func(c int) bool { return c < 0 })
	case Gt:
		return compare(l, r, func(c int) bool { return c > 0 })
	default:
		return value.Value{}, dberrors.NewParse("unknown binary operator")
	}
}

func arith(l, r value.Value, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) (value.Value, error) {
	if l.Tag() == value.TagInt {
		li, _ := l.AsInt()
		ri, _ := r.AsInt()
		return value.Int(intOp(li, ri)), nil
	}
	lf, _ := l.AsDouble()
	rf, _ := r.AsDouble()
	return value.Double(floatOp(lf, rf)), nil
}

func divide(l, r value.Value) (value.Value, error) {
	if l.Tag() == value.TagInt {
		li, _ := l.AsInt()
		ri, _ := r.AsInt()
		if ri == 0 {
			return value.Value{}, dberrors.NewDivisionByZero(0)
		}
		return value.Int(li / ri), nil
	}
	lf, _ := l.AsDouble()
	rf, _ := r.AsDouble()
	if rf == 0 {
		return value.Value{}, dberrors.NewDivisionByZero(0)
	}
	return value.Double(lf / rf), nil
}

func compare(l, r value.Value, pred func(int) bool) (value.Value, error) {
	switch l.Tag() {
	case value.TagInt:
		li, _ := l.AsInt()
		ri, _ := r.AsInt()
		return value.Bool(pred(cmpInt(li, ri))), nil
	case value.TagDouble:
		lf, _ := l.AsDouble()
		rf, _ := r.AsDouble()
		return value.Bool(pred(cmpFloat(lf, rf))), nil
	case value.TagString:
		ls, _ := l.AsString()
		rs, _ := r.AsString()
		return value.Bool(pred(cmpString(ls, rs))), nil
	default:
		return value.Value{}, dberrors.NewTypeMismatch("Int|Double|String", l.Tag().String())
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cmpString compares lexicographically over bytes (spec §4.7).
func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (ev *Evaluator) evalUnary(u UnaryExpr, row Row) (value.Value, error) {
	switch u.Kind {
	case Not:
		v, err := ev.Eval(u.Operand, row)
		if err != nil {
			return value.Value{}, err
		}
		b, _ := v.AsBool()
		return value.Bool(!b), nil

	case Negate:
		v, err := ev.Eval(u.Operand, row)
		if err != nil {
			return value.Value{}, err
		}
		if v.Tag() == value.TagInt {
			i, _ := v.AsInt()
			return value.Int(-i), nil
		}
		f, _ := v.AsDouble()
		return value.Double(-f), nil

	case MessageField:
		return ev.evalMessageField(u, row)

	case EnumMatch:
		return ev.evalEnumMatch(u, row)

	default:
		return value.Value{}, dberrors.NewParse("unknown unary operator")
	}
}

func (ev *Evaluator) evalMessageField(u UnaryExpr, row Row) (value.Value, error) {
	base, err := ev.Eval(u.Operand, row)
	if err != nil {
		return value.Value{}, err
	}
	typeName, ok := base.MessageType()
	if !ok {
		return value.Value{}, dberrors.NewTypeMismatch("Message", base.Tag().String())
	}
	idx, err := ev.Registry.FieldIndex(typeName, u.FieldName)
	if err != nil {
		return value.Value{}, err
	}
	f, ok := base.Field(idx)
	if !ok {
		return value.Value{}, dberrors.NewArityMismatch(typeName, idx+1, len(base.Fields()))
	}
	return f, nil
}

func (ev *Evaluator) evalEnumMatch(u UnaryExpr, row Row) (value.Value, error) {
	base, err := ev.Eval(u.Operand, row)
	if err != nil {
		return value.Value{}, err
	}
	enumName, variantName, ok := base.VariantParts()
	if !ok {
		return value.Value{}, dberrors.NewTypeMismatch("Enum", base.Tag().String())
	}
	for _, c := range u.Cases {
		if c.Enum != enumName || c.Variant != variantName {
			continue
		}
		decl, ok := ev.Registry.Resolve(enumName)
		if !ok || !decl.IsEnum() {
			return value.Value{}, dberrors.NewUnknownType(enumName)
		}
		fields, ok := decl.Enum.VariantFields(variantName)
		if !ok {
			return value.Value{}, dberrors.NewUnknownVariant(enumName, variantName)
		}
		extended := make(Row, len(row)+len(fields))
		for k, v := range row {
			extended[k] = v
		}
		for i, f := range fields {
			v, ok := base.Field(i)
			if !ok {
				return value.Value{}, dberrors.NewArityMismatch(enumName+"::"+variantName, len(fields), i)
			}
			extended[f.Name] = v
		}
		return ev.Eval(c.Body, extended)
	}
	// X already verified exhaustiveness, so reaching here means E and
	// X disagreed about the schema — an invariant violation, not a
	// recoverable query error.
	return value.Value{}, dberrors.NewNonExhaustiveMatch([]string{enumName + "::" + variantName})
}

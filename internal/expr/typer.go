package expr

import (
	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/value"
)

// binding is one entry of a typing context: a declared type, plus
// whether it is a top-level table column (and therefore subject to
// dependency tracking) or a match-local name introduced by an
// EnumMatch case (never subject to dependency tracking — it names a
// variant field, not a row_type column).
type binding struct {
	typ      schema.DT
	isColumn bool
}

// RowContext is the typing context for one row_type: every declared
// field, bound as a table column.
func RowContext(msg *schema.MessageDecl) map[string]binding {
	ctx := make(map[string]binding, len(msg.Fields))
	for _, f := range msg.Fields {
		ctx[f.Name] = binding{typ: f.Type, isColumn: true}
	}
	return ctx
}

// UseSet is the set of top-level column names an expression reads,
// per spec §4.6 — transitively through field accesses and matches,
// plus the declared dependencies of each column read, but never
// including match-local (non-column) bindings.
type UseSet map[string]bool

func (u UseSet) union(o UseSet) UseSet {
	for c := range o {
		u[c] = true
	}
	return u
}

// Typer implements the Expression Typer (X) against one schema
// Registry. rowType names the table row's declared message type,
// needed to resolve dependency sets for ColumnRef use-set entries.
type Typer struct {
	Registry *schema.Registry
	RowType  string
}

// Type infers e's result type and use set under ctx, per spec §4.5.
func (t *Typer) Type(e Expr, ctx map[string]binding) (schema.DT, UseSet, error) {
	switch n := e.(type) {
	case Literal:
		return literalType(n), UseSet{}, nil
	case ColumnRef:
		return t.typeColumnRef(n, ctx)
	case BinaryExpr:
		return t.typeBinary(n, ctx)
	case UnaryExpr:
		return t.typeUnary(n, ctx)
	default:
		return schema.DT{}, nil, dberrors.NewParse("unknown expression node")
	}
}

func literalType(l Literal) schema.DT {
	switch l.Value.Tag() {
	case value.TagInt:
		return schema.PrimitiveType(schema.Int)
	case value.TagDouble:
		return schema.PrimitiveType(schema.Double)
	case value.TagString:
		return schema.PrimitiveType(schema.String)
	case value.TagBool:
		return schema.PrimitiveType(schema.Bool)
	case value.TagMessage:
		name, _ := l.Value.MessageType()
		return schema.MessageType(name)
	default:
		enum, _, _ := l.Value.VariantParts()
		return schema.EnumType(enum)
	}
}

func (t *Typer) typeColumnRef(c ColumnRef, ctx map[string]binding) (schema.DT, UseSet, error) {
	b, ok := ctx[c.Name]
	if !ok {
		return schema.DT{}, nil, dberrors.NewUnboundColumn(c.Name)
	}
	use := UseSet{}
	if b.isColumn {
		use[c.Name] = true
		deps, err := t.Registry.Deps(t.RowType, c.Name)
		if err != nil {
			return schema.DT{}, nil, err
		}
		for _, d := range deps {
			use[d] = true
		}
	}
	return b.typ, use, nil
}

func (t *Typer) typeBinary(b BinaryExpr, ctx map[string]binding) (schema.DT, UseSet, error) {
	lt, lu, err := t.Type(b.Left, ctx)
	if err != nil {
		return schema.DT{}, nil, err
	}
	rt, ru, err := t.Type(b.Right, ctx)
	if err != nil {
		return schema.DT{}, nil, err
	}
	use := lu.union(ru)

	switch b.Op {
	case Add, Sub, Mul, Div:
		if b.Op == Add && lt.Kind == schema.DTPrimitive && lt.Prim == schema.String {
			if !rt.Equal(lt) {
				return schema.DT{}, nil, dberrors.NewTypeMismatch(lt.String(), rt.String())
			}
			return lt, use, nil
		}
		if !lt.IsNumeric() {
			return schema.DT{}, nil, dberrors.NewTypeMismatch("Int|Double", lt.String())
		}
		if !lt.Equal(rt) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch(lt.String(), rt.String())
		}
		return lt, use, nil

	case Eq, Neq:
		if !lt.Equal(rt) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch(lt.String(), rt.String())
		}
		if !(lt.IsNumeric() || isStringType(lt) || isBoolType(lt)) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch("Int|Double|String|Bool", lt.String())
		}
		return schema.PrimitiveType(schema.Bool), use, nil

	case Lt, Gt:
		if !lt.Equal(rt) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch(lt.String(), rt.String())
		}
		if !(lt.IsNumeric() || isStringType(lt)) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch("Int|Double|String", lt.String())
		}
		return schema.PrimitiveType(schema.Bool), use, nil

	case And, Or:
		if !isBoolType(lt) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch("Bool", lt.String())
		}
		if !isBoolType(rt) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch("Bool", rt.String())
		}
		return schema.PrimitiveType(schema.Bool), use, nil

	default:
		return schema.DT{}, nil, dberrors.NewParse("unknown binary operator")
	}
}

func (t *Typer) typeUnary(u UnaryExpr, ctx map[string]binding) (schema.DT, UseSet, error) {
	switch u.Kind {
	case Not:
		ot, use, err := t.Type(u.Operand, ctx)
		if err != nil {
			return schema.DT{}, nil, err
		}
		if !isBoolType(ot) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch("Bool", ot.String())
		}
		return schema.PrimitiveType(schema.Bool), use, nil

	case Negate:
		ot, use, err := t.Type(u.Operand, ctx)
		if err != nil {
			return schema.DT{}, nil, err
		}
		if !ot.IsNumeric() {
			return schema.DT{}, nil, dberrors.NewTypeMismatch("Int|Double", ot.String())
		}
		return ot, use, nil

	case MessageField:
		return t.typeMessageField(u, ctx)

	case EnumMatch:
		return t.typeEnumMatch(u, ctx)

	default:
		return schema.DT{}, nil, dberrors.NewParse("unknown unary operator")
	}
}

func (t *Typer) typeMessageField(u UnaryExpr, ctx map[string]binding) (schema.DT, UseSet, error) {
	baseType, use, err := t.Type(u.Operand, ctx)
	if err != nil {
		return schema.DT{}, nil, err
	}
	if baseType.Kind != schema.DTMessage {
		return schema.DT{}, nil, dberrors.NewTypeMismatch("Message", baseType.String())
	}
	decl, ok := t.Registry.Resolve(baseType.Name)
	if !ok || !decl.IsMessage() {
		return schema.DT{}, nil, dberrors.NewUnknownType(baseType.Name)
	}
	idx := decl.Message.FieldIndex(u.FieldName)
	if idx < 0 {
		return schema.DT{}, nil, dberrors.NewUnknownField(baseType.Name, u.FieldName)
	}
	return decl.Message.Fields[idx].Type, use, nil
}

func (t *Typer) typeEnumMatch(u UnaryExpr, ctx map[string]binding) (schema.DT, UseSet, error) {
	baseType, use, err := t.Type(u.Operand, ctx)
	if err != nil {
		return schema.DT{}, nil, err
	}
	if baseType.Kind != schema.DTEnum {
		return schema.DT{}, nil, dberrors.NewTypeMismatch("Enum", baseType.String())
	}
	decl, ok := t.Registry.Resolve(baseType.Name)
	if !ok || !decl.IsEnum() {
		return schema.DT{}, nil, dberrors.NewUnknownType(baseType.Name)
	}
	enum := decl.Enum

	seen := make(map[string]bool, len(u.Cases))
	for _, c := range u.Cases {
		if c.Enum != enum.Name {
			return schema.DT{}, nil, dberrors.NewTypeMismatch(enum.Name, c.Enum)
		}
		if _, ok := enum.VariantFields(c.Variant); !ok {
			return schema.DT{}, nil, dberrors.NewExtraCase(c.Enum + "::" + c.Variant)
		}
		if seen[c.Variant] {
			return schema.DT{}, nil, dberrors.NewExtraCase(c.Enum + "::" + c.Variant)
		}
		seen[c.Variant] = true
	}
	var missing []string
	for _, v := range enum.Order {
		if !seen[v] {
			missing = append(missing, enum.Name+"::"+v)
		}
	}
	if len(missing) > 0 {
		return schema.DT{}, nil, dberrors.NewNonExhaustiveMatch(missing)
	}

	var resultType schema.DT
	haveResult := false
	for _, c := range u.Cases {
		fields, _ := enum.VariantFields(c.Variant)
		extended := make(map[string]binding, len(ctx)+len(fields))
		for k, v := range ctx {
			extended[k] = v
		}
		for _, f := range fields {
			extended[f.Name] = binding{typ: f.Type, isColumn: false}
		}
		bodyType, bodyUse, err := t.Type(c.Body, extended)
		if err != nil {
			return schema.DT{}, nil, err
		}
		if !haveResult {
			resultType = bodyType
			haveResult = true
		} else if !resultType.Equal(bodyType) {
			return schema.DT{}, nil, dberrors.NewTypeMismatch(resultType.String(), bodyType.String())
		}
		use = use.union(bodyUse)
	}
	return resultType, use, nil
}

func isStringType(dt schema.DT) bool {
	return dt.Kind == schema.DTPrimitive && dt.Prim == schema.String
}

func isBoolType(dt schema.DT) bool {
	return dt.Kind == schema.DTPrimitive && dt.Prim == schema.Bool
}

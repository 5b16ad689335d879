// Package expr implements the expression AST, the Expression Typer
// (X), the Dependency Analyser's per-expression use-set bookkeeping,
// and the Evaluator (E). Grounded in shape on the teacher's
// pkg/condition/builder.go EvalContext + typed operator dispatch, but
// hand-written against spec §4.5/§4.7 rather than built on
// expr-lang/expr: that package's reflection-based VM has no hook for
// the structural exhaustiveness check or the column use-set
// bookkeeping the Dependency Analyser needs, so reusing it would mean
// re-deriving both on the side anyway.
package expr

import "github.com/arkemis/dbufdb/internal/value"

// Expr is the closed expression AST (spec §4.5).
type Expr interface{ isExpr() }

// Literal is a constant value embedded in the expression.
type Literal struct {
	Value value.Value
}

// ColumnRef names a binding in the row context: either a top-level
// table column, or (inside an EnumMatch case body) a variant field
// bound by the match.
type ColumnRef struct {
	Name string
}

// BinOp enumerates the binary operators named in spec §4.5.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Eq
	Neq
	Lt
	Gt
	And
	Or
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Eq:
		return "=="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Gt:
		return ">"
	case And:
		return "&&"
	case Or:
		return "||"
	default:
		return "?"
	}
}

// BinaryExpr applies a BinOp to two sub-expressions.
type BinaryExpr struct {
	Op          BinOp
	Left, Right Expr
}

// UnaryKind enumerates the four unary operator shapes spec §4.5
// groups under UnaryOp: plain Not/Negate, and the two that carry
// their own payload (MessageField's field name, EnumMatch's case
// list).
type UnaryKind int

const (
	Not UnaryKind = iota
	Negate
	MessageField
	EnumMatch
)

// Case is one arm of an EnumMatch: the declared variant it matches,
// and the body expression evaluated (in an extended context) when it
// does.
type Case struct {
	Enum    string
	Variant string
	Body    Expr
}

// UnaryExpr is spec §4.5's UnaryOp(op, e): Operand is the base
// expression in every variant (the operand of Not/Negate, or the
// scrutinee of MessageField/EnumMatch). FieldName is set only for
// MessageField; Cases only for EnumMatch.
type UnaryExpr struct {
	Kind      UnaryKind
	Operand   Expr
	FieldName string
	Cases     []Case
}

func (Literal) isExpr()    {}
func (ColumnRef) isExpr()  {}
func (BinaryExpr) isExpr() {}
func (UnaryExpr) isExpr()  {}

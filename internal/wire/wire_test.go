package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkemis/dbufdb/internal/dispatch"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/value"
)

func TestValueRoundTrip(t *testing.T) {
	v := value.Message("User", []value.Value{value.String("Jane"), value.Int(18)})
	w := FromValue(v)
	back, err := w.ToValue()
	require.NoError(t, err)
	require.True(t, v.Equal(back))
}

func TestVariantRoundTrip(t *testing.T) {
	v := value.Variant("Status", "Admin", nil)
	back, err := FromValue(v).ToValue()
	require.NoError(t, err)
	require.True(t, v.Equal(back))
}

func TestExprDecodeBinaryAndColumn(t *testing.T) {
	w := Expr{
		Kind: "binary", Op: "add",
		Left:  &Expr{Kind: "column", Name: "age"},
		Right: &Expr{Kind: "literal", Value: &Value{Tag: "int", Int: 1}},
	}
	e, err := w.ToExpr()
	require.NoError(t, err)
	bin, ok := e.(expr.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, expr.Add, bin.Op)
	require.Equal(t, expr.ColumnRef{Name: "age"}, bin.Left)
}

func TestExprDecodeEnumMatch(t *testing.T) {
	w := Expr{
		Kind:    "enum_match",
		Operand: &Expr{Kind: "column", Name: "status"},
		Cases: []Case{
			{Enum: "Status", Variant: "Admin", Body: Expr{Kind: "literal", Value: &Value{Tag: "int", Int: 1}}},
			{Enum: "Status", Variant: "User", Body: Expr{Kind: "literal", Value: &Value{Tag: "int", Int: 0}}},
		},
	}
	e, err := w.ToExpr()
	require.NoError(t, err)
	u, ok := e.(expr.UnaryExpr)
	require.True(t, ok)
	require.Equal(t, expr.EnumMatch, u.Kind)
	require.Len(t, u.Cases, 2)
}

func TestExprDecodeUnknownKindFails(t *testing.T) {
	_, err := (&Expr{Kind: "bogus"}).ToExpr()
	require.Error(t, err)
}

func TestQueryDecodesSelect(t *testing.T) {
	q := Query{
		Kind:  "select",
		Table: "t",
		Fields: []SelectField{
			{Expr: Expr{Kind: "column", Name: "name"}, Alias: "name"},
		},
		Where: &Expr{
			Kind: "binary", Op: "gt",
			Left:  &Expr{Kind: "column", Name: "age"},
			Right: &Expr{Kind: "literal", Value: &Value{Tag: "int", Int: 20}},
		},
	}
	dq, err := q.ToQuery()
	require.NoError(t, err)
	require.Equal(t, dispatch.OpSelect, dq.Kind)
	require.Len(t, dq.Fields, 1)
	require.NotNil(t, dq.Where)
}

func TestDecodeQueryFromJSON(t *testing.T) {
	body := []byte(`{"kind":"create_table","table":"t","row_type":"User"}`)
	q, err := DecodeQuery(body)
	require.NoError(t, err)
	require.Equal(t, dispatch.OpCreateTable, q.Kind)
	require.Equal(t, "User", q.RowType)
}

func TestFromResultEncodesRows(t *testing.T) {
	res := dispatch.Result{
		OK:   true,
		Rows: []expr.Row{{"name": value.String("Jane")}},
	}
	w := FromResult(res)
	require.True(t, w.OK)
	require.Len(t, w.Rows, 1)
	require.Equal(t, "Jane", w.Rows[0]["name"].String)
}

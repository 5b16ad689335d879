package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/value"
)

func statusRegistry() *schema.Registry {
	r := schema.New()
	r.CommitBatch(map[string]schema.Decl{
		"Status": {Enum: &schema.EnumDecl{
			Name:  "Status",
			Order: []string{"Admin", "User"},
			Variants: map[string][]schema.FieldDecl{
				"Admin": {},
				"User":  {},
			},
		}},
		"User": {Message: &schema.MessageDecl{
			Name: "User",
			Fields: []schema.FieldDecl{
				{Name: "name", Type: schema.PrimitiveType(schema.String)},
				{Name: "age", Type: schema.PrimitiveType(schema.Int)},
				{Name: "year_of_birth", Type: schema.PrimitiveType(schema.Int)},
				{Name: "status", Type: schema.EnumType("Status")},
			},
		}},
	})
	return r
}

func userCtx(r *schema.Registry) map[string]binding {
	decl, _ := r.Resolve("User")
	return RowContext(decl.Message)
}

func TestTypeColumnRefUsesSet(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}
	dt, use, err := ty.Type(ColumnRef{Name: "age"}, userCtx(r))
	require.NoError(t, err)
	require.Equal(t, schema.PrimitiveType(schema.Int), dt)
	require.True(t, use["age"])
}

func TestTypeUnboundColumnFails(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}
	_, _, err := ty.Type(ColumnRef{Name: "nope"}, userCtx(r))
	require.Error(t, err)
}

func TestTypeArithmeticRequiresMatchingOperands(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}

	dt, use, err := ty.Type(BinaryExpr{
		Op: Add, Left: ColumnRef{Name: "age"}, Right: ColumnRef{Name: "year_of_birth"},
	}, userCtx(r))
	require.NoError(t, err)
	require.Equal(t, schema.PrimitiveType(schema.Int), dt)
	require.True(t, use["age"])
	require.True(t, use["year_of_birth"])

	_, _, err = ty.Type(BinaryExpr{
		Op: Add, Left: ColumnRef{Name: "age"}, Right: ColumnRef{Name: "name"},
	}, userCtx(r))
	require.Error(t, err)
}

func TestTypeStringConcatViaAdd(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}
	dt, _, err := ty.Type(BinaryExpr{
		Op: Add, Left: ColumnRef{Name: "name"}, Right: Literal{Value: value.String("!")},
	}, userCtx(r))
	require.NoError(t, err)
	require.Equal(t, schema.PrimitiveType(schema.String), dt)
}

func TestTypeComparisonAndLogical(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}

	dt, _, err := ty.Type(BinaryExpr{
		Op: Gt, Left: ColumnRef{Name: "age"}, Right: Literal{Value: value.Int(20)},
	}, userCtx(r))
	require.NoError(t, err)
	require.Equal(t, schema.PrimitiveType(schema.Bool), dt)

	_, _, err = ty.Type(BinaryExpr{
		Op: And, Left: Literal{Value: value.Int(1)}, Right: Literal{Value: value.Bool(true)},
	}, userCtx(r))
	require.Error(t, err, "&& requires Bool operands")
}

func TestTypeEnumMatchExhaustive(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}

	match := UnaryExpr{
		Kind:    EnumMatch,
		Operand: ColumnRef{Name: "status"},
		Cases: []Case{
			{Enum: "Status", Variant: "Admin", Body: Literal{Value: value.Int(1)}},
			{Enum: "Status", Variant: "User", Body: Literal{Value: value.Int(0)}},
		},
	}
	dt, use, err := ty.Type(match, userCtx(r))
	require.NoError(t, err)
	require.Equal(t, schema.PrimitiveType(schema.Int), dt)
	require.True(t, use["status"])
}

func TestTypeEnumMatchNonExhaustiveFails(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}

	match := UnaryExpr{
		Kind:    EnumMatch,
		Operand: ColumnRef{Name: "status"},
		Cases: []Case{
			{Enum: "Status", Variant: "Admin", Body: Literal{Value: value.Int(1)}},
		},
	}
	_, _, err := ty.Type(match, userCtx(r))
	require.Error(t, err)
}

func TestTypeEnumMatchDuplicateCaseFails(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}

	match := UnaryExpr{
		Kind:    EnumMatch,
		Operand: ColumnRef{Name: "status"},
		Cases: []Case{
			{Enum: "Status", Variant: "Admin", Body: Literal{Value: value.Int(1)}},
			{Enum: "Status", Variant: "Admin", Body: Literal{Value: value.Int(2)}},
			{Enum: "Status", Variant: "User", Body: Literal{Value: value.Int(0)}},
		},
	}
	_, _, err := ty.Type(match, userCtx(r))
	require.Error(t, err)
}

func TestTypeEnumMatchMismatchedBodyTypesFails(t *testing.T) {
	r := statusRegistry()
	ty := &Typer{Registry: r, RowType: "User"}

	match := UnaryExpr{
		Kind:    EnumMatch,
		Operand: ColumnRef{Name: "status"},
		Cases: []Case{
			{Enum: "Status", Variant: "Admin", Body: Literal{Value: value.Int(1)}},
			{Enum: "Status", Variant: "User", Body: Literal{Value: value.String("zero")}},
		},
	}
	_, _, err := ty.Type(match, userCtx(r))
	require.Error(t, err, "every case body must type to the same result")
}

func TestTypeMessageField(t *testing.T) {
	r := statusRegistry()
	r.CommitBatch(map[string]schema.Decl{
		"Post": {Message: &schema.MessageDecl{
			Name:   "Post",
			Fields: []schema.FieldDecl{{Name: "author", Type: schema.MessageType("User")}},
		}},
	})
	ty := &Typer{Registry: r, RowType: "Post"}
	decl, _ := r.Resolve("Post")
	ctx := RowContext(decl.Message)

	dt, use, err := ty.Type(UnaryExpr{
		Kind: MessageField, Operand: ColumnRef{Name: "author"}, FieldName: "age",
	}, ctx)
	require.NoError(t, err)
	require.Equal(t, schema.PrimitiveType(schema.Int), dt)
	require.True(t, use["author"])
}

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/schema"
)

func depRegistry() *schema.Registry {
	r := schema.New()
	r.CommitBatch(map[string]schema.Decl{
		"Dep": {Message: &schema.MessageDecl{
			Name: "Dep",
			Fields: []schema.FieldDecl{
				{Name: "a", Type: schema.PrimitiveType(schema.Int)},
				{Name: "b", Type: schema.PrimitiveType(schema.Int), Dependencies: []int{0}},
			},
		}},
	})
	return r
}

// SELECT b AS b: b is read but its dependency a is not kept verbatim.
func TestCheckDropsDependencyWhenNotKept(t *testing.T) {
	r := depRegistry()
	projections := []Projection{
		{Alias: "b", Expr: expr.ColumnRef{Name: "b"}, UseSet: expr.UseSet{"b": true}},
	}
	err := Check(r, "Dep", projections, nil)
	require.Error(t, err)
	var e *dberrors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, dberrors.DroppedDependency, e.Kind())
}

// SELECT a AS a, b AS b: a is kept verbatim, so b's dependency is satisfied.
func TestCheckSucceedsWhenDependencyKept(t *testing.T) {
	r := depRegistry()
	projections := []Projection{
		{Alias: "a", Expr: expr.ColumnRef{Name: "a"}, UseSet: expr.UseSet{"a": true}},
		{Alias: "b", Expr: expr.ColumnRef{Name: "b"}, UseSet: expr.UseSet{"b": true}},
	}
	require.NoError(t, Check(r, "Dep", projections, nil))
}

// SELECT a + b AS s: a computed expression keeps nothing verbatim, but
// it reads a itself (trivially "kept" by its own literal ColumnRef use
// is irrelevant here) -- b's dependency a is never kept since neither
// projection is a bare ColumnRef(a).
func TestCheckComputedProjectionDoesNotKeepItsOperands(t *testing.T) {
	r := depRegistry()
	projections := []Projection{
		{
			Alias: "s",
			Expr:  expr.BinaryExpr{Op: expr.Add, Left: expr.ColumnRef{Name: "a"}, Right: expr.ColumnRef{Name: "b"}},
			UseSet: expr.UseSet{"a": true, "b": true},
		},
	}
	err := Check(r, "Dep", projections, nil)
	require.Error(t, err, "a computed projection never satisfies P even though it reads the dependency")
}

// SELECT a + a AS x WHERE <reads b>: only WHERE reads b, and no
// projection keeps b's dependency a verbatim.
func TestCheckWhereClauseContributesToReadSet(t *testing.T) {
	r := depRegistry()
	projections := []Projection{
		{
			Alias:  "x",
			Expr:   expr.BinaryExpr{Op: expr.Add, Left: expr.ColumnRef{Name: "a"}, Right: expr.ColumnRef{Name: "a"}},
			UseSet: expr.UseSet{"a": true},
		},
	}
	whereUse := expr.UseSet{"b": true}
	err := Check(r, "Dep", projections, whereUse)
	require.Error(t, err, "WHERE reading b still requires a to be kept")
}

func TestCheckNoDependenciesAlwaysSucceeds(t *testing.T) {
	r := schema.New()
	r.CommitBatch(map[string]schema.Decl{
		"User": {Message: &schema.MessageDecl{
			Name: "User",
			Fields: []schema.FieldDecl{
				{Name: "age", Type: schema.PrimitiveType(schema.Int)},
				{Name: "year_of_birth", Type: schema.PrimitiveType(schema.Int)},
			},
		}},
	})
	projections := []Projection{
		{
			Alias: "s",
			Expr:  expr.BinaryExpr{Op: expr.Add, Left: expr.ColumnRef{Name: "age"}, Right: expr.ColumnRef{Name: "year_of_birth"}},
			UseSet: expr.UseSet{"age": true, "year_of_birth": true},
		},
	}
	require.NoError(t, Check(r, "User", projections, nil))
}

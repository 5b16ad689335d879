// Package analyzer implements the Dependency Analyser (D): given the
// use sets the Expression Typer produced for a SELECT's projections
// and WHERE clause, it enforces that no column's dependency is
// dropped from the kept projection list (spec §4.6). Grounded
// structurally on the teacher's pkg/condition validation passes that
// run after typing and before execution (e.g. builder.go's multi-pass
// "validate, then evaluate" shape), generalized to this one rule.
package analyzer

import (
	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/schema"
)

// Projection is one (expression, alias) entry of a SELECT's field
// list, paired with the use set X produced while typing it.
type Projection struct {
	Alias  string
	Expr   expr.Expr
	UseSet expr.UseSet
}

// Check implements spec §4.6's rule. rowType names the table's
// declared row message type, used to resolve deps(row_type, c).
// projections is the SELECT's alias-bearing field list; whereUse is
// the WHERE clause's use set (nil/empty if there is no WHERE).
//
// P, the kept set, is the set of row_type columns a projection keeps
// verbatim — i.e. every projection whose expression is a bare
// ColumnRef(c) keeps c. A computed projection (e.g. `age + 1 AS x`)
// reads columns (tracked in R below) but does not keep any of them
// verbatim, so it contributes nothing to P. R is the union of every
// projection's and the WHERE clause's use set.
func Check(registry *schema.Registry, rowType string, projections []Projection, whereUse expr.UseSet) error {
	kept := make(map[string]bool)
	for _, p := range projections {
		if ref, ok := p.Expr.(expr.ColumnRef); ok {
			kept[ref.Name] = true
		}
	}

	combined := expr.UseSet{}
	for _, p := range projections {
		for c := range p.UseSet {
			combined[c] = true
		}
	}
	for c := range whereUse {
		combined[c] = true
	}

	for c := range combined {
		deps, err := registry.Deps(rowType, c)
		if err != nil {
			return err
		}
		for _, d := range deps {
			if !kept[d] {
				return dberrors.NewDroppedDependency(c, d)
			}
		}
	}
	return nil
}

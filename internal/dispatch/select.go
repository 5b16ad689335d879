package dispatch

import (
	"context"
	"errors"

	"github.com/arkemis/dbufdb/internal/analyzer"
	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/exprcache"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/value"
)

// typedField is one projection after typing: its expression, alias,
// and the use set X computed for it.
type typedField struct {
	expr  expr.Expr
	alias string
	use   expr.UseSet
}

func (d *Dispatcher) selectRows(ctx context.Context, q Query) (Result, error) {
	tbl, err := d.catalog.Lookup(q.Table)
	if err != nil {
		return Result{}, err
	}

	typer := &expr.Typer{Registry: d.registry, RowType: tbl.RowType}
	decl, ok := d.registry.Resolve(tbl.RowType)
	if !ok || !decl.IsMessage() {
		return Result{}, dberrors.NewUnknownType(tbl.RowType)
	}
	rowCtx := expr.RowContext(decl.Message)

	// typeExpr consults the type cache before re-running the Typer;
	// SPEC_FULL §4.10 — typing is pure and deterministic, so a
	// repeated (row_type, expression) pair that typed successfully is
	// served from the cache without retyping.
	typeExpr := func(e expr.Expr) (schema.DT, expr.UseSet, error) {
		if d.typeCache == nil {
			return typer.Type(e, rowCtx)
		}
		key := exprcache.Key(typer.RowType, e)
		if cached, ok := d.typeCache.Get(key); ok {
			if cached.ErrKey != "" {
				// Only the failure's message is cached; retyping
				// reproduces the original error with its kind.
				return typer.Type(e, rowCtx)
			}
			return cached.Type, cached.Use, nil
		}
		typ, use, err := typer.Type(e, rowCtx)
		if err != nil {
			d.typeCache.Set(key, exprcache.Result{ErrKey: err.Error()})
			return schema.DT{}, nil, err
		}
		d.typeCache.Set(key, exprcache.Result{Type: typ, Use: use})
		return typ, use, nil
	}

	fields := make([]typedField, len(q.Fields))
	for i, f := range q.Fields {
		_, use, err := typeExpr(f.Expr)
		if err != nil {
			return Result{}, err
		}
		fields[i] = typedField{expr: f.Expr, alias: f.Alias, use: use}
	}

	var whereUse expr.UseSet
	if q.Where != nil {
		whereType, use, err := typeExpr(q.Where)
		if err != nil {
			return Result{}, err
		}
		if !whereType.Equal(schema.PrimitiveType(schema.Bool)) {
			return Result{}, dberrors.NewTypeMismatch("Bool", whereType.String())
		}
		whereUse = use
	}

	projections := make([]analyzer.Projection, len(fields))
	for i, f := range fields {
		projections[i] = analyzer.Projection{Alias: f.alias, Expr: f.expr, UseSet: f.use}
	}
	if err := analyzer.Check(d.registry, tbl.RowType, projections, whereUse); err != nil {
		return Result{}, err
	}

	cursor, err := d.catalog.Scan(q.Table)
	if err != nil {
		return Result{}, err
	}

	evaluator := &expr.Evaluator{Registry: d.registry}
	var results []expr.Row
	var firstErr error
	for rowIdx := 0; ; rowIdx++ {
		row, ok := cursor.Next()
		if !ok {
			break
		}
		rowBindings, err := rowToBindings(d.registry, tbl.RowType, row)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if q.Where != nil {
			wv, err := evaluator.Eval(q.Where, rowBindings)
			if err != nil {
				if firstErr == nil {
					firstErr = err
					if errors.Is(err, dberrors.ErrDivisionByZero) {
						firstErr = dberrors.NewDivisionByZero(rowIdx)
					}
				}
				continue
			}
			keep, _ := wv.AsBool()
			if !keep {
				continue
			}
		}
		out := make(expr.Row, len(fields))
		rowFailed := false
		for _, f := range fields {
			v, err := evaluator.Eval(f.expr, rowBindings)
			if err != nil {
				if firstErr == nil {
					firstErr = err
					if errors.Is(err, dberrors.ErrDivisionByZero) {
						firstErr = dberrors.NewDivisionByZero(rowIdx)
					}
				}
				rowFailed = true
				break
			}
			out[f.alias] = v
		}
		if !rowFailed {
			results = append(results, out)
		}
	}

	return Result{OK: true, Rows: results, FirstRowError: firstErr}, nil
}

// rowToBindings projects a stored Message row into the column->value
// bindings the Evaluator needs, by the row type's declared field
// order.
func rowToBindings(registry *schema.Registry, rowType string, row value.Value) (expr.Row, error) {
	decl, ok := registry.Resolve(rowType)
	if !ok || !decl.IsMessage() {
		return nil, dberrors.NewUnknownType(rowType)
	}
	out := make(expr.Row, len(decl.Message.Fields))
	for i, fd := range decl.Message.Fields {
		v, ok := row.Field(i)
		if !ok {
			return nil, dberrors.NewArityMismatch(rowType, len(decl.Message.Fields), i)
		}
		out[fd.Name] = v
	}
	return out, nil
}

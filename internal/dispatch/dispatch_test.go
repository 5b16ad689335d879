package dispatch

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/loader"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/table"
	"github.com/arkemis/dbufdb/internal/value"
	"github.com/arkemis/dbufdb/pkg/logger"
	"github.com/arkemis/dbufdb/pkg/metrics"
	"github.com/arkemis/dbufdb/pkg/tracing"
)

// newTestDispatcher wires a Dispatcher with no-op metrics/tracing and
// a zerolog-backed Logger writing to stderr, matching the
// collaborators cmd/dbufdb wires for real, minus any external I/O.
func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	registry := schema.New()
	ld := loader.New(registry)
	catalog := table.New(registry)

	metricsSvc, err := metrics.NewMetricsService(metrics.MetricsConfig{Provider: "prometheus", Enabled: false})
	require.NoError(t, err)

	tracer, err := tracing.NewService(tracing.Config{ServiceName: "test", Enabled: false})
	require.NoError(t, err)

	log, err := (&logger.LoggerFactory{}).NewLogger(logger.Config{
		Type: logger.ZerologLogger, Level: logger.InfoLevel, Output: os.Stderr, Format: "json",
	})
	require.NoError(t, err)

	return New(registry, ld, catalog, metricsSvc, tracer, log)
}

func loadUserSchema(t *testing.T, d *Dispatcher) {
	t.Helper()
	err := d.loader.Load([]loader.Declaration{
		{Enum: &loader.RawEnum{
			Name: "Status",
			Variants: []loader.RawVariant{{Name: "Admin"}, {Name: "User"}},
		}},
		{Message: &loader.RawMessage{
			Name: "User",
			Fields: []loader.RawField{
				{Name: "name", Type: loader.RawType{Primitive: primPtr(schema.String)}},
				{Name: "surname", Type: loader.RawType{Primitive: primPtr(schema.String)}},
				{Name: "age", Type: loader.RawType{Primitive: primPtr(schema.Int)}},
				{Name: "year_of_birth", Type: loader.RawType{Primitive: primPtr(schema.Int)}},
				{Name: "status", Type: loader.RawType{Name: "Status"}},
			},
		}},
	})
	require.NoError(t, err)
}

func primPtr(p schema.Primitive) *schema.Primitive { return &p }

func seedUsers(t *testing.T, d *Dispatcher) {
	t.Helper()
	loadUserSchema(t, d)
	_, err := d.Dispatch(context.Background(), Query{Kind: OpCreateTable, Table: "t", RowType: "User"})
	require.NoError(t, err)

	john := value.Message("User", []value.Value{
		value.String("John"), value.String("Doe"), value.Int(26), value.Int(1999),
		value.Variant("Status", "Admin", nil),
	})
	jane := value.Message("User", []value.Value{
		value.String("Jane"), value.String("Doe"), value.Int(18), value.Int(2007),
		value.Variant("Status", "User", nil),
	})
	_, err = d.Dispatch(context.Background(), Query{Kind: OpInsertMessages, Table: "t", Rows: []value.Value{john, jane}})
	require.NoError(t, err)
}

// Scenario A: WHERE age > 20 keeps only John.
func TestScenarioAWhereFilter(t *testing.T) {
	d := newTestDispatcher(t)
	seedUsers(t, d)

	res, err := d.Dispatch(context.Background(), Query{
		Kind:  OpSelect,
		Table: "t",
		Fields: []SelectField{
			{Expr: expr.ColumnRef{Name: "name"}, Alias: "name"},
			{Expr: expr.ColumnRef{Name: "surname"}, Alias: "surname"},
		},
		Where: expr.BinaryExpr{Op: expr.Gt, Left: expr.ColumnRef{Name: "age"}, Right: expr.Literal{Value: value.Int(20)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	name, _ := res.Rows[0]["name"].AsString()
	require.Equal(t, "John", name)
}

// Scenario B: age + year_of_birth AS s, a computed expression with no dependency concerns.
func TestScenarioBComputedProjection(t *testing.T) {
	d := newTestDispatcher(t)
	seedUsers(t, d)

	res, err := d.Dispatch(context.Background(), Query{
		Kind:  OpSelect,
		Table: "t",
		Fields: []SelectField{
			{Expr: expr.BinaryExpr{Op: expr.Add, Left: expr.ColumnRef{Name: "age"}, Right: expr.ColumnRef{Name: "year_of_birth"}}, Alias: "s"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		s, _ := row["s"].AsInt()
		require.Equal(t, int64(2025), s)
	}
}

// Scenario C: exhaustive MATCH status over both variants.
func TestScenarioCExhaustiveMatch(t *testing.T) {
	d := newTestDispatcher(t)
	seedUsers(t, d)

	match := expr.UnaryExpr{
		Kind:    expr.EnumMatch,
		Operand: expr.ColumnRef{Name: "status"},
		Cases: []expr.Case{
			{Enum: "Status", Variant: "Admin", Body: expr.Literal{Value: value.Int(1)}},
			{Enum: "Status", Variant: "User", Body: expr.Literal{Value: value.Int(0)}},
		},
	}
	res, err := d.Dispatch(context.Background(), Query{
		Kind: OpSelect, Table: "t",
		Fields: []SelectField{{Expr: match, Alias: "r"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
}

// Scenario D: omitting the User branch is a typing failure, not a runtime one.
func TestScenarioDNonExhaustiveMatchFailsAtTypeTime(t *testing.T) {
	d := newTestDispatcher(t)
	seedUsers(t, d)

	incomplete := expr.UnaryExpr{
		Kind:    expr.EnumMatch,
		Operand: expr.ColumnRef{Name: "status"},
		Cases: []expr.Case{
			{Enum: "Status", Variant: "Admin", Body: expr.Literal{Value: value.Int(1)}},
		},
	}
	_, err := d.Dispatch(context.Background(), Query{
		Kind: OpSelect, Table: "t",
		Fields: []SelectField{{Expr: incomplete, Alias: "r"}},
	})
	require.Error(t, err)
	var e *dberrors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, dberrors.NonExhaustiveMatch, e.Kind())
}

// Scenario E: SELECT b alone drops a's dependency; selecting a too keeps it.
func TestScenarioEDependencyAnalysis(t *testing.T) {
	d := newTestDispatcher(t)
	err := d.loader.Load([]loader.Declaration{{Message: &loader.RawMessage{
		Name: "Dep",
		Fields: []loader.RawField{
			{Name: "a", Type: loader.RawType{Primitive: primPtr(schema.Int)}},
			{Name: "b", Type: loader.RawType{Primitive: primPtr(schema.Int)}, Dependencies: []string{"a"}},
		},
	}}})
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), Query{Kind: OpCreateTable, Table: "dt", RowType: "Dep"})
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), Query{
		Kind: OpInsertMessages, Table: "dt",
		Rows: []value.Value{value.Message("Dep", []value.Value{value.Int(1), value.Int(2)})},
	})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), Query{
		Kind: OpSelect, Table: "dt",
		Fields: []SelectField{{Expr: expr.ColumnRef{Name: "b"}, Alias: "b"}},
	})
	require.Error(t, err, "dropping a's projection while reading b must fail")

	res, err := d.Dispatch(context.Background(), Query{
		Kind: OpSelect, Table: "dt",
		Fields: []SelectField{
			{Expr: expr.ColumnRef{Name: "a"}, Alias: "a"},
			{Expr: expr.ColumnRef{Name: "b"}, Alias: "b"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

// Scenario F: one row fails at runtime (division by zero), the scan
// continues and returns the surviving row plus the first error.
func TestScenarioFRuntimeDivisionByZeroDropsOnlyThatRow(t *testing.T) {
	d := newTestDispatcher(t)
	seedUsers(t, d)

	res, err := d.Dispatch(context.Background(), Query{
		Kind: OpSelect, Table: "t",
		Fields: []SelectField{
			{Expr: expr.BinaryExpr{
				Op:   expr.Div,
				Left: expr.Literal{Value: value.Int(10)},
				Right: expr.BinaryExpr{
					Op: expr.Sub, Left: expr.ColumnRef{Name: "age"}, Right: expr.Literal{Value: value.Int(26)},
				},
			}, Alias: "x"},
		},
	})
	require.NoError(t, err, "a per-row runtime error must not fail the whole Dispatch call")
	require.Len(t, res.Rows, 1, "only Jane's row survives; John's age-26 row divides by zero")
	require.Error(t, res.FirstRowError)
	var e *dberrors.Error
	require.ErrorAs(t, res.FirstRowError, &e)
	require.Equal(t, dberrors.DivisionByZero, e.Kind())
}

// TestDispatchWrapsOpInSpanAndMetric exercises the Dispatcher with a
// real (non-noop) metrics provider and tracer, confirming a
// dispatched op is counted and timed on /metrics and that a failing
// op still returns its error (SPEC_FULL §4.11).
func TestDispatchWrapsOpInSpanAndMetric(t *testing.T) {
	registry := schema.New()
	ld := loader.New(registry)
	catalog := table.New(registry)

	metricsSvc, err := metrics.NewMetricsService(metrics.MetricsConfig{Provider: "prometheus", Namespace: "dbufdb", Enabled: true})
	require.NoError(t, err)

	t.Setenv("INTEGRATION_TEST_QUIET", "true")
	tracer, err := tracing.NewService(tracing.Config{Enabled: true, ServiceName: "dbufdb-test", ExporterType: tracing.StdoutExporter})
	require.NoError(t, err)
	defer tracer.Shutdown(context.Background())

	log, err := (&logger.LoggerFactory{}).NewLogger(logger.Config{
		Type: logger.ZerologLogger, Level: logger.InfoLevel, Output: os.Stderr, Format: "json",
	})
	require.NoError(t, err)

	d := New(registry, ld, catalog, metricsSvc, tracer, log)
	loadUserSchema(t, d)
	_, err = d.Dispatch(context.Background(), Query{Kind: OpCreateTable, Table: "t", RowType: "User"})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	metricsSvc.Handler().ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), "dbufdb_queries_total")
	require.Contains(t, rec.Body.String(), "dbufdb_query_duration_seconds")

	_, err = d.Dispatch(context.Background(), Query{Kind: OpCreateTable, Table: "t", RowType: "User"})
	require.Error(t, err, "creating the same table twice must fail and still be recorded")
}

func TestDropTableThenScanFails(t *testing.T) {
	d := newTestDispatcher(t)
	seedUsers(t, d)
	_, err := d.Dispatch(context.Background(), Query{Kind: OpDropTable, Table: "t"})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), Query{Kind: OpSelect, Table: "t"})
	require.Error(t, err)
}

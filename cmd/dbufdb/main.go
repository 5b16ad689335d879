// Command dbufdb is a non-interactive demo runner: it loads a schema,
// creates tables, inserts rows, and runs seed scenarios A–F of spec.md
// §8, printing results the way the teacher's cmd/demo showcase
// prints its output.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arkemis/dbufdb/internal/dispatch"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/loader"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/table"
	"github.com/arkemis/dbufdb/internal/value"
	"github.com/arkemis/dbufdb/pkg/config"
	"github.com/arkemis/dbufdb/pkg/logger"
	"github.com/arkemis/dbufdb/pkg/metrics"
	"github.com/arkemis/dbufdb/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := (&logger.LoggerFactory{}).NewLogger(logger.Config{
		Type:        logger.LoggerType(cfg.Logger.Type),
		Level:       logger.ParseLogLevel(cfg.Logger.Level),
		Output:      os.Stdout,
		Format:      cfg.Logger.Format,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	metricsSvc, err := metrics.NewMetricsService(metrics.MetricsConfig{
		Provider:  "prometheus",
		Namespace: cfg.Metrics.Namespace,
		Enabled:   cfg.Metrics.Enabled,
	})
	if err != nil {
		log.Fatal("metrics init failed", logger.Fields{"err": err.Error()})
	}
	defer metricsSvc.Close()

	tracer, err := tracing.NewService(tracing.Config{
		ServiceName:   cfg.Tracing.ServiceName,
		ExporterType:  tracing.ExporterType(cfg.Tracing.ExporterType),
		Endpoint:      cfg.Tracing.OTLPEndpoint,
		SamplingRatio: cfg.Tracing.SamplingRatio,
		Enabled:       cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("tracing init failed", logger.Fields{"err": err.Error()})
	}
	defer tracer.Shutdown(context.Background())

	registry := schema.New()
	ld := loader.New(registry)
	catalog := table.New(registry)
	d := dispatch.New(registry, ld, catalog, metricsSvc, tracer, log)

	ctx := context.Background()
	runScenarios(ctx, d, log)
}

func runScenarios(ctx context.Context, d *dispatch.Dispatcher, log logger.Logger) {
	mustLoad(ctx, d, userStatusBatch(), log)
	mustOp(ctx, d, dispatch.Query{Kind: dispatch.OpCreateTable, Table: "t", RowType: "User"}, log)

	john := value.Message("User", []value.Value{
		value.String("John"), value.String("Doe"), value.Int(26), value.Int(1999),
		value.Variant("Status", "Admin", nil),
	})
	jane := value.Message("User", []value.Value{
		value.String("Jane"), value.String("Doe"), value.Int(18), value.Int(2007),
		value.Variant("Status", "User", nil),
	})
	mustOp(ctx, d, dispatch.Query{Kind: dispatch.OpInsertMessages, Table: "t", Rows: []value.Value{john, jane}}, log)

	// A: WHERE age > 20, keep name/surname.
	runSelect(ctx, d, log, "scenario A", dispatch.Query{
		Kind:  dispatch.OpSelect,
		Table: "t",
		Fields: []dispatch.SelectField{
			{Expr: expr.ColumnRef{Name: "name"}, Alias: "name"},
			{Expr: expr.ColumnRef{Name: "surname"}, Alias: "surname"},
		},
		Where: expr.BinaryExpr{Op: expr.Gt, Left: expr.ColumnRef{Name: "age"}, Right: expr.Literal{Value: value.Int(20)}},
	})

	// B: age + year_of_birth AS s.
	runSelect(ctx, d, log, "scenario B", dispatch.Query{
		Kind:  dispatch.OpSelect,
		Table: "t",
		Fields: []dispatch.SelectField{
			{Expr: expr.BinaryExpr{Op: expr.Add, Left: expr.ColumnRef{Name: "age"}, Right: expr.ColumnRef{Name: "year_of_birth"}}, Alias: "s"},
		},
	})

	// C: MATCH status { Admin => 1, User => 0 } AS r.
	runSelect(ctx, d, log, "scenario C", dispatch.Query{
		Kind:  dispatch.OpSelect,
		Table: "t",
		Fields: []dispatch.SelectField{
			{Expr: statusMatch(), Alias: "r"},
		},
	})

	// D: same match, omit the User branch -> NonExhaustiveMatch.
	incomplete := expr.UnaryExpr{
		Kind:    expr.EnumMatch,
		Operand: expr.ColumnRef{Name: "status"},
		Cases: []expr.Case{
			{Enum: "Status", Variant: "Admin", Body: expr.Literal{Value: value.Int(1)}},
		},
	}
	runSelect(ctx, d, log, "scenario D", dispatch.Query{
		Kind:   dispatch.OpSelect,
		Table:  "t",
		Fields: []dispatch.SelectField{{Expr: incomplete, Alias: "r"}},
	})

	// E: dependency drop.
	mustLoad(ctx, d, depBatch(), log)
	mustOp(ctx, d, dispatch.Query{Kind: dispatch.OpCreateTable, Table: "dt", RowType: "Dep"}, log)
	mustOp(ctx, d, dispatch.Query{
		Kind: dispatch.OpInsertMessages, Table: "dt",
		Rows: []value.Value{value.Message("Dep", []value.Value{value.Int(1), value.Int(2)})},
	}, log)
	runSelect(ctx, d, log, "scenario E (dropped)", dispatch.Query{
		Kind: dispatch.OpSelect, Table: "dt",
		Fields: []dispatch.SelectField{{Expr: expr.ColumnRef{Name: "b"}, Alias: "b"}},
	})
	runSelect(ctx, d, log, "scenario E (kept)", dispatch.Query{
		Kind: dispatch.OpSelect, Table: "dt",
		Fields: []dispatch.SelectField{
			{Expr: expr.ColumnRef{Name: "a"}, Alias: "a"},
			{Expr: expr.ColumnRef{Name: "b"}, Alias: "b"},
		},
	})

	// F: division by zero on first row, result on second.
	runSelect(ctx, d, log, "scenario F", dispatch.Query{
		Kind: dispatch.OpSelect, Table: "t",
		Fields: []dispatch.SelectField{
			{Expr: expr.BinaryExpr{
				Op:   expr.Div,
				Left: expr.Literal{Value: value.Int(10)},
				Right: expr.BinaryExpr{
					Op: expr.Sub, Left: expr.ColumnRef{Name: "age"}, Right: expr.Literal{Value: value.Int(26)},
				},
			}, Alias: "x"},
		},
	})
}

func statusMatch() expr.Expr {
	return expr.UnaryExpr{
		Kind:    expr.EnumMatch,
		Operand: expr.ColumnRef{Name: "status"},
		Cases: []expr.Case{
			{Enum: "Status", Variant: "Admin", Body: expr.Literal{Value: value.Int(1)}},
			{Enum: "Status", Variant: "User", Body: expr.Literal{Value: value.Int(0)}},
		},
	}
}

func mustLoad(ctx context.Context, d *dispatch.Dispatcher, batch []loader.Declaration, log logger.Logger) {
	encoded, err := loaderBatchToQueryPath(batch)
	if err != nil {
		log.Fatal("seed schema encode failed", logger.Fields{"err": err.Error()})
	}
	res, err := d.Dispatch(ctx, dispatch.Query{Kind: dispatch.OpFetchTypes, Path: encoded})
	if err != nil {
		log.Fatal("fetch types failed", logger.Fields{"err": err.Error()})
	}
	fmt.Printf("loaded types: %v\n", res.CommittedTypes)
}

func mustOp(ctx context.Context, d *dispatch.Dispatcher, q dispatch.Query, log logger.Logger) {
	if _, err := d.Dispatch(ctx, q); err != nil {
		log.Fatal("operation failed", logger.Fields{"op": string(q.Kind), "err": err.Error()})
	}
	fmt.Printf("OK: %s %s\n", q.Kind, q.Table)
}

func runSelect(ctx context.Context, d *dispatch.Dispatcher, log logger.Logger, label string, q dispatch.Query) {
	res, err := d.Dispatch(ctx, q)
	if err != nil {
		fmt.Printf("%s: FAILED %v\n", label, err)
		return
	}
	fmt.Printf("%s: %d row(s)\n", label, len(res.Rows))
	for _, row := range res.Rows {
		fmt.Printf("  %v\n", row)
	}
	if res.FirstRowError != nil {
		fmt.Printf("  first row error: %v\n", res.FirstRowError)
	}
}

// Package dispatch implements the Query Dispatcher (Q): it accepts a
// parsed query variant (spec §6) and routes it to the Schema Loader,
// Table Catalog, Expression Typer, Dependency Analyser and Evaluator,
// returning a uniform result. Every dispatched operation is wrapped
// with Prometheus metrics, an OpenTelemetry span, and a structured log
// line (spec SPEC_FULL §4.11/§4.13) — none of S, L, T, X, D or E import
// those packages themselves, matching the teacher's convention of
// instrumenting at the service boundary, not inside domain logic.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/expr"
	"github.com/arkemis/dbufdb/internal/exprcache"
	"github.com/arkemis/dbufdb/internal/loader"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/schemasource"
	"github.com/arkemis/dbufdb/internal/table"
	"github.com/arkemis/dbufdb/internal/value"
	"github.com/arkemis/dbufdb/pkg/logger"
	"github.com/arkemis/dbufdb/pkg/metrics"
	"github.com/arkemis/dbufdb/pkg/tracing"
)

// OpKind names one of the five parsed query variants of spec §6.
type OpKind string

const (
	OpFetchTypes     OpKind = "fetch_types"
	OpCreateTable    OpKind = "create_table"
	OpDropTable      OpKind = "drop_table"
	OpInsertMessages OpKind = "insert_messages"
	OpSelect         OpKind = "select"
)

// SelectField is one (expression, alias) entry of a SELECT's field
// list.
type SelectField struct {
	Expr  expr.Expr
	Alias string
}

// Query is the parsed query surface of spec §6, flattened into one
// discriminated-by-Kind struct for dispatch.
type Query struct {
	Kind OpKind

	Path string // FetchTypes

	Table   string // CreateTable, DropTable, InsertMessages, Select
	RowType string // CreateTable

	Rows []value.Value // InsertMessages

	Fields []SelectField // Select
	Where  expr.Expr     // Select, optional (nil means no WHERE)
}

// Result is the dispatcher's uniform return shape: a confirmation
// (CreateTable/DropTable/InsertMessages), or produced rows (Select),
// or committed type names (FetchTypes). FirstRowError carries the
// first per-row runtime error encountered during a SELECT scan (spec
// §4.7's row-level result policy); it does not make the overall
// Dispatch call fail.
type Result struct {
	OK             bool
	CommittedTypes []string
	Rows           []expr.Row
	FirstRowError  error
}

// Dispatcher wires S, L, T, X, D and E behind one entry point.
type Dispatcher struct {
	registry *schema.Registry
	loader   *loader.Loader
	catalog  *table.Catalog

	fileSource *schemasource.FileSource
	s3Source   *schemasource.S3Source

	typeCache *exprcache.Cache

	metrics metrics.MetricsProvider
	tracer  tracing.Service
	log     logger.Logger
}

// Option configures optional Dispatcher collaborators.
type Option func(*Dispatcher)

func WithS3Source(s *schemasource.S3Source) Option { return func(d *Dispatcher) { d.s3Source = s } }
func WithTypeCache(c *exprcache.Cache) Option       { return func(d *Dispatcher) { d.typeCache = c } }

func New(registry *schema.Registry, ld *loader.Loader, catalog *table.Catalog,
	metricsProvider metrics.MetricsProvider, tracer tracing.Service, log logger.Logger,
	opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		loader:     ld,
		catalog:    catalog,
		fileSource: schemasource.NewFileSource(),
		metrics:    metricsProvider,
		tracer:     tracer,
		log:        log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes q and wraps the call with metrics, tracing and
// structured logging (spec SPEC_FULL §4.11/§4.13).
func (d *Dispatcher) Dispatch(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	ctx, span := d.tracer.StartSpan(ctx, "dispatch."+string(q.Kind))
	defer span.End()
	if q.Table != "" {
		d.tracer.SetAttributes(ctx, attribute.String("table", q.Table))
	}

	res, err := d.route(ctx, q)

	status := "ok"
	if err != nil {
		status = "error"
		d.tracer.RecordError(ctx, err)
	}
	d.metrics.IncrementCounter("queries_total", metrics.Fields{"op": string(q.Kind), "status": status})
	d.metrics.ObserveHistogram("query_duration_seconds", time.Since(start).Seconds(), metrics.Fields{"op": string(q.Kind)})

	logFields := logger.Fields{"op": string(q.Kind), "table": q.Table, "rows": len(res.Rows)}
	if err != nil {
		logFields["err"] = err.Error()
		d.log.ErrorContext(ctx, "query failed", logFields)
	} else {
		d.log.InfoContext(ctx, "query dispatched", logFields)
	}
	return res, err
}

func (d *Dispatcher) route(ctx context.Context, q Query) (Result, error) {
	switch q.Kind {
	case OpFetchTypes:
		return d.fetchTypes(ctx, q.Path)
	case OpCreateTable:
		if err := d.catalog.Create(q.Table, q.RowType); err != nil {
			return Result{}, err
		}
		return Result{OK: true}, nil
	case OpDropTable:
		if err := d.catalog.Drop(q.Table); err != nil {
			return Result{}, err
		}
		return Result{OK: true}, nil
	case OpInsertMessages:
		if err := d.catalog.Insert(q.Table, q.Rows); err != nil {
			return Result{}, err
		}
		return Result{OK: true}, nil
	case OpSelect:
		return d.selectRows(ctx, q)
	default:
		return Result{}, dberrors.NewParse(fmt.Sprintf("unknown operation %q", q.Kind))
	}
}

func (d *Dispatcher) fetchTypes(ctx context.Context, path string) (Result, error) {
	src, resolvedPath, err := schemasource.Open(path, d.fileSource, d.s3Source)
	if err != nil {
		return Result{}, dberrors.NewParse(err.Error())
	}
	batch, err := src.Fetch(ctx, resolvedPath)
	if err != nil {
		return Result{}, dberrors.NewParse(err.Error())
	}
	if err := d.loader.Load(batch); err != nil {
		return Result{}, err
	}
	names := make([]string, 0, len(batch))
	for _, decl := range batch {
		names = append(names, declName(decl))
	}
	return Result{OK: true, CommittedTypes: names}, nil
}

func declName(d loader.Declaration) string {
	if d.Message != nil {
		return d.Message.Name
	}
	if d.Enum != nil {
		return d.Enum.Name
	}
	return ""
}

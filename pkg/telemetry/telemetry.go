// Package telemetry decorates a store.Adapter[T] with otel spans,
// grounded on common/mopentelemetry's HandleSpanError and
// common/context.go's NewTracerFromContext/ContextWithTracer pattern:
// a tracer is either pulled from ctx or defaulted to otel.Tracer, one
// span per adapter call, recorded as an error on a non-nil return.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LerianStudio/itemcore/pkg/store"
)

type tracerContextKey struct{}

// ContextWithTracer attaches tracer to ctx for TracerFromContext to find.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerContextKey{}, tracer)
}

// TracerFromContext returns the tracer attached by ContextWithTracer, or
// otel.Tracer("itemcore") if none was attached.
func TracerFromContext(ctx context.Context) trace.Tracer {
	if tracer, ok := ctx.Value(tracerContextKey{}).(trace.Tracer); ok && tracer != nil {
		return tracer
	}

	return otel.Tracer("itemcore")
}

// Store decorates a store.Adapter[T] with one span per call, named
// "itemcore.<typeName>.<operation>".
type Store[T any] struct {
	inner    store.Adapter[T]
	typeName string
}

// New wraps inner so every call opens a span under typeName.
func New[T any](inner store.Adapter[T], typeName string) *Store[T] {
	return &Store[T]{inner: inner, typeName: typeName}
}

var _ store.Adapter[struct{}] = (*Store[struct{}])(nil)

func handleSpanError(span trace.Span, message string, err error) {
	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}

func (s *Store[T]) ReadItem(ctx context.Context, id, partitionKey string) (*T, error) {
	ctx, span := TracerFromContext(ctx).Start(ctx, "itemcore."+s.typeName+".read_item")
	defer span.End()

	item, err := s.inner.ReadItem(ctx, id, partitionKey)
	if err != nil {
		handleSpanError(span, "read item failed", err)
	}

	return item, err
}

func (s *Store[T]) SaveItem(ctx context.Context, req store.SaveRequest[T]) (*T, error) {
	ctx, span := TracerFromContext(ctx).Start(ctx, "itemcore."+s.typeName+".save_item")
	defer span.End()

	item, err := s.inner.SaveItem(ctx, req)
	if err != nil {
		handleSpanError(span, "save item failed", err)
	}

	return item, err
}

func (s *Store[T]) SaveBatch(ctx context.Context, partitionKey string, reqs []store.SaveRequest[T]) ([]store.BatchRowResult[T], error) {
	ctx, span := TracerFromContext(ctx).Start(ctx, "itemcore."+s.typeName+".save_batch")
	defer span.End()

	results, err := s.inner.SaveBatch(ctx, partitionKey, reqs)
	if err != nil {
		handleSpanError(span, "save batch failed", err)
	}

	return results, err
}

func (s *Store[T]) Query(ctx context.Context, spec store.QuerySpec) (store.Cursor[T], error) {
	ctx, span := TracerFromContext(ctx).Start(ctx, "itemcore."+s.typeName+".query")
	defer span.End()

	cur, err := s.inner.Query(ctx, spec)
	if err != nil {
		handleSpanError(span, "query failed", err)
	}

	return cur, err
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for audit store spans.
const (
	AttrCommand        = "flashaudit.command"
	AttrImage          = "flash.image"
	AttrArea           = "flash.area"
	AttrPageSize       = "flash.page_size"
	AttrPageCount      = "flash.page_count"
	AttrRecordID       = "audit.record_id"
	AttrSize           = "audit.size"
	AttrRecords        = "audit.records"
	AttrPagesErased    = "audit.pages_erased"
	AttrPartsMoved     = "audit.parts_moved"
	AttrBytesReclaimed = "audit.bytes_reclaimed"
	AttrErrorKind      = "audit.error_kind"
)

// Span names. Commands use "flashaudit.<command>".
const (
	SpanPrefix     = "flashaudit."
	SpanCompaction = "compactor.run"
)

func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

func Image(path string) attribute.KeyValue {
	return attribute.String(AttrImage, path)
}

func Area(name string) attribute.KeyValue {
	return attribute.String(AttrArea, name)
}

func PageSize(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrPageSize, int64(n))
}

func PageCount(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrPageCount, int64(n))
}

func RecordID(id uint16) attribute.KeyValue {
	return attribute.Int(AttrRecordID, int(id))
}

func Size(n int) attribute.KeyValue {
	return attribute.Int(AttrSize, n)
}

func Records(n int) attribute.KeyValue {
	return attribute.Int(AttrRecords, n)
}

func PagesErased(n int) attribute.KeyValue {
	return attribute.Int(AttrPagesErased, n)
}

func PartsMoved(n int) attribute.KeyValue {
	return attribute.Int(AttrPartsMoved, n)
}

func BytesReclaimed(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrBytesReclaimed, int64(n))
}

func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

// StartCommandSpan starts the root span of a CLI command.
func StartCommandSpan(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanPrefix+command,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append([]attribute.KeyValue{Command(command)}, attrs...)...),
	)
}

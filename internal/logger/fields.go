package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use them consistently so log
// lines can be aggregated and queried.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Invocation
	KeyRunID   = "run_id"
	KeyCommand = "command"
	KeyImage   = "image" // Flash image file path
	KeyArea    = "area"  // Flash area: audit, config

	// Geometry
	KeyPageSize  = "page_size"
	KeyPageCount = "page_count"
	KeyMaxPart   = "max_part"

	// Records and pages
	KeyRecordID = "record_id"
	KeySize     = "size"  // Record payload size
	KeyParts    = "parts" // Number of parts written, moved or disposed
	KeyPage     = "page"
	KeyTarget   = "target_page"
	KeyBytes    = "bytes"
	KeyRecords  = "records"

	// Capacity
	KeyRequired    = "required_bytes"
	KeyFree        = "free_bytes"
	KeyReclaimable = "reclaimable_bytes"

	// Compaction
	KeyPass           = "passes"
	KeyPagesErased    = "pages_erased"
	KeyBytesReclaimed = "bytes_reclaimed"
	KeyInterval       = "interval"
	KeyThreshold      = "threshold"

	// Serving
	KeyAddress    = "address"
	KeyRequestID  = "request_id"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyRemoteAddr = "remote_addr"
	KeyStatus     = "status"

	// Outcome
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// RecordID returns a slog.Attr for a record id.
func RecordID(id uint16) slog.Attr {
	return slog.Int(KeyRecordID, int(id))
}

// Page returns a slog.Attr for a page index.
func Page(index uint32) slog.Attr {
	return slog.Int(KeyPage, int(index))
}

// Err returns a slog.Attr for an error; nil errors produce an empty attr.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

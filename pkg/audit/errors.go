package audit

import (
	"errors"
	"fmt"
)

// Audit store errors
var (
	// ErrInvalidDataSize is returned for empty or oversized payloads and for
	// retrieve buffers shorter than the record.
	ErrInvalidDataSize = errors.New("invalid data size")

	// ErrInvalidID is returned when id 0 is passed to an operation.
	ErrInvalidID = errors.New("invalid record id")

	// ErrUnknownID is returned when no valid record carries the id, or when
	// an iteration cursor no longer exists.
	ErrUnknownID = errors.New("unknown record id")

	// ErrDataCorruption is returned when the parts of a record do not add up
	// to its declared size, or a header runs past its page.
	ErrDataCorruption = errors.New("data corruption")

	// ErrNoSpaceAvailable is returned when a record cannot fit even after
	// reclaiming every tombstoned byte.
	ErrNoSpaceAvailable = errors.New("no space available")

	// ErrCtxCheck is returned when a record only fits after a flush.
	// Store.NeedsFlush reports true until the next successful flush.
	ErrCtxCheck = errors.New("flush required before add")

	// ErrFlushNoFreePage is returned when compaction needs an erased page and
	// none is left.
	ErrFlushNoFreePage = errors.New("flush: no free page")

	// ErrRead is returned when the backend fails a read.
	ErrRead = errors.New("flash read failed")

	// ErrWrite is returned when the backend fails a write.
	ErrWrite = errors.New("flash write failed")

	// ErrInternal is returned when the backend fails an erase.
	ErrInternal = errors.New("internal flash error")
)

// StoreError records the location of a failure. Both the kind and the
// underlying backend error match with errors.Is.
type StoreError struct {
	Op      string
	Kind    error
	Page    uint32
	Address uint32
	Err     error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("audit %s: %v (page %d, address 0x%x)", e.Op, e.Kind, e.Page, e.Address)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the kind and the underlying error.
func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var errorKinds = []struct {
	err  error
	name string
}{
	{ErrInvalidDataSize, "invalid_data_size"},
	{ErrInvalidID, "invalid_id"},
	{ErrUnknownID, "unknown_id"},
	{ErrDataCorruption, "data_corruption"},
	{ErrNoSpaceAvailable, "no_space"},
	{ErrCtxCheck, "ctx_check"},
	{ErrFlushNoFreePage, "flush_no_free_page"},
	{ErrRead, "read"},
	{ErrWrite, "write"},
	{ErrInternal, "internal"},
}

// ErrorKind returns a short label for err: "ok" for nil, "other" for errors
// that are not store errors.
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "other"
}

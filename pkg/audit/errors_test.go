package audit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrInvalidDataSize, "invalid_data_size"},
		{fmt.Errorf("wrapped: %w", ErrInvalidID), "invalid_id"},
		{ErrUnknownID, "unknown_id"},
		{ErrDataCorruption, "data_corruption"},
		{ErrNoSpaceAvailable, "no_space"},
		{ErrCtxCheck, "ctx_check"},
		{ErrFlushNoFreePage, "flush_no_free_page"},
		{&StoreError{Op: "add", Kind: ErrRead}, "read"},
		{&StoreError{Op: "add", Kind: ErrWrite, Err: errors.New("io")}, "write"},
		{ErrInternal, "internal"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("bus error")
	err := &StoreError{Op: "flush", Kind: ErrInternal, Page: 3, Address: 0x1800, Err: cause}

	assert.Equal(t, "audit flush: internal flash error (page 3, address 0x1800): bus error", err.Error())
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRead)

	bare := &StoreError{Op: "flush", Kind: ErrFlushNoFreePage, Page: 1, Address: 0x800}
	assert.Equal(t, "audit flush: flush: no free page (page 1, address 0x800)", bare.Error())

	var se *StoreError
	require.ErrorAs(t, fmt.Errorf("outer: %w", bare), &se)
	assert.Equal(t, uint32(1), se.Page)
}

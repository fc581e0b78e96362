package audit

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageHeader(t *testing.T) {
	assert.Equal(t, ^uint64(0), PageHeader{Unused: true}.Word())
	assert.Equal(t, uint64(0xFFFF_FFFF_FFFF_FFFE), usedPageHeader)

	var erased [8]byte
	for i := range erased {
		erased[i] = 0xFF
	}
	assert.True(t, DecodePageHeader(erased[:]).Unused)

	var used [8]byte
	binary.LittleEndian.PutUint64(used[:], usedPageHeader)
	assert.False(t, DecodePageHeader(used[:]).Unused)
}

func TestRecordHeaderLayout(t *testing.T) {
	hdr := newRecordHeader(0x1234, 0x0100, 0, 0x0100)
	w := hdr.Words()

	assert.Equal(t, uint64(0x0100_1234_FFFF_FFFE), w[0], "unused=0 valid=1 reserved=ones id size")
	assert.Equal(t, uint64(0xFFFF_FFFF_0100_0000), w[1], "offset size reserved=ones")
}

func TestRecordHeaderRoundTrip(t *testing.T) {
	hdr := newRecordHeader(7, 1200, 512, 512)
	w := hdr.Words()

	var buf [RecordHeaderSize]byte
	binary.LittleEndian.PutUint64(buf[0:], w[0])
	binary.LittleEndian.PutUint64(buf[8:], w[1])

	got := DecodeRecordHeader(buf[:])
	assert.Equal(t, hdr, got)
	assert.True(t, got.Fragmented())
	assert.False(t, got.First())
	assert.Equal(t, uint32(RecordHeaderSize+512), got.PhysicalSize())
}

func TestRecordHeaderDisposeClearsOneBit(t *testing.T) {
	hdr := newRecordHeader(3, 5, 0, 5)
	before := hdr.Words()[0]

	hdr.Valid = false
	after := hdr.Words()[0]

	assert.Equal(t, before&^(1<<bitValid), after)
	// Programming can only clear bits, so the tombstone is writable in place.
	assert.Equal(t, after, before&after)
}

func TestErasedRecordHeader(t *testing.T) {
	var buf [RecordHeaderSize]byte
	for i := range buf {
		buf[i] = 0xFF
	}
	assert.True(t, DecodeRecordHeader(buf[:]).Unused)
}

func TestPartFootprint(t *testing.T) {
	tests := []struct {
		n    uint32
		want uint32
	}{
		{1, 24},
		{8, 24},
		{9, 32},
		{512, 528},
		{513, 536},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, partFootprint(tt.n), "partFootprint(%d)", tt.n)
	}
}

func TestPackWords(t *testing.T) {
	words := make([]uint64, 2)
	packWords(words, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	assert.Equal(t, uint64(0x0807060504030201), words[0])
	assert.Equal(t, uint64(0x0a09), words[1], "tail is zero-padded")
}

package audit

import (
	"encoding/binary"
)

// On-flash layout constants
const (
	// PageHeaderSize is the size of the marker at the start of every page.
	PageHeaderSize = 8

	// RecordHeaderSize is the size of a part header (two doublewords).
	RecordHeaderSize = 16

	// MaxRecordSize is the largest payload a record can carry; the size
	// field is 16 bits wide.
	MaxRecordSize = 0xFFFF

	// minPartFootprint is the smallest slot a shrunk part may occupy:
	// a header plus one padded doubleword of payload.
	minPartFootprint = RecordHeaderSize + 8
)

// Bit positions of the page header and the first record doubleword.
// The second record doubleword holds part_offset in bits 0-15, part_size in
// bits 16-31 and reserved ones above.
const (
	bitUnused = 0
	bitValid  = 1

	reservedShift = 2
	reservedMask  = 1<<30 - 1
	idShift       = 32
	sizeShift     = 48

	partSizeShift     = 16
	partReservedShift = 32
)

// RecordID identifies a logical record. Zero is never assigned.
type RecordID uint16

// PageHeader is the 8-byte marker that distinguishes erased pages from
// pages holding records.
type PageHeader struct {
	Unused bool
}

// usedPageHeader is the word programmed into a page when it is first used.
var usedPageHeader = PageHeader{Unused: false}.Word()

// Word encodes the header; all reserved bits are ones.
func (h PageHeader) Word() uint64 {
	w := ^uint64(0)
	if !h.Unused {
		w &^= 1 << bitUnused
	}
	return w
}

// DecodePageHeader decodes the first 8 bytes of b.
func DecodePageHeader(b []byte) PageHeader {
	w := binary.LittleEndian.Uint64(b)
	return PageHeader{Unused: w&(1<<bitUnused) != 0}
}

// RecordHeader describes one part of a logical record.
type RecordHeader struct {
	Unused bool
	Valid  bool
	ID     RecordID
	// Size is the total payload size of the logical record.
	Size uint16

	PartOffset uint16
	PartSize   uint16

	// Reserved fields are kept so a decoded header re-encodes verbatim.
	Reserved     uint32
	PartReserved uint32
}

// newRecordHeader returns a valid header for a freshly written part.
func newRecordHeader(id RecordID, size, partOffset, partSize uint16) RecordHeader {
	return RecordHeader{
		Valid:        true,
		ID:           id,
		Size:         size,
		PartOffset:   partOffset,
		PartSize:     partSize,
		Reserved:     reservedMask,
		PartReserved: ^uint32(0),
	}
}

// Words encodes the header into its two doublewords.
func (h RecordHeader) Words() [2]uint64 {
	var w0 uint64
	if h.Unused {
		w0 |= 1 << bitUnused
	}
	if h.Valid {
		w0 |= 1 << bitValid
	}
	w0 |= uint64(h.Reserved&reservedMask) << reservedShift
	w0 |= uint64(h.ID) << idShift
	w0 |= uint64(h.Size) << sizeShift

	w1 := uint64(h.PartOffset)
	w1 |= uint64(h.PartSize) << partSizeShift
	w1 |= uint64(h.PartReserved) << partReservedShift

	return [2]uint64{w0, w1}
}

// DecodeRecordHeader decodes the first 16 bytes of b.
func DecodeRecordHeader(b []byte) RecordHeader {
	w0 := binary.LittleEndian.Uint64(b[0:8])
	w1 := binary.LittleEndian.Uint64(b[8:16])

	return RecordHeader{
		Unused:       w0&(1<<bitUnused) != 0,
		Valid:        w0&(1<<bitValid) != 0,
		Reserved:     uint32(w0>>reservedShift) & reservedMask,
		ID:           RecordID(w0 >> idShift),
		Size:         uint16(w0 >> sizeShift),
		PartOffset:   uint16(w1),
		PartSize:     uint16(w1 >> partSizeShift),
		PartReserved: uint32(w1 >> partReservedShift),
	}
}

// Fragmented reports whether the record this part belongs to has more than
// one part.
func (h RecordHeader) Fragmented() bool {
	return h.PartOffset != 0 || h.Size != h.PartSize
}

// First reports whether this is the part at offset zero.
func (h RecordHeader) First() bool {
	return h.PartOffset == 0
}

// PhysicalSize is the number of bytes the part occupies on flash.
func (h RecordHeader) PhysicalSize() uint32 {
	return partFootprint(uint32(h.PartSize))
}

// partFootprint returns header + payload + padding for a part of n bytes.
func partFootprint(n uint32) uint32 {
	return RecordHeaderSize + n + pad8(n)
}

// pad8 returns the number of zero bytes that align n to a doubleword.
func pad8(n uint32) uint32 {
	return (8 - n%8) % 8
}

// packWords converts b into little-endian words, zero-padding the tail.
func packWords(dst []uint64, b []byte) {
	var tail [8]byte
	for i := range dst {
		off := i * 8
		if off+8 <= len(b) {
			dst[i] = binary.LittleEndian.Uint64(b[off:])
			continue
		}
		tail = [8]byte{}
		copy(tail[:], b[off:])
		dst[i] = binary.LittleEndian.Uint64(tail[:])
	}
}

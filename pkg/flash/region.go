package flash

import (
	"encoding/binary"
	"fmt"
)

// region implements NOR semantics over a byte slice. Memory and every Image
// area are regions; locking is left to the owner.
type region struct {
	geo  Geometry
	data []byte
}

func (r *region) erase(index uint32) error {
	if index >= r.geo.PageCount {
		return fmt.Errorf("%w: page %d of %d", ErrOutOfRange, index, r.geo.PageCount)
	}
	start := uint64(index) * uint64(r.geo.PageSize)
	page := r.data[start : start+uint64(r.geo.PageSize)]
	for i := range page {
		page[i] = ErasedByte
	}
	return nil
}

func (r *region) read(address uint32, buf []byte) (int, error) {
	if uint64(address) >= uint64(len(r.data)) {
		return 0, fmt.Errorf("%w: read at 0x%x", ErrOutOfRange, address)
	}
	return copy(buf, r.data[address:]), nil
}

func (r *region) write(address uint32, words []uint64) (int, error) {
	if address%WordSize != 0 {
		return 0, fmt.Errorf("%w: 0x%x", ErrUnaligned, address)
	}
	if uint64(address) >= uint64(len(r.data)) {
		return 0, fmt.Errorf("%w: write at 0x%x", ErrOutOfRange, address)
	}

	// Short write at the end of the area
	avail := (uint64(len(r.data)) - uint64(address)) / WordSize
	n := len(words)
	if uint64(n) > avail {
		n = int(avail)
	}

	off := uint64(address)
	for _, w := range words[:n] {
		cur := binary.LittleEndian.Uint64(r.data[off:])
		binary.LittleEndian.PutUint64(r.data[off:], cur&w)
		off += WordSize
	}
	return n, nil
}

// Package flash provides NOR-flash style storage backends.
//
// A backend exposes a fixed number of equally sized pages. Pages are erased
// as a whole (every byte set to 0xFF), read at byte granularity and
// programmed at doubleword (8 byte) granularity. Programming can only clear
// bits: writing a word stores existing & new.
//
// Two implementations are provided:
//   - Memory: a volatile in-process emulation, used by tests and tooling
//   - Image: a persistent mmap-backed file holding two disjoint areas
//     (audit and config), used by the flashaudit CLI
package flash

import (
	"errors"
	"fmt"
)

// WordSize is the programming granularity in bytes.
const WordSize = 8

// ErasedByte is the value of every byte of an erased page.
const ErasedByte = 0xFF

// Backend errors
var (
	// ErrUnaligned is returned when a write address is not word aligned.
	ErrUnaligned = errors.New("flash: unaligned write address")

	// ErrOutOfRange is returned when an address or page index lies outside the area.
	ErrOutOfRange = errors.New("flash: address out of range")

	// ErrClosed is returned when operations are attempted on a closed backend.
	ErrClosed = errors.New("flash: backend is closed")

	// ErrCorrupted is returned when an image file header is invalid.
	ErrCorrupted = errors.New("flash: image file corrupted")

	// ErrVersionMismatch is returned when an image file version doesn't match.
	ErrVersionMismatch = errors.New("flash: image file version mismatch")

	// ErrGeometryMismatch is returned when an existing image has a different geometry.
	ErrGeometryMismatch = errors.New("flash: image geometry mismatch")

	// ErrInvalidGeometry is returned for page sizes that are not a power of two
	// or a zero page count.
	ErrInvalidGeometry = errors.New("flash: invalid geometry")
)

// Backend is the storage contract consumed by the audit engine.
//
// Implementations must behave like NOR flash: ErasePage sets a page to all
// ones and WriteWords only clears bits. Short reads and writes are allowed at
// the end of the area.
type Backend interface {
	// PageSize returns the size of a page in bytes (a power of two).
	PageSize() uint32

	// PageCount returns the number of pages in the area.
	PageCount() uint32

	// ErasePage resets every byte of the page to 0xFF.
	ErasePage(index uint32) error

	// ReadAt copies bytes starting at address into buf and returns the
	// number of bytes read.
	ReadAt(address uint32, buf []byte) (int, error)

	// WriteWords programs whole 64-bit words starting at an 8-byte aligned
	// address and returns the number of words written.
	WriteWords(address uint32, words []uint64) (int, error)
}

// Geometry describes the page layout of an area.
type Geometry struct {
	PageSize  uint32
	PageCount uint32
}

// Size returns the total area size in bytes.
func (g Geometry) Size() uint64 {
	return uint64(g.PageSize) * uint64(g.PageCount)
}

// Validate checks that the page size is a power of two no smaller than a
// word and that there is at least one page.
func (g Geometry) Validate() error {
	if g.PageSize < WordSize || g.PageSize&(g.PageSize-1) != 0 {
		return fmt.Errorf("%w: page size %d is not a power of two >= %d", ErrInvalidGeometry, g.PageSize, WordSize)
	}
	if g.PageCount == 0 {
		return fmt.Errorf("%w: page count must be positive", ErrInvalidGeometry)
	}
	if g.Size() >= 1<<32 {
		return fmt.Errorf("%w: area of %d bytes does not fit 32-bit addressing", ErrInvalidGeometry, g.Size())
	}
	return nil
}

// Area identifies one of the disjoint storage areas of an image.
type Area int

const (
	// AreaAudit holds the audit record log.
	AreaAudit Area = iota
	// AreaConfig is reserved for the key/value configuration store.
	AreaConfig

	areaCount = 2
)

func (a Area) String() string {
	switch a {
	case AreaAudit:
		return "audit"
	case AreaConfig:
		return "config"
	default:
		return fmt.Sprintf("area(%d)", int(a))
	}
}

// ParseArea converts an area name into an Area.
func ParseArea(s string) (Area, error) {
	switch s {
	case "audit", "":
		return AreaAudit, nil
	case "config":
		return AreaConfig, nil
	default:
		return 0, fmt.Errorf("unknown flash area %q (valid: audit, config)", s)
	}
}

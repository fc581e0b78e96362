package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/flashaudit/internal/logger"
	"github.com/marmos91/flashaudit/pkg/flash"
)

// Page size bounds. MaxPartSize (a quarter page) must stay a multiple of 8
// and fit the 16-bit part_size field.
const (
	MinPageSize = 64
	MaxPageSize = 128 * 1024
)

// Store is a log-structured audit record store on a flash backend.
//
// No index is kept in memory: every operation scans the persisted pages.
// All public methods serialize on one mutex, so a Store may be shared
// between goroutines.
type Store struct {
	mu  sync.Mutex
	dev flash.Backend

	pageSize  uint32
	pageCount uint32
	maxPart   uint32

	needsFlush bool
	metrics    Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics attaches a metrics sink. A nil sink disables metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a store over dev. The backend contents are used as-is; an
// erased backend is an empty store.
func New(dev flash.Backend, opts ...Option) (*Store, error) {
	pageSize := dev.PageSize()
	if pageSize < MinPageSize || pageSize > MaxPageSize || pageSize&(pageSize-1) != 0 {
		return nil, fmt.Errorf("%w: page size %d must be a power of two in [%d, %d]",
			flash.ErrInvalidGeometry, pageSize, MinPageSize, MaxPageSize)
	}
	if dev.PageCount() == 0 {
		return nil, fmt.Errorf("%w: page count must be positive", flash.ErrInvalidGeometry)
	}

	s := &Store{
		dev:       dev,
		pageSize:  pageSize,
		pageCount: dev.PageCount(),
		maxPart:   pageSize / 4,
	}
	for _, opt := range opts {
		opt(s)
	}

	logger.Debug("Audit store opened",
		logger.KeyPageSize, s.pageSize,
		logger.KeyPageCount, s.pageCount,
		logger.KeyMaxPart, s.maxPart)

	return s, nil
}

// MaxPartSize returns the largest payload stored in a single part.
func (s *Store) MaxPartSize() uint32 { return s.maxPart }

// PageSize returns the backend page size.
func (s *Store) PageSize() uint32 { return s.pageSize }

// PageCount returns the backend page count.
func (s *Store) PageCount() uint32 { return s.pageCount }

// NeedsFlush reports whether the last Add failed with ErrCtxCheck and no
// Flush has succeeded since.
func (s *Store) NeedsFlush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsFlush
}

// Format erases every page of the area.
func (s *Store) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var err error
	for p := uint32(0); p < s.pageCount; p++ {
		if err = s.erasePage("format", p); err != nil {
			break
		}
	}
	if err == nil {
		s.needsFlush = false
		logger.Info("Audit area formatted", logger.KeyPageCount, s.pageCount)
	}
	s.observe("format", start, err)
	return err
}

// ============================================================================
// Backend access
// ============================================================================

func (s *Store) pageStart(page uint32) uint32 { return page * s.pageSize }
func (s *Store) pageEnd(page uint32) uint32   { return (page + 1) * s.pageSize }

// pageCapacity is the number of record bytes a page can hold.
func (s *Store) pageCapacity() uint32 { return s.pageSize - PageHeaderSize }

func (s *Store) read(op string, page, addr uint32, buf []byte) error {
	n, err := s.dev.ReadAt(addr, buf)
	if err != nil {
		return &StoreError{Op: op, Kind: ErrRead, Page: page, Address: addr, Err: err}
	}
	if n != len(buf) {
		return &StoreError{Op: op, Kind: ErrRead, Page: page, Address: addr,
			Err: fmt.Errorf("short read: %d of %d bytes", n, len(buf))}
	}
	return nil
}

func (s *Store) write(op string, page, addr uint32, words []uint64) error {
	n, err := s.dev.WriteWords(addr, words)
	if err != nil {
		return &StoreError{Op: op, Kind: ErrWrite, Page: page, Address: addr, Err: err}
	}
	if n != len(words) {
		return &StoreError{Op: op, Kind: ErrWrite, Page: page, Address: addr,
			Err: fmt.Errorf("short write: %d of %d words", n, len(words))}
	}
	return nil
}

func (s *Store) erasePage(op string, page uint32) error {
	if err := s.dev.ErasePage(page); err != nil {
		logger.Warn("Flash erase failed", logger.KeyPage, page, logger.KeyError, err)
		return &StoreError{Op: op, Kind: ErrInternal, Page: page, Address: s.pageStart(page), Err: err}
	}
	return nil
}

// markPageUsed programs the used marker into an erased page.
func (s *Store) markPageUsed(op string, page uint32) error {
	return s.write(op, page, s.pageStart(page), []uint64{usedPageHeader})
}

// writePart programs a part header followed by its zero-padded payload.
func (s *Store) writePart(op string, page, addr uint32, hdr RecordHeader, payload []byte) error {
	words := make([]uint64, 2+(len(payload)+7)/8)
	hw := hdr.Words()
	words[0], words[1] = hw[0], hw[1]
	packWords(words[2:], payload)
	return s.write(op, page, addr, words)
}

// ============================================================================
// Metrics plumbing
// ============================================================================

func (s *Store) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOperation(op, time.Since(start), err)
}

func (s *Store) recordBytes(op string, n int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordBytes(op, n)
}

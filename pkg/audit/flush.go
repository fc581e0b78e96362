package audit

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/marmos91/flashaudit/internal/logger"
)

// FlushResult summarizes a Flush call.
type FlushResult struct {
	// Passes is the number of pages cleaned.
	Passes int `json:"passes" yaml:"passes"`
	// PagesErased counts erased source pages.
	PagesErased int `json:"pages_erased" yaml:"pages_erased"`
	// PartsMoved counts valid parts copied off cleaned pages.
	PartsMoved int `json:"parts_moved" yaml:"parts_moved"`
	// BytesReclaimed is the tombstoned bytes dropped.
	BytesReclaimed uint64 `json:"bytes_reclaimed" yaml:"bytes_reclaimed"`
	// Duration is the wall time spent.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Flush compacts the store until no tombstoned part remains.
//
// Each pass picks the page with the most tombstoned bytes. Its valid parts
// are appended to the least-filled tombstone-free page when they fit there,
// otherwise to the first erased page; then the source page is erased.
//
// A failure mid-pass is not rolled back: copied parts may exist twice until
// a later Flush erases the source page. Flush is idempotent; a store with
// nothing to reclaim is left untouched.
func (s *Store) Flush() (FlushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res, err := s.flush()
	res.Duration = time.Since(start)
	s.observe("flush", start, err)
	if s.metrics != nil {
		s.metrics.RecordFlush(res)
	}

	if res.Passes > 0 {
		logger.Info("Audit flush completed",
			logger.KeyPass, res.Passes,
			logger.KeyPagesErased, res.PagesErased,
			logger.KeyParts, res.PartsMoved,
			logger.KeyBytesReclaimed, res.BytesReclaimed,
			logger.KeyDurationMs, logger.Duration(start))
	}
	return res, err
}

func (s *Store) flush() (FlushResult, error) {
	var res FlushResult

	// Every pass erases a page holding tombstones and writes none, so the
	// loop ends within pageCount passes plus the final check.
	for pass := uint32(0); pass <= s.pageCount; pass++ {
		u, err := s.analyze("flush")
		if err != nil {
			return res, err
		}

		clean, defrag, free := pickPages(u.Pages)
		if clean < 0 {
			s.needsFlush = false
			return res, nil
		}

		src := u.Pages[clean]
		var moved int

		switch {
		case src.ValidBytes == 0:
			// Nothing survives; erase directly.
		case defrag >= 0 && u.Pages[defrag].FreeBytes >= src.ValidBytes:
			dst := u.Pages[defrag]
			logger.Debug("Defragmenting page",
				logger.KeyPage, src.Index, logger.KeyTarget, dst.Index, logger.KeyBytes, src.ValidBytes)
			if moved, err = s.copyValid(src.Index, dst.Index, dst.tail); err != nil {
				return res, err
			}
		default:
			if free < 0 {
				return res, &StoreError{Op: "flush", Kind: ErrFlushNoFreePage, Page: src.Index, Address: s.pageStart(src.Index)}
			}
			dst := u.Pages[free]
			logger.Debug("Relocating page",
				logger.KeyPage, src.Index, logger.KeyTarget, dst.Index, logger.KeyBytes, src.ValidBytes)
			if err := s.markPageUsed("flush", dst.Index); err != nil {
				return res, err
			}
			if moved, err = s.copyValid(src.Index, dst.Index, dst.tail); err != nil {
				return res, err
			}
		}

		if err := s.erasePage("flush", src.Index); err != nil {
			return res, err
		}

		res.Passes++
		res.PagesErased++
		res.PartsMoved += moved
		res.BytesReclaimed += uint64(src.TombstonedBytes)
	}

	return res, &StoreError{Op: "flush", Kind: ErrInternal, Err: fmt.Errorf("no convergence after %d passes", res.Passes)}
}

// pickPages selects the page to clean (most tombstoned bytes), the
// defragmentation target (tombstone-free used page with the fewest valid
// bytes) and the first erased page. Missing choices are -1.
func pickPages(pages []PageUsage) (clean, defrag, free int) {
	clean, defrag, free = -1, -1, -1

	for i, p := range pages {
		switch {
		case p.State == PageUnused:
			if free < 0 {
				free = i
			}
		case p.TombstonedBytes > 0:
			if clean < 0 || p.TombstonedBytes > pages[clean].TombstonedBytes {
				clean = i
			}
		default:
			if defrag < 0 || p.ValidBytes < pages[defrag].ValidBytes {
				defrag = i
			}
		}
	}
	return clean, defrag, free
}

// copyValid appends every valid part of page src, header verbatim and
// padded payload, to page dst starting at address at.
func (s *Store) copyValid(src, dst, at uint32) (int, error) {
	moved := 0
	buf := make([]byte, partFootprint(s.maxPart))

	_, err := s.scanRecords("flush", src, func(r recordRef) (bool, error) {
		if !r.hdr.Valid {
			return false, nil
		}

		n := r.hdr.PhysicalSize()
		if n > uint32(len(buf)) {
			buf = make([]byte, n)
		}
		part := buf[:n]
		if err := s.read("flush", src, r.addr, part); err != nil {
			return true, err
		}

		words := make([]uint64, n/8)
		for i := range words {
			words[i] = binary.LittleEndian.Uint64(part[i*8:])
		}
		if err := s.write("flush", dst, at, words); err != nil {
			return true, err
		}

		at += n
		moved++
		return false, nil
	})
	return moved, err
}

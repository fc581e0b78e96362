package audit

import (
	"fmt"
)

// pageRef is a page visited by scanPages.
type pageRef struct {
	index  uint32
	header PageHeader
}

// recordRef is a part header visited by scanRecords.
type recordRef struct {
	page uint32
	addr uint32
	hdr  RecordHeader
}

// scanPages visits every page in index order. Unused pages are skipped
// unless includeUnused is set. fn returns stop=true to end the scan early.
func (s *Store) scanPages(op string, includeUnused bool, fn func(p pageRef) (stop bool, err error)) error {
	var buf [PageHeaderSize]byte

	for page := uint32(0); page < s.pageCount; page++ {
		if err := s.read(op, page, s.pageStart(page), buf[:]); err != nil {
			return err
		}

		hdr := DecodePageHeader(buf[:])
		if hdr.Unused && !includeUnused {
			continue
		}

		stop, err := fn(pageRef{index: page, header: hdr})
		if err != nil || stop {
			return err
		}
	}
	return nil
}

// scanRecords walks the part headers of a used page in address order until
// the end of the page or the first unwritten header. It returns the address
// where the walk stopped, which is the page tail when fn never stops it.
func (s *Store) scanRecords(op string, page uint32, fn func(r recordRef) (stop bool, err error)) (uint32, error) {
	var buf [RecordHeaderSize]byte

	addr := s.pageStart(page) + PageHeaderSize
	end := s.pageEnd(page)

	for addr+RecordHeaderSize <= end {
		if err := s.read(op, page, addr, buf[:]); err != nil {
			return addr, err
		}

		hdr := DecodeRecordHeader(buf[:])
		if hdr.Unused {
			return addr, nil
		}

		next := addr + hdr.PhysicalSize()
		if next > end || hdr.PartSize > hdr.Size {
			return addr, &StoreError{Op: op, Kind: ErrDataCorruption, Page: page, Address: addr,
				Err: fmt.Errorf("part of %d bytes (record %d bytes) overruns page", hdr.PartSize, hdr.Size)}
		}

		if fn != nil {
			stop, err := fn(recordRef{page: page, addr: addr, hdr: hdr})
			if err != nil || stop {
				return addr, err
			}
		}

		addr = next
	}
	return addr, nil
}

// scanValid visits every valid part of every used page in scan order.
func (s *Store) scanValid(op string, fn func(r recordRef) (stop bool, err error)) error {
	return s.scanPages(op, false, func(p pageRef) (bool, error) {
		stopped := false
		_, err := s.scanRecords(op, p.index, func(r recordRef) (bool, error) {
			if !r.hdr.Valid {
				return false, nil
			}
			stop, err := fn(r)
			stopped = stop
			return stop, err
		})
		return stopped, err
	})
}

// pageTail returns the first free address of a used page.
func (s *Store) pageTail(op string, page uint32) (uint32, error) {
	return s.scanRecords(op, page, nil)
}

package audit

import (
	"fmt"
	"time"
)

// Size returns the payload size of record id. It never writes to flash.
func (s *Store) Size(id RecordID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	n, err := s.size(id)
	s.observe("size", start, err)
	return n, err
}

func (s *Store) size(id RecordID) (int, error) {
	if id == 0 {
		return 0, ErrInvalidID
	}

	size := -1
	err := s.scanValid("size", func(r recordRef) (bool, error) {
		if r.hdr.ID != id {
			return false, nil
		}
		size = int(r.hdr.Size)
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return size, nil
}

// RetrieveInto copies the payload of record id into buf and returns the
// number of bytes copied. buf must be at least as long as the record.
func (s *Store) RetrieveInto(id RecordID, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	n, err := s.retrieveInto(id, buf)
	s.observe("retrieve", start, err)
	if err == nil {
		s.recordBytes("retrieve", n)
	}
	return n, err
}

// Retrieve returns a copy of the payload of record id.
func (s *Store) Retrieve(id RecordID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	size, err := s.size(id)
	if err != nil {
		s.observe("retrieve", start, err)
		return nil, err
	}

	buf := make([]byte, size)
	n, err := s.retrieveInto(id, buf)
	s.observe("retrieve", start, err)
	if err != nil {
		return nil, err
	}
	s.recordBytes("retrieve", n)
	return buf[:n], nil
}

func (s *Store) retrieveInto(id RecordID, buf []byte) (int, error) {
	if id == 0 {
		return 0, ErrInvalidID
	}

	var (
		found   bool
		size    uint32
		copied  uint32
		lastErr error
	)

	err := s.scanValid("retrieve", func(r recordRef) (bool, error) {
		if r.hdr.ID != id {
			return false, nil
		}

		if !found {
			found = true
			size = uint32(r.hdr.Size)
			if uint32(len(buf)) < size {
				lastErr = fmt.Errorf("%w: buffer of %d bytes for record of %d bytes", ErrInvalidDataSize, len(buf), size)
				return true, nil
			}
		}

		off, n := uint32(r.hdr.PartOffset), uint32(r.hdr.PartSize)
		if off+n > size {
			return true, &StoreError{Op: "retrieve", Kind: ErrDataCorruption, Page: r.page, Address: r.addr,
				Err: fmt.Errorf("part [%d, %d) outside record of %d bytes", off, off+n, size)}
		}

		if err := s.read("retrieve", r.page, r.addr+RecordHeaderSize, buf[off:off+n]); err != nil {
			return true, err
		}
		copied += n

		return !r.hdr.Fragmented() || copied == size, nil
	})
	if err != nil {
		return int(copied), err
	}
	if lastErr != nil {
		return 0, lastErr
	}
	if !found {
		return 0, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	if copied != size {
		return int(copied), fmt.Errorf("%w: record %d has %d of %d bytes", ErrDataCorruption, id, copied, size)
	}
	return int(copied), nil
}

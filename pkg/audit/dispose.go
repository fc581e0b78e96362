package audit

import (
	"time"

	"github.com/marmos91/flashaudit/internal/logger"
)

// Dispose tombstones every part of record id. The space is reclaimed by the
// next Flush. Disposing an unknown id is a no-op.
func (s *Store) Dispose(id RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.dispose(id)
	s.observe("dispose", start, err)
	return err
}

func (s *Store) dispose(id RecordID) error {
	if id == 0 {
		return ErrInvalidID
	}

	parts := 0
	err := s.scanValid("dispose", func(r recordRef) (bool, error) {
		if r.hdr.ID != id {
			return false, nil
		}

		// is_valid lives in the first doubleword, so one word suffices.
		hdr := r.hdr
		hdr.Valid = false
		if err := s.write("dispose", r.page, r.addr, []uint64{hdr.Words()[0]}); err != nil {
			return true, err
		}
		parts++

		return !r.hdr.Fragmented(), nil
	})
	if err != nil {
		return err
	}

	if parts > 0 {
		logger.Debug("Record disposed", logger.KeyRecordID, id, logger.KeyParts, parts)
	}
	return nil
}

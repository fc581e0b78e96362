package audit

import (
	"fmt"
	"time"
)

// IterBegin returns the id of the first live record in scan order, or 0 if
// the store holds none.
func (s *Store) IterBegin() (RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var first RecordID
	err := s.scanFirstParts("iterate", func(id RecordID) bool {
		first = id
		return true
	})
	s.observe("iterate", start, err)
	if err != nil {
		return 0, err
	}
	return first, nil
}

// IterNext returns the id of the live record that follows previous in scan
// order, or 0 when previous was the last one.
//
// Each call rescans the store. If previous has been disposed or relocated
// since it was returned, IterNext fails with ErrUnknownID; the sequence is a
// snapshot per call, not a stable cursor.
func (s *Store) IterNext(previous RecordID) (RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	next, err := s.iterNext(previous)
	s.observe("iterate", start, err)
	return next, err
}

func (s *Store) iterNext(previous RecordID) (RecordID, error) {
	if previous == 0 {
		return 0, ErrInvalidID
	}

	var (
		passed bool
		next   RecordID
	)
	err := s.scanFirstParts("iterate", func(id RecordID) bool {
		if passed {
			next = id
			return true
		}
		passed = id == previous
		return false
	})
	if err != nil {
		return 0, err
	}
	if !passed {
		return 0, fmt.Errorf("%w: cursor %d", ErrUnknownID, previous)
	}
	return next, nil
}

// IDs returns the ids of all live records in scan order.
func (s *Store) IDs() ([]RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var ids []RecordID
	err := s.scanFirstParts("iterate", func(id RecordID) bool {
		ids = append(ids, id)
		return false
	})
	s.observe("iterate", start, err)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// scanFirstParts calls fn with the id of each valid part at offset zero.
func (s *Store) scanFirstParts(op string, fn func(id RecordID) (stop bool)) error {
	return s.scanValid(op, func(r recordRef) (bool, error) {
		if !r.hdr.First() {
			return false, nil
		}
		return fn(r.hdr.ID), nil
	})
}

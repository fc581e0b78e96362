package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/flashaudit/internal/logger"
)

// addSurvey is what Add learns from its single pass over the store.
type addSurvey struct {
	maxUsed    RecordID
	live       map[RecordID]struct{}
	tombstoned []RecordID // first-seen order
	seenTomb   map[RecordID]struct{}

	freePages   uint32
	reclaimable uint32

	// First used page whose tail fits a single-part record, or -1.
	appendPage int64
	appendAt   uint32
}

// allocateID picks the id for a new record: the first tombstoned id in page
// order that no valid part still uses, else one past the highest valid id,
// else the lowest id not in use.
func (sv *addSurvey) allocateID() (RecordID, error) {
	for _, id := range sv.tombstoned {
		if _, inUse := sv.live[id]; !inUse {
			return id, nil
		}
	}
	if sv.maxUsed < MaxRecordID {
		return sv.maxUsed + 1, nil
	}
	for id := RecordID(1); id < MaxRecordID; id++ {
		if _, inUse := sv.live[id]; !inUse {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: every record id is in use", ErrNoSpaceAvailable)
}

// MaxRecordID is the highest assignable id.
const MaxRecordID RecordID = 0xFFFF

// Add stores data as a new record and returns its id.
//
// Records longer than MaxPartSize are split into parts that may span pages.
// If the record would only fit after compaction, Add writes nothing, sets
// the NeedsFlush flag and fails with ErrCtxCheck; the caller is expected to
// Flush and retry.
func (s *Store) Add(data []byte) (RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	id, err := s.add(data)
	s.observe("add", start, err)
	if err == nil {
		s.recordBytes("add", len(data))
	}
	return id, err
}

func (s *Store) add(data []byte) (RecordID, error) {
	size := uint32(len(data))
	if size == 0 || size > MaxRecordSize {
		return 0, fmt.Errorf("%w: %d bytes (allowed 1..%d)", ErrInvalidDataSize, size, MaxRecordSize)
	}

	numParts := (size + s.maxPart - 1) / s.maxPart
	lastPart := size - (numParts-1)*s.maxPart

	sv, err := s.survey(numParts == 1, partFootprint(size))
	if err != nil {
		return 0, err
	}

	id, err := sv.allocateID()
	if err != nil {
		return 0, err
	}

	if sv.appendPage >= 0 {
		page := uint32(sv.appendPage)
		hdr := newRecordHeader(id, uint16(size), 0, uint16(size))
		if err := s.writePart("add", page, sv.appendAt, hdr, data); err != nil {
			return 0, err
		}
		logger.Debug("Record appended",
			logger.KeyRecordID, id, logger.KeySize, size, logger.KeyPage, page)
		return id, nil
	}

	required := size + numParts*RecordHeaderSize + pad8(lastPart)
	freeBytes := sv.freePages * s.pageCapacity()
	switch {
	case required >= freeBytes+sv.reclaimable:
		return 0, fmt.Errorf("%w: record needs %d bytes, %d free and %d reclaimable",
			ErrNoSpaceAvailable, required, freeBytes, sv.reclaimable)
	case required >= freeBytes:
		s.needsFlush = true
		logger.Debug("Record fits only after flush",
			logger.KeySize, size, logger.KeyRequired, required,
			logger.KeyFree, freeBytes, logger.KeyReclaimable, sv.reclaimable)
		return 0, fmt.Errorf("%w: record needs %d bytes, %d free", ErrCtxCheck, required, freeBytes)
	}

	parts, err := s.place(id, data)
	if err != nil {
		if errors.Is(err, ErrNoSpaceAvailable) && parts > 0 {
			// Tombstone the parts already placed so no truncated record is
			// left visible.
			if derr := s.dispose(id); derr != nil {
				logger.Warn("Failed to discard partial record", logger.KeyRecordID, id, logger.KeyError, derr)
			}
		}
		return 0, err
	}

	logger.Debug("Record added",
		logger.KeyRecordID, id, logger.KeySize, size, logger.KeyParts, parts)
	return id, nil
}

// survey scans every page once, collecting id usage, free pages and
// reclaimable space. When single is set it also remembers the first used
// page whose tail can take footprint bytes.
func (s *Store) survey(single bool, footprint uint32) (*addSurvey, error) {
	sv := &addSurvey{
		live:       make(map[RecordID]struct{}),
		seenTomb:   make(map[RecordID]struct{}),
		appendPage: -1,
	}

	err := s.scanPages("add", true, func(p pageRef) (bool, error) {
		if p.header.Unused {
			sv.freePages++
			return false, nil
		}

		var validBytes, tombBytes uint32
		tail, err := s.scanRecords("add", p.index, func(r recordRef) (bool, error) {
			if r.hdr.Valid {
				validBytes += r.hdr.PhysicalSize()
				sv.live[r.hdr.ID] = struct{}{}
				if r.hdr.ID > sv.maxUsed {
					sv.maxUsed = r.hdr.ID
				}
				return false, nil
			}

			tombBytes += r.hdr.PhysicalSize()
			if _, seen := sv.seenTomb[r.hdr.ID]; !seen {
				sv.seenTomb[r.hdr.ID] = struct{}{}
				sv.tombstoned = append(sv.tombstoned, r.hdr.ID)
			}
			return false, nil
		})
		if err != nil {
			return false, err
		}

		// Compaction turns everything but the live bytes of a page with
		// tombstones back into usable space.
		if tombBytes > 0 {
			sv.reclaimable += s.pageCapacity() - validBytes
		}

		if single && sv.appendPage < 0 && s.pageEnd(p.index)-tail >= footprint {
			sv.appendPage = int64(p.index)
			sv.appendAt = tail
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return sv, nil
}

// slot is where the next part goes.
type slot struct {
	page     uint32
	addr     uint32
	partSize uint32
	fresh    bool // page is erased and needs its header first
}

// findSlot returns the first page, in index order, that is erased, has room
// for a full part of want bytes, or has room for at least a shrunk part.
func (s *Store) findSlot(want uint32) (slot, error) {
	var found slot
	ok := false

	err := s.scanPages("add", true, func(p pageRef) (bool, error) {
		if p.header.Unused {
			found = slot{page: p.index, addr: s.pageStart(p.index) + PageHeaderSize, partSize: want, fresh: true}
			ok = true
			return true, nil
		}

		tail, err := s.pageTail("add", p.index)
		if err != nil {
			return false, err
		}
		free := s.pageEnd(p.index) - tail

		switch {
		case free >= partFootprint(want):
			found = slot{page: p.index, addr: tail, partSize: want}
		case free >= minPartFootprint:
			found = slot{page: p.index, addr: tail, partSize: (free - RecordHeaderSize) &^ 7}
		default:
			return false, nil
		}
		ok = true
		return true, nil
	})
	if err != nil {
		return slot{}, err
	}
	if !ok {
		return slot{}, fmt.Errorf("%w: no page can take a part of %d bytes", ErrNoSpaceAvailable, want)
	}
	return found, nil
}

// place writes the parts of a record and returns how many were written.
func (s *Store) place(id RecordID, data []byte) (int, error) {
	size := uint32(len(data))
	parts := 0

	for offset := uint32(0); offset < size; {
		want := size - offset
		if want > s.maxPart {
			want = s.maxPart
		}

		sl, err := s.findSlot(want)
		if err != nil {
			return parts, err
		}

		if sl.fresh {
			if err := s.markPageUsed("add", sl.page); err != nil {
				return parts, err
			}
		}

		hdr := newRecordHeader(id, uint16(size), uint16(offset), uint16(sl.partSize))
		if err := s.writePart("add", sl.page, sl.addr, hdr, data[offset:offset+sl.partSize]); err != nil {
			return parts, err
		}

		parts++
		offset += sl.partSize
	}
	return parts, nil
}

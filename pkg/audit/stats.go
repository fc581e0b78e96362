package audit

import (
	"time"
)

// PageState is the lifecycle state of a page.
type PageState string

const (
	PageUnused PageState = "unused"
	PageUsed   PageState = "used"
)

// PageUsage describes the occupancy of one page.
type PageUsage struct {
	Index           uint32    `json:"index" yaml:"index"`
	State           PageState `json:"state" yaml:"state"`
	ValidBytes      uint32    `json:"valid_bytes" yaml:"valid_bytes"`
	TombstonedBytes uint32    `json:"tombstoned_bytes" yaml:"tombstoned_bytes"`
	FreeBytes       uint32    `json:"free_bytes" yaml:"free_bytes"`
	ValidParts      int       `json:"valid_parts" yaml:"valid_parts"`
	TombstonedParts int       `json:"tombstoned_parts" yaml:"tombstoned_parts"`

	tail uint32
}

// Usage is a whole-store occupancy report.
type Usage struct {
	PageSize    uint32 `json:"page_size" yaml:"page_size"`
	PageCount   uint32 `json:"page_count" yaml:"page_count"`
	MaxPartSize uint32 `json:"max_part_size" yaml:"max_part_size"`

	UnusedPages int `json:"unused_pages" yaml:"unused_pages"`
	UsedPages   int `json:"used_pages" yaml:"used_pages"`
	LiveRecords int `json:"live_records" yaml:"live_records"`

	ValidBytes      uint64 `json:"valid_bytes" yaml:"valid_bytes"`
	TombstonedBytes uint64 `json:"tombstoned_bytes" yaml:"tombstoned_bytes"`
	FreeBytes       uint64 `json:"free_bytes" yaml:"free_bytes"`
	// ReclaimableBytes is the space a full flush would return: every
	// non-live byte of each page that holds tombstones.
	ReclaimableBytes uint64 `json:"reclaimable_bytes" yaml:"reclaimable_bytes"`

	Pages []PageUsage `json:"pages" yaml:"pages"`
}

// Capacity returns the number of record bytes the area can hold.
func (u *Usage) Capacity() uint64 {
	return uint64(u.PageCount) * uint64(u.PageSize-PageHeaderSize)
}

// NeedsFlush reports whether reclaimable space is at least threshold (a
// fraction of Capacity). Stores without tombstones never need a flush.
func (u *Usage) NeedsFlush(threshold float64) bool {
	if u.TombstonedBytes == 0 {
		return false
	}
	return float64(u.ReclaimableBytes) >= threshold*float64(u.Capacity())
}

// Analyze scans the store and reports per-page and total occupancy.
// It never writes to flash.
func (s *Store) Analyze() (*Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	u, err := s.analyze("analyze")
	s.observe("analyze", start, err)
	if err == nil && s.metrics != nil {
		s.metrics.RecordUsage(u)
	}
	return u, err
}

func (s *Store) analyze(op string) (*Usage, error) {
	u := &Usage{
		PageSize:    s.pageSize,
		PageCount:   s.pageCount,
		MaxPartSize: s.maxPart,
		Pages:       make([]PageUsage, 0, s.pageCount),
	}

	err := s.scanPages(op, true, func(p pageRef) (bool, error) {
		pu := PageUsage{Index: p.index}

		if p.header.Unused {
			pu.State = PageUnused
			pu.FreeBytes = s.pageCapacity()
			pu.tail = s.pageStart(p.index) + PageHeaderSize
			u.UnusedPages++
			u.FreeBytes += uint64(pu.FreeBytes)
			u.Pages = append(u.Pages, pu)
			return false, nil
		}

		pu.State = PageUsed
		tail, err := s.scanRecords(op, p.index, func(r recordRef) (bool, error) {
			if r.hdr.Valid {
				pu.ValidBytes += r.hdr.PhysicalSize()
				pu.ValidParts++
				if r.hdr.First() {
					u.LiveRecords++
				}
			} else {
				pu.TombstonedBytes += r.hdr.PhysicalSize()
				pu.TombstonedParts++
			}
			return false, nil
		})
		if err != nil {
			return false, err
		}

		pu.tail = tail
		pu.FreeBytes = s.pageEnd(p.index) - tail

		u.UsedPages++
		u.ValidBytes += uint64(pu.ValidBytes)
		u.TombstonedBytes += uint64(pu.TombstonedBytes)
		u.FreeBytes += uint64(pu.FreeBytes)
		if pu.TombstonedBytes > 0 {
			u.ReclaimableBytes += uint64(s.pageCapacity() - pu.ValidBytes)
		}
		u.Pages = append(u.Pages, pu)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

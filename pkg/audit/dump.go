package audit

import (
	"time"
)

// PartInfo is a decoded part header and where it lives.
type PartInfo struct {
	Address    uint32   `json:"address" yaml:"address"`
	ID         RecordID `json:"id" yaml:"id"`
	Valid      bool     `json:"valid" yaml:"valid"`
	Size       uint16   `json:"size" yaml:"size"`
	PartOffset uint16   `json:"part_offset" yaml:"part_offset"`
	PartSize   uint16   `json:"part_size" yaml:"part_size"`
}

// PageDump lists the part headers of one page in address order.
type PageDump struct {
	Index uint32     `json:"index" yaml:"index"`
	State PageState  `json:"state" yaml:"state"`
	Tail  uint32     `json:"tail" yaml:"tail"`
	Parts []PartInfo `json:"parts" yaml:"parts"`
}

// Dump decodes every page and part header. It never writes to flash.
func (s *Store) Dump() ([]PageDump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	pages := make([]PageDump, 0, s.pageCount)

	err := s.scanPages("dump", true, func(p pageRef) (bool, error) {
		pd := PageDump{Index: p.index, State: PageUnused, Parts: []PartInfo{}}
		if p.header.Unused {
			pd.Tail = s.pageStart(p.index) + PageHeaderSize
			pages = append(pages, pd)
			return false, nil
		}

		pd.State = PageUsed
		tail, err := s.scanRecords("dump", p.index, func(r recordRef) (bool, error) {
			pd.Parts = append(pd.Parts, PartInfo{
				Address:    r.addr,
				ID:         r.hdr.ID,
				Valid:      r.hdr.Valid,
				Size:       r.hdr.Size,
				PartOffset: r.hdr.PartOffset,
				PartSize:   r.hdr.PartSize,
			})
			return false, nil
		})
		if err != nil {
			return false, err
		}
		pd.Tail = tail
		pages = append(pages, pd)
		return false, nil
	})
	s.observe("dump", start, err)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

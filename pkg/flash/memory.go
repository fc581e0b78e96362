package flash

import (
	"sync"
)

// Memory is a volatile NOR flash emulation backed by a byte slice.
//
// It starts fully erased. Counters for erase and write calls are kept so
// tests can assert that read-only operations never program the flash.
//
// Thread Safety:
// Memory is safe for concurrent use.
type Memory struct {
	mu sync.RWMutex
	r  region

	erases int
	writes int
}

// NewMemory creates an erased in-memory area with the given geometry.
func NewMemory(geo Geometry) (*Memory, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	data := make([]byte, geo.Size())
	for i := range data {
		data[i] = ErasedByte
	}

	return &Memory{r: region{geo: geo, data: data}}, nil
}

// PageSize implements Backend.
func (m *Memory) PageSize() uint32 { return m.r.geo.PageSize }

// PageCount implements Backend.
func (m *Memory) PageCount() uint32 { return m.r.geo.PageCount }

// ErasePage implements Backend.
func (m *Memory) ErasePage(index uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.r.erase(index); err != nil {
		return err
	}
	m.erases++
	return nil
}

// ReadAt implements Backend.
func (m *Memory) ReadAt(address uint32, buf []byte) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.r.read(address, buf)
}

// WriteWords implements Backend.
func (m *Memory) WriteWords(address uint32, words []uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.r.write(address, words)
	if err != nil {
		return 0, err
	}
	m.writes++
	return n, nil
}

// Snapshot returns a copy of the raw area contents.
func (m *Memory) Snapshot() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]byte, len(m.r.data))
	copy(out, m.r.data)
	return out
}

// Counters returns the number of successful erase and write calls so far.
func (m *Memory) Counters() (erases, writes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.erases, m.writes
}

// Ensure Memory implements Backend.
var _ Backend = (*Memory)(nil)

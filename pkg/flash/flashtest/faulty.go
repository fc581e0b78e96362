// Package flashtest provides backend wrappers for exercising flash failure
// paths in tests.
package flashtest

import (
	"errors"
	"sync"

	"github.com/marmos91/flashaudit/pkg/flash"
)

// ErrInjected is the error returned by a Faulty backend once a fault fires.
var ErrInjected = errors.New("flashtest: injected fault")

// Faulty wraps a backend and fails operations on demand.
//
// Each Fail* setter arms a countdown: the operation succeeds n more times and
// then every later call fails with ErrInjected until Reset is called. A
// negative countdown disables the fault.
type Faulty struct {
	flash.Backend

	mu         sync.Mutex
	readsLeft  int
	writesLeft int
	erasesLeft int

	reads, writes, erases int
}

// NewFaulty wraps b with every fault disabled.
func NewFaulty(b flash.Backend) *Faulty {
	return &Faulty{
		Backend:    b,
		readsLeft:  -1,
		writesLeft: -1,
		erasesLeft: -1,
	}
}

// FailReadsAfter makes reads fail after n more successful calls.
func (f *Faulty) FailReadsAfter(n int) {
	f.mu.Lock()
	f.readsLeft = n
	f.mu.Unlock()
}

// FailWritesAfter makes writes fail after n more successful calls.
func (f *Faulty) FailWritesAfter(n int) {
	f.mu.Lock()
	f.writesLeft = n
	f.mu.Unlock()
}

// FailErasesAfter makes erases fail after n more successful calls.
func (f *Faulty) FailErasesAfter(n int) {
	f.mu.Lock()
	f.erasesLeft = n
	f.mu.Unlock()
}

// Reset disables every fault.
func (f *Faulty) Reset() {
	f.mu.Lock()
	f.readsLeft, f.writesLeft, f.erasesLeft = -1, -1, -1
	f.mu.Unlock()
}

// Calls returns how many reads, writes and erases reached the wrapped backend.
func (f *Faulty) Calls() (reads, writes, erases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.writes, f.erases
}

func tick(left *int) bool {
	if *left < 0 {
		return false
	}
	if *left == 0 {
		return true
	}
	*left--
	return false
}

// ReadAt implements flash.Backend.
func (f *Faulty) ReadAt(address uint32, buf []byte) (int, error) {
	f.mu.Lock()
	fail := tick(&f.readsLeft)
	if !fail {
		f.reads++
	}
	f.mu.Unlock()

	if fail {
		return 0, ErrInjected
	}
	return f.Backend.ReadAt(address, buf)
}

// WriteWords implements flash.Backend.
func (f *Faulty) WriteWords(address uint32, words []uint64) (int, error) {
	f.mu.Lock()
	fail := tick(&f.writesLeft)
	if !fail {
		f.writes++
	}
	f.mu.Unlock()

	if fail {
		return 0, ErrInjected
	}
	return f.Backend.WriteWords(address, words)
}

// ErasePage implements flash.Backend.
func (f *Faulty) ErasePage(index uint32) error {
	f.mu.Lock()
	fail := tick(&f.erasesLeft)
	if !fail {
		f.erases++
	}
	f.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return f.Backend.ErasePage(index)
}

// Ensure Faulty implements flash.Backend.
var _ flash.Backend = (*Faulty)(nil)

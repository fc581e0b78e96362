package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlush_EmptyStoreIsNoop(t *testing.T) {
	store, mem := newTestStore(t, testPageSize, testPageCount)
	mustAdd(t, store, []byte("live"))

	_, writesBefore := mem.Counters()
	res, err := store.Flush()
	require.NoError(t, err)
	assert.Zero(t, res.Passes)

	erases, writes := mem.Counters()
	assert.Zero(t, erases)
	assert.Equal(t, writesBefore, writes)
}

func TestFlush_ErasesFullyTombstonedPage(t *testing.T) {
	store, mem := newTestStore(t, testPageSize, testPageCount)
	a := mustAdd(t, store, []byte("first"))
	b := mustAdd(t, store, []byte("second"))
	require.NoError(t, store.Dispose(a))
	require.NoError(t, store.Dispose(b))

	_, writesBefore := mem.Counters()
	res, err := store.Flush()
	require.NoError(t, err)
	assert.Equal(t, FlushResult{Passes: 1, PagesErased: 1, BytesReclaimed: 48, Duration: res.Duration}, res)

	erases, writes := mem.Counters()
	assert.Equal(t, 1, erases)
	assert.Equal(t, writesBefore, writes, "nothing to copy")

	u, err := store.Analyze()
	require.NoError(t, err)
	assert.Equal(t, testPageCount, u.UnusedPages)
}

func TestFlush_RelocatesToFreePage(t *testing.T) {
	store, _ := newTestStore(t, testPageSize, testPageCount)
	for i := range 3 {
		mustAdd(t, store, pattern(10, byte(i)))
	}
	require.NoError(t, store.Dispose(1))

	res, err := store.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 2, res.PartsMoved)

	pages, err := store.Dump()
	require.NoError(t, err)
	assert.Equal(t, PageUnused, pages[0].State)
	require.Equal(t, PageUsed, pages[1].State)
	require.Len(t, pages[1].Parts, 2)
	assert.Equal(t, RecordID(2), pages[1].Parts[0].ID)
	assert.Equal(t, RecordID(3), pages[1].Parts[1].ID)

	for i := range 2 {
		got, err := store.Retrieve(RecordID(i + 2))
		require.NoError(t, err)
		assert.Equal(t, pattern(10, byte(i+1)), got)
	}
}

func TestFlush_DefragmentsIntoLeastFilledPage(t *testing.T) {
	store, _ := newTestStore(t, testPageSize, testPageCount)

	// 85 eight-byte records fill page 0 exactly; the 86th opens page 1.
	for i := range 86 {
		mustAdd(t, store, pattern(8, byte(i)))
	}
	for id := RecordID(1); id <= 80; id++ {
		require.NoError(t, store.Dispose(id))
	}

	res, err := store.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 1, res.PagesErased)
	assert.Equal(t, 5, res.PartsMoved)
	assert.Equal(t, uint64(80*24), res.BytesReclaimed)

	ids, err := store.IDs()
	require.NoError(t, err)
	assert.Equal(t, []RecordID{86, 81, 82, 83, 84, 85}, ids)

	u, err := store.Analyze()
	require.NoError(t, err)
	assert.Equal(t, testPageCount-1, u.UnusedPages)
	assert.Equal(t, PageUnused, u.Pages[0].State)
	assert.Equal(t, 6, u.Pages[1].ValidParts)

	for id := RecordID(81); id <= 86; id++ {
		got, err := store.Retrieve(id)
		require.NoError(t, err)
		assert.Equal(t, pattern(8, byte(id-1)), got)
	}
}

func TestFlush_MovesFragmentedRecords(t *testing.T) {
	store, _ := newTestStore(t, testPageSize, testPageCount)

	gone := mustAdd(t, store, pattern(1000, 1))
	kept := mustAdd(t, store, pattern(3000, 2))
	require.NoError(t, store.Dispose(gone))

	_, err := store.Flush()
	require.NoError(t, err)

	got, err := store.Retrieve(kept)
	require.NoError(t, err)
	assert.Equal(t, pattern(3000, 2), got)

	u, err := store.Analyze()
	require.NoError(t, err)
	assert.Zero(t, u.TombstonedBytes)
	assert.Equal(t, 1, u.LiveRecords)
}

func TestFlush_NoFreePage(t *testing.T) {
	store, _ := newTestStore(t, MinPageSize, 2)

	// Two 24-byte parts per page leave 8 bytes, so page 0 holds ids 1-2
	// and page 1 holds ids 3-4.
	for i := range 4 {
		mustAdd(t, store, pattern(8, byte(i)))
	}
	require.NoError(t, store.Dispose(1))
	require.NoError(t, store.Dispose(3))

	_, err := store.Flush()
	assert.ErrorIs(t, err, ErrFlushNoFreePage)
	assert.Equal(t, "flush_no_free_page", ErrorKind(err))

	// Nothing was lost.
	for _, id := range []RecordID{2, 4} {
		_, err := store.Retrieve(id)
		assert.NoError(t, err)
	}
}

func TestFlush_Idempotent(t *testing.T) {
	store, mem := newTestStore(t, testPageSize, testPageCount)
	for i := range 20 {
		mustAdd(t, store, pattern(100+i*37, byte(i)))
	}
	for id := RecordID(1); id <= 20; id += 3 {
		require.NoError(t, store.Dispose(id))
	}

	_, err := store.Flush()
	require.NoError(t, err)
	snapshot := mem.Snapshot()
	erases, writes := mem.Counters()

	res, err := store.Flush()
	require.NoError(t, err)
	assert.Zero(t, res.Passes)
	assert.Equal(t, snapshot, mem.Snapshot())

	e, w := mem.Counters()
	assert.Equal(t, erases, e)
	assert.Equal(t, writes, w)
}

func TestPickPages(t *testing.T) {
	pages := []PageUsage{
		{Index: 0, State: PageUsed, ValidBytes: 100, TombstonedBytes: 48},
		{Index: 1, State: PageUsed, ValidBytes: 500},
		{Index: 2, State: PageUnused},
		{Index: 3, State: PageUsed, ValidBytes: 40},
		{Index: 4, State: PageUsed, ValidBytes: 10, TombstonedBytes: 96},
		{Index: 5, State: PageUsed, TombstonedBytes: 96},
		{Index: 6, State: PageUnused},
	}

	clean, defrag, free := pickPages(pages)
	assert.Equal(t, 4, clean, "most tombstoned bytes, first wins ties")
	assert.Equal(t, 3, defrag)
	assert.Equal(t, 2, free)

	clean, defrag, free = pickPages([]PageUsage{{State: PageUsed, ValidBytes: 8}})
	assert.Equal(t, -1, clean)
	assert.Equal(t, 0, defrag)
	assert.Equal(t, -1, free)
}

// ============================================================================
// Add and Flush together
// ============================================================================

func TestAdd_RequiresFlushThenFits(t *testing.T) {
	store, _ := newTestStore(t, testPageSize, testPageCount)

	for i := 1; i <= 5; i++ {
		assert.Equal(t, RecordID(i), mustAdd(t, store, pattern(i, 0)))
	}

	id, err := store.IterBegin()
	require.NoError(t, err)
	for want := RecordID(1); want <= 5; want++ {
		assert.Equal(t, want, id)
		id, err = store.IterNext(id)
		require.NoError(t, err)
	}
	assert.Zero(t, id)

	for id := RecordID(1); id <= 5; id++ {
		require.NoError(t, store.Dispose(id))
	}
	first, err := store.IterBegin()
	require.NoError(t, err)
	assert.Zero(t, first)

	// 60 parts need 31680 bytes; 30600 are free and 2040 reclaimable.
	big := pattern(30720, 0x3C)
	_, err = store.Add(big)
	assert.ErrorIs(t, err, ErrCtxCheck)
	assert.True(t, store.NeedsFlush())

	_, err = store.Flush()
	require.NoError(t, err)
	assert.False(t, store.NeedsFlush())

	id, err = store.Add(big)
	require.NoError(t, err)
	assert.Equal(t, RecordID(1), id)

	got, err := store.Retrieve(id)
	require.NoError(t, err)
	assert.Equal(t, big, got)
}

func TestAdd_NoSpaceEvenAfterFlush(t *testing.T) {
	store, mem := newTestStore(t, testPageSize, testPageCount)
	for i := 1; i <= 5; i++ {
		mustAdd(t, store, pattern(i, 0))
	}
	for id := RecordID(1); id <= 5; id++ {
		require.NoError(t, store.Dispose(id))
	}

	huge := pattern(32768, 1)
	_, writes := mem.Counters()

	_, err := store.Add(huge)
	assert.ErrorIs(t, err, ErrNoSpaceAvailable)
	assert.False(t, store.NeedsFlush())

	_, w := mem.Counters()
	assert.Equal(t, writes, w)

	_, err = store.Flush()
	require.NoError(t, err)
	_, err = store.Add(huge)
	assert.ErrorIs(t, err, ErrNoSpaceAvailable)
}

func TestFormat(t *testing.T) {
	store, mem := newTestStore(t, testPageSize, 4)
	mustAdd(t, store, pattern(3000, 1))

	require.NoError(t, store.Format())

	erases, _ := mem.Counters()
	assert.Equal(t, 4, erases)

	ids, err := store.IDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, RecordID(1), mustAdd(t, store, []byte("fresh")))
}

package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	store, _ := newTestStore(t, testPageSize, 4)

	pages, err := store.Dump()
	require.NoError(t, err)
	require.Len(t, pages, 4)
	for i, pg := range pages {
		assert.Equal(t, uint32(i), pg.Index)
		assert.Equal(t, PageUnused, pg.State)
		assert.NotNil(t, pg.Parts)
		assert.Equal(t, uint32(i)*testPageSize+PageHeaderSize, pg.Tail)
	}

	mustAdd(t, store, []byte("a"))
	mustAdd(t, store, pattern(600, 1))
	require.NoError(t, store.Dispose(1))

	pages, err = store.Dump()
	require.NoError(t, err)

	assert.Equal(t, PageUsed, pages[0].State)
	assert.Equal(t, []PartInfo{
		{Address: 8, ID: 1, Valid: false, Size: 1, PartOffset: 0, PartSize: 1},
		{Address: 32, ID: 2, Valid: true, Size: 600, PartOffset: 0, PartSize: 512},
		{Address: 560, ID: 2, Valid: true, Size: 600, PartOffset: 512, PartSize: 88},
	}, pages[0].Parts)
	assert.Equal(t, uint32(664), pages[0].Tail)
}

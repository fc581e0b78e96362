package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableData(t *testing.T) {
	table := NewTableData("ID", "Size")

	assert.Equal(t, []string{"ID", "Size"}, table.Headers())
	assert.Empty(t, table.Rows())

	table.AddRow("1", "128")
	table.AddRow("2", "4096")

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2", "4096"}, rows[1])
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Page", "State", "Valid bytes")
	table.AddRow("0", "used", "1976")
	table.AddRow("1", "unused", "0")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "PAGE")
	assert.Contains(t, out, "VALID BYTES")
	assert.Contains(t, out, "1976")
	assert.Contains(t, out, "unused")
}

func TestPrintPairs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintPairs(&buf, [][2]string{
		{"Page size", "2048"},
		{"Live records", "7"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Page size")
	assert.Contains(t, out, "2048")
	assert.Contains(t, out, "Live records")
}

package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type pageRow struct {
	Index int    `json:"index" yaml:"index"`
	State string `json:"state" yaml:"state"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON, false)
	assert.True(t, p.Structured())

	require.NoError(t, p.Print([]pageRow{{0, "used"}, {1, "unused"}}))

	var got []pageRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []pageRow{{0, "used"}, {1, "unused"}}, got)
}

func TestPrinterYAML(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatYAML, false)

	require.NoError(t, p.Print(pageRow{Index: 3, State: "used"}))

	var got pageRow
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, pageRow{Index: 3, State: "used"}, got)
}

func TestPrinterTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	assert.False(t, p.Structured())

	require.NoError(t, p.Print(map[string]int{"pages": 16}))
	assert.JSONEq(t, `{"pages":16}`, buf.String())
}

func TestPrinterMessages(t *testing.T) {
	var plain bytes.Buffer
	p := NewPrinter(&plain, FormatTable, false)
	p.Success("Formatted 16 pages")
	p.Warning("Flush recommended")
	p.Printf("%d records\n", 2)
	assert.Equal(t, "Formatted 16 pages\nFlush recommended\n2 records\n", plain.String())

	var colored bytes.Buffer
	NewPrinter(&colored, FormatTable, true).Success("ok")
	assert.Equal(t, "\033[32mok\033[0m\n", colored.String())
}

func TestPrinterUnknownFormat(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, Format("csv"), false)
	assert.Error(t, p.Print(1))
}

package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecodeCSV_RowsKeyedByHeader(t *testing.T) {
	input := "map_number,Name,BR_CODE\n" +
		"20230001,Patel Raj,06\n" +
		"\n" +
		",,\n" +
		"20230002,\"Shah, Anil\",16\n"

	table, err := DecodeCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"map_number", "Name", "BR_CODE"}, table.Header.Names())
	require.Len(t, table.Rows, 2)

	first, second := table.Rows[0], table.Rows[1]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "20230001", first.Get("map_number"))
	assert.Equal(t, "Patel Raj", first.Get("Name"))

	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 5, second.Line)
	assert.Equal(t, "Shah, Anil", second.Get("Name"))
	assert.Equal(t, "", second.Get("missing"))
}

func TestDecodeCSV_HeaderIsCaseSensitive(t *testing.T) {
	table, err := DecodeCSV(strings.NewReader("Name,name\nA,B\n"))
	require.NoError(t, err)

	assert.Equal(t, "A", table.Rows[0].Get("Name"))
	assert.Equal(t, "B", table.Rows[0].Get("name"))
}

func TestDecodeCSV_ShortRows(t *testing.T) {
	table, err := DecodeCSV(strings.NewReader("a,b,c\n1\n"))
	require.NoError(t, err)

	assert.Equal(t, "1", table.Rows[0].Get("a"))
	assert.Equal(t, "", table.Rows[0].Get("c"))
	assert.Equal(t, map[string]string{"a": "1", "b": "", "c": ""}, table.Rows[0].Map())
}

func TestDecodeCSV_BOMAndInvalidUTF8(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name,BR_CODE\nR\xffj,06\n")...)

	table, err := DecodeCSV(bytes.NewReader(input))
	require.NoError(t, err)

	assert.True(t, table.Header.Has("Name"))
	assert.Equal(t, "R?j", table.Rows[0].Get("Name"))
}

func TestDecodeCSV_Empty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no bytes", ""},
		{"only blank lines", "\n\n  \n"},
		{"header only", "map_number,Name\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrEmpty)
		})
	}
}

func TestDecode_MaxBytes(t *testing.T) {
	input := "a,b\n" + strings.Repeat("1,2\n", 1000)

	_, err := Decode(strings.NewReader(input), Options{MaxBytes: 100})
	assert.True(t, errors.Is(err, ErrTooLarge), "got %v", err)
}

func TestDecode_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"map_number", "Name"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"20230001", "Patel Raj"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	// Detected from the zip signature without a file name.
	table, err := Decode(bytes.NewReader(buf.Bytes()), Options{})
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, 1, table.Rows[0].Number)
	assert.Equal(t, 3, table.Rows[0].Line)
	assert.Equal(t, "Patel Raj", table.Rows[0].Get("Name"))
}

func TestDecode_FormatByExtension(t *testing.T) {
	_, err := Decode(strings.NewReader("a,b\n1,2\n"), Options{FileName: "roster.xlsx"})
	assert.ErrorIs(t, err, ErrInvalid)

	table, err := Decode(strings.NewReader("a,b\n1,2\n"), Options{FileName: "roster.CSV"})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, ParseFormat("CSV"))
	assert.Equal(t, FormatXLSX, ParseFormat(" xlsx "))
	assert.Equal(t, FormatAuto, ParseFormat("pdf"))
	assert.Equal(t, "xlsx", FormatXLSX.String())
}

func TestHeaderMissing(t *testing.T) {
	h := NewHeader([]string{" map_number ", "Name"})
	assert.Equal(t, []string{"BR_CODE"}, h.Missing("map_number", "Name", "BR_CODE"))
	assert.Empty(t, h.Missing("map_number"))
}

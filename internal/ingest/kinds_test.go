package ingest

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/milavdabgar/gpp-ingest/internal/tabular"
	"github.com/milavdabgar/gpp-ingest/internal/widerow"
)

func TestKinds(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, KindResults, kinds[0].Kind)
	assert.Equal(t, KindStudents, kinds[1].Kind)

	info, ok := LookupKind(KindStudents)
	require.True(t, ok)
	assert.Equal(t, []string{ColMapNumber, ColName, ColBranchCode}, info.Required)

	_, ok = LookupKind("grades")
	assert.False(t, ok)

	assert.Panics(t, func() { RegisterKind(KindInfo{Kind: KindResults}) })
}

func TestWriteTemplate_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, KindResults, tabular.FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, widerow.Header(), records[0])
	assert.Len(t, records[0], 14+widerow.SubjectSlots*7+8)
}

func TestWriteTemplate_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, KindStudents, tabular.FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, RosterColumns(), rows[0])
}

func TestWriteTemplate_UnknownKind(t *testing.T) {
	err := WriteTemplate(&bytes.Buffer{}, "grades", tabular.FormatCSV)
	assert.ErrorContains(t, err, "unknown import kind")
}

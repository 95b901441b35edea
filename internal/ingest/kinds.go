package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/milavdabgar/gpp-ingest/internal/tabular"
	"github.com/milavdabgar/gpp-ingest/internal/widerow"
)

// Kind names a type of import run.
type Kind string

const (
	KindResults    Kind = "results"
	KindStudents   Kind = "students"
	KindRosterSync Kind = "roster-sync"
)

// KindInfo describes an importable extract.
type KindInfo struct {
	Kind     Kind
	Label    string
	Columns  func() []string // full header in template order
	Required []string        // columns that must be present
}

var (
	kinds   = make(map[Kind]KindInfo)
	kindsMu sync.RWMutex
)

// RegisterKind adds an extract description. It panics on a repeated kind.
func RegisterKind(info KindInfo) {
	kindsMu.Lock()
	defer kindsMu.Unlock()

	if _, exists := kinds[info.Kind]; exists {
		panic(fmt.Sprintf("import kind already registered: %s", info.Kind))
	}
	kinds[info.Kind] = info
}

// LookupKind returns the description of kind.
func LookupKind(kind Kind) (KindInfo, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	info, ok := kinds[kind]
	return info, ok
}

// Kinds returns every registered extract, sorted by kind.
func Kinds() []KindInfo {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	out := make([]KindInfo, 0, len(kinds))
	for _, info := range kinds {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func init() {
	RegisterKind(KindInfo{
		Kind:     KindResults,
		Label:    "Exam results (wide format)",
		Columns:  widerow.Header,
		Required: widerow.RequiredColumns,
	})
	RegisterKind(KindInfo{
		Kind:     KindStudents,
		Label:    "Student roster",
		Columns:  RosterColumns,
		Required: rosterRequired,
	})
}

// WriteTemplate writes a header-only file for kind.
func WriteTemplate(w io.Writer, kind Kind, format tabular.Format) error {
	info, ok := LookupKind(kind)
	if !ok {
		return fmt.Errorf("unknown import kind %q", kind)
	}
	header := info.Columns()

	if format != tabular.FormatXLSX {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}

	f := excelize.NewFile()
	defer f.Close()
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &cells); err != nil {
		return fmt.Errorf("write template header: %w", err)
	}
	_, err := f.WriteTo(w)
	return err
}

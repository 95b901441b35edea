// Package tabular decodes uploaded extracts into ordered rows keyed by header
// name.
//
// The first non-blank record is the header. Data rows are numbered from 1 in
// the order they were decoded, which is the numbering used in every import
// diagnostic. Fully blank records are dropped before numbering.
//
// Both comma separated text and XLSX workbooks (first sheet) are supported.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmpty means the input has no header or no data rows.
	ErrEmpty = errors.New("empty file: no data rows")

	// ErrInvalid means the input could not be decoded at all.
	ErrInvalid = errors.New("invalid csv")
)

// Format identifies the container of an upload.
type Format int

const (
	FormatAuto Format = iota
	FormatCSV
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "auto"
	}
}

// ParseFormat converts "csv" or "xlsx" to a Format. Anything else is FormatAuto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV
	case "xlsx":
		return FormatXLSX
	default:
		return FormatAuto
	}
}

// zipMagic starts every XLSX workbook.
var zipMagic = []byte("PK\x03\x04")

// Options controls decoding.
type Options struct {
	// FileName is used to detect the format when Format is FormatAuto.
	FileName string

	// Format forces a container format.
	Format Format

	// MaxBytes rejects inputs larger than this many bytes (0 = unlimited).
	MaxBytes int64
}

// Header maps column names to positions. Names are matched case-sensitively.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a header from column names. Surrounding whitespace is
// trimmed and the first occurrence of a repeated name wins.
func NewHeader(names []string) *Header {
	h := &Header{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		h.names[i] = name
		if _, dup := h.index[name]; !dup && name != "" {
			h.index[name] = i
		}
	}
	return h
}

// Names returns the column names in file order.
func (h *Header) Names() []string {
	return h.names
}

// Has reports whether the header contains name.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Missing returns the names in required that the header lacks.
func (h *Header) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !h.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Row is one decoded data row.
type Row struct {
	// Number is the 1-based position of the row among data rows.
	Number int

	// Line is the line (CSV) or sheet row (XLSX) the row started on.
	Line int

	header *Header
	values []string
}

// NewRow builds a row from values aligned with header.
func NewRow(header *Header, number int, values []string) Row {
	return Row{Number: number, Line: number + 1, header: header, values: values}
}

// Get returns the raw value of column name, or "" when the column is absent
// or the row is short.
func (r Row) Get(name string) string {
	i, ok := r.header.index[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// Map returns the row as a header name to value map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.header.names))
	for name, i := range r.header.index {
		if i < len(r.values) {
			m[name] = r.values[i]
		} else {
			m[name] = ""
		}
	}
	return m
}

// Table is a decoded upload.
type Table struct {
	Header *Header
	Rows   []Row
}

// Decode reads an upload in the requested or detected format.
//
// Returned errors wrap ErrEmpty, ErrInvalid or ErrTooLarge. None of them is
// row-specific: a caller should abort the import.
func Decode(r io.Reader, opts Options) (*Table, error) {
	format := opts.Format
	br := bufio.NewReader(r)
	if format == FormatAuto {
		format = detect(opts.FileName, br)
	}

	if format == FormatXLSX {
		return decodeXLSX(br, opts.MaxBytes)
	}
	return decodeCSV(br, opts.MaxBytes)
}

func detect(fileName string, br *bufio.Reader) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	head, _ := br.Peek(len(zipMagic))
	if bytes.Equal(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// DecodeCSV reads comma separated text.
func DecodeCSV(r io.Reader) (*Table, error) {
	return decodeCSV(r, 0)
}

func decodeCSV(r io.Reader, maxBytes int64) (*Table, error) {
	clean, err := newCleanReader(r, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cr := csv.NewReader(clean)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		header *Header
		rows   []Row
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if header == nil {
			header = NewHeader(record)
			continue
		}
		row := NewRow(header, len(rows)+1, record)
		row.Line = line
		rows = append(rows, row)
	}

	return finish(header, rows)
}

// DecodeXLSX reads the first sheet of a workbook.
func DecodeXLSX(r io.Reader) (*Table, error) {
	return decodeXLSX(r, 0)
}

func decodeXLSX(r io.Reader, maxBytes int64) (*Table, error) {
	f, err := excelize.OpenReader(&limitReader{r: r, max: maxBytes})
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: open workbook: %v", ErrInvalid, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmpty
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalid, sheet, err)
	}

	var (
		header *Header
		rows   []Row
	)
	for i, record := range records {
		if isBlank(record) {
			continue
		}
		if header == nil {
			header = NewHeader(record)
			continue
		}
		row := NewRow(header, len(rows)+1, record)
		row.Line = i + 1
		rows = append(rows, row)
	}

	return finish(header, rows)
}

func finish(header *Header, rows []Row) (*Table, error) {
	if header == nil || len(rows) == 0 {
		return nil, ErrEmpty
	}
	return &Table{Header: header, Rows: rows}, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

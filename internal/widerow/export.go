package widerow

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
)

// ExportSheet is the worksheet name used for XLSX exports.
const ExportSheet = "Results"

// Writer streams exam results in the wide format.
type Writer interface {
	Write(r *domain.ExamResult) error
	Close() error
}

// NewWriter returns a Writer for format. FormatAuto writes CSV.
// The header is written before the first record.
func NewWriter(w io.Writer, format tabular.Format) (Writer, error) {
	if format == tabular.FormatXLSX {
		return newXLSXWriter(w)
	}
	return newCSVWriter(w)
}

type csvWriter struct {
	w *csv.Writer
}

func newCSVWriter(w io.Writer) (*csvWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &csvWriter{w: cw}, nil
}

func (c *csvWriter) Write(r *domain.ExamResult) error {
	row, err := Denormalize(r)
	if err != nil {
		return err
	}
	return c.w.Write(row)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

type xlsxWriter struct {
	out  io.Writer
	file *excelize.File
	sw   *excelize.StreamWriter
	row  int
}

func newXLSXWriter(w io.Writer) (*xlsxWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open stream writer: %w", err)
	}
	x := &xlsxWriter{out: w, file: f, sw: sw}
	if err := x.writeRow(Header()); err != nil {
		f.Close()
		return nil, err
	}
	return x, nil
}

func (x *xlsxWriter) writeRow(values []string) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return x.sw.SetRow(cell, cells)
}

func (x *xlsxWriter) Write(r *domain.ExamResult) error {
	row, err := Denormalize(r)
	if err != nil {
		return err
	}
	return x.writeRow(row)
}

func (x *xlsxWriter) Close() error {
	defer x.file.Close()
	if err := x.sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := x.file.WriteTo(x.out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

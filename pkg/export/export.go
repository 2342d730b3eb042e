// Package export writes extracted records as spreadsheets or line-delimited
// JSON. Every format uses the legacy slot keys (F1_ISBN ... F11_DDC) as
// column names, preceded by ID and Source.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/coolbeans/marcx/pkg/extract"
)

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "Records"

// Row is one exported record.
type Row struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Record extract.Record `json:"record"`
}

// Header returns the column names shared by the tabular formats.
func Header() []string {
	return append([]string{"ID", "Source"}, extract.Keys()...)
}

func (r Row) cells() []string {
	return append([]string{r.ID, r.Source}, r.Record.Values()...)
}

// WriteXLSX writes rows to w as an XLSX workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than leaving an empty Sheet1 behind.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := writeSheetRow(f, 1, Header()); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, i+2, row.cells()); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38) // uuid
	_ = f.SetColWidth(SheetName, "B", "B", 30)
	_ = f.SetColWidth(SheetName, "C", "M", 28)
	_ = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", n, err)
	}
	return nil
}

// WriteCSV writes rows to w as CSV with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.cells()); err != nil {
			return fmt.Errorf("csv row %s: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONLines writes one JSON object per row, keeping slot statuses.
func WriteJSONLines(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("jsonl row %s: %w", row.ID, err)
		}
	}
	return nil
}

// Writer writes rows in one format.
type Writer func(w io.Writer, rows []Row) error

// Formats maps format names to writers.
var Formats = map[string]Writer{
	"xlsx":  WriteXLSX,
	"csv":   WriteCSV,
	"jsonl": WriteJSONLines,
}

// Lookup returns the writer for format.
func Lookup(format string) (Writer, error) {
	w, ok := Formats[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (want xlsx, csv or jsonl)", format)
	}
	return w, nil
}

package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mareero-backend/internal/models"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrNoHeader is returned when no sheet carries a recognizable record header.
var ErrNoHeader = errors.New("no sheet with a record header found")

const maxLegacyRows = 100000

var timestampLayouts = []string{
	models.TimestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// headerAliases maps normalized header text to a record field index.
var headerAliases = map[string]int{
	"date": 0, "timestamp": 0, "time": 0,
	"branch": 1, "laanta": 1,
	"employee": 2, "staff": 2, "name": 2,
	"category": 3, "type": 3, "report type": 3,
	"item": 4, "item name": 4, "alaabta": 4,
	"note": 5, "notes": 5, "faahfaahin": 5,
}

// ReadFile parses an uploaded workbook, choosing the decoder by extension.
func ReadFile(filename string, data []byte, loc *time.Location) ([]models.Record, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return ReadXLS(bytes.NewReader(data), loc)
	case ".xlsx":
		return ReadXLSX(bytes.NewReader(data), loc)
	default:
		return nil, fmt.Errorf("unsupported workbook type %q", filepath.Ext(filename))
	}
}

// ReadXLSX collects records from every sheet of an .xlsx workbook, so a
// per-branch export reads back as one table. Fully blank rows are dropped.
func ReadXLSX(r io.Reader, loc *time.Location) ([]models.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sheets [][][]string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, rows)
	}
	return parseSheets(sheets, loc)
}

// ReadXLS reads legacy .xls workbooks.
func ReadXLS(r io.ReadSeeker, loc *time.Location) ([]models.Record, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoHeader
	}
	rows := wb.ReadAllCells(maxLegacyRows)
	return parseSheets([][][]string{rows}, loc)
}

func parseSheets(sheets [][][]string, loc *time.Location) ([]models.Record, error) {
	out := []models.Record{}
	found, sawContent := false, false
	for _, rows := range sheets {
		if len(rows) == 0 {
			continue
		}
		sawContent = true
		index, ok := headerIndex(rows[0])
		if !ok {
			continue
		}
		found = true
		for _, row := range rows[1:] {
			rec := recordFromRow(row, index, loc)
			if rec.IsBlank() {
				continue
			}
			out = append(out, rec)
		}
	}
	if sawContent && !found {
		return nil, ErrNoHeader
	}
	return out, nil
}

// headerIndex maps field index to column index. A header needs at least the
// item and employee columns.
func headerIndex(header []string) ([]int, bool) {
	index := []int{-1, -1, -1, -1, -1, -1}
	for col, h := range header {
		field, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if ok && index[field] < 0 {
			index[field] = col
		}
	}
	return index, index[2] >= 0 && index[4] >= 0
}

func recordFromRow(row []string, index []int, loc *time.Location) models.Record {
	cell := func(field int) string {
		col := index[field]
		if col < 0 || col >= len(row) {
			return ""
		}
		v := strings.TrimSpace(row[col])
		if v == models.Placeholder {
			return ""
		}
		return v
	}
	return models.Record{
		Timestamp: ParseTimestamp(cell(0), loc),
		Branch:    cell(1),
		Employee:  cell(2),
		Category:  cell(3),
		Item:      cell(4),
		Note:      cell(5),
	}
}

// ParseTimestamp accepts the stored layout, a few common variants and Excel
// date serials. Unparseable values yield the zero time.
func ParseTimestamp(v string, loc *time.Location) time.Time {
	if v == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t
		}
	}
	if t, ok := excelSerial(v, loc); ok {
		return t
	}
	return time.Time{}
}

func excelSerial(v string, loc *time.Location) (time.Time, bool) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(n, false)
	if err != nil {
		return time.Time{}, false
	}
	// Serials carry wall-clock time without a zone.
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
}

// Package workbook turns record snapshots into .xlsx workbooks and back.
package workbook

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"mareero-backend/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	DefaultExportSheet = "Report"
	maxColumnWidth     = 60
	tableStyle         = "TableStyleMedium2"

	headerFill    = "0F172A"
	duplicateFill = "FFEB9C"
	missingFill   = "FFC7CE"
	urgentFill    = "FCD5B4"
)

// Exporter writes a record snapshot to a workbook. SplitByBranch is the
// enhanced-mode capability, decided once at startup.
type Exporter struct {
	SplitByBranch bool
	SheetName     string
	Catalog       models.Catalog
	Log           *zap.Logger
}

// Export returns the whole workbook buffered and positioned at the start.
// The enhanced layout falls back to a single sheet when it cannot be built.
func (e *Exporter) Export(records []models.Record) (*bytes.Reader, error) {
	if e.SplitByBranch && len(records) > 0 {
		out, err := e.exportByBranch(records)
		if err == nil {
			return out, nil
		}
		e.logger().Warn("per-branch export unavailable, writing a single sheet", zap.Error(err))
	}
	return e.exportSingle(records)
}

func (e *Exporter) exportSingle(records []models.Record) (*bytes.Reader, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := e.SheetName
	if sheet == "" {
		sheet = DefaultExportSheet
	}
	sheet = SanitizeSheetName(sheet)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, sheet, records); err != nil {
		return nil, err
	}
	return finish(f)
}

func (e *Exporter) exportByBranch(records []models.Record) (*bytes.Reader, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	dupStyle, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{duplicateFill}},
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate style: %w", err)
	}
	missingStyle, err := f.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{missingFill}},
	})
	if err != nil {
		return nil, fmt.Errorf("missing style: %w", err)
	}
	urgentStyle, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{urgentFill}},
	})
	if err != nil {
		return nil, fmt.Errorf("urgent style: %w", err)
	}

	missing := e.Catalog.ValuesWithFlag(models.CategoryFlagMissing)
	urgent := e.Catalog.ValuesWithFlag(models.CategoryFlagUrgent)

	branches, groups := groupByBranch(records)
	used := make(map[string]bool, len(branches))
	lastCol := columnName(len(models.RecordColumns))

	for i, branch := range branches {
		sheet := uniqueSheetName(SanitizeSheetName(branch), used)
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), sheet)
		} else {
			_, err = f.NewSheet(sheet)
		}
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}

		rows := groups[branch]
		if err := writeSheet(f, sheet, rows); err != nil {
			return nil, err
		}
		last := len(rows) + 1

		if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
			return nil, fmt.Errorf("style header of %q: %w", sheet, err)
		}
		if err := f.AddTable(sheet, &excelize.Table{
			Range:     fmt.Sprintf("A1:%s%d", lastCol, last),
			Name:      fmt.Sprintf("Records_%d", i+1),
			StyleName: tableStyle,
		}); err != nil {
			return nil, fmt.Errorf("table on %q: %w", sheet, err)
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("freeze header of %q: %w", sheet, err)
		}

		flags := flagSheet(rows, missing, urgent)
		var rules []excelize.ConditionalFormatOptions
		if flags.missing {
			rules = append(rules, excelize.ConditionalFormatOptions{Type: "formula", Criteria: categoryFormula(missing), Format: &missingStyle})
		}
		if flags.urgent {
			rules = append(rules, excelize.ConditionalFormatOptions{Type: "formula", Criteria: categoryFormula(urgent), Format: &urgentStyle})
		}
		if flags.duplicates {
			rules = append(rules, excelize.ConditionalFormatOptions{
				Type:     "formula",
				Criteria: fmt.Sprintf("COUNTIF($E$2:$E$%d,$E2)>1", last),
				Format:   &dupStyle,
			})
		}
		if len(rules) == 0 {
			continue
		}
		if err := f.SetConditionalFormat(sheet, fmt.Sprintf("A2:%s%d", lastCol, last), rules); err != nil {
			return nil, fmt.Errorf("highlight rules on %q: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)
	return finish(f)
}

func (e *Exporter) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// writeSheet writes the header and one row per record, then sizes columns
// to the longest value.
func writeSheet(f *excelize.File, sheet string, records []models.Record) error {
	widths := make([]int, len(models.RecordColumns))
	header := make([]interface{}, len(models.RecordColumns))
	for i, h := range models.RecordColumns {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		fields := r.Fields()
		row := make([]interface{}, len(fields))
		for j, v := range fields {
			v = models.OrPlaceholder(v)
			row[j] = v
			if n := utf8.RuneCountInString(v); n > widths[j] {
				widths[j] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	for i, w := range widths {
		col := columnName(i + 1)
		width := w + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}
	return nil
}

func finish(f *excelize.File) (*bytes.Reader, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}

// groupByBranch returns sorted branch keys and the records of each, in
// snapshot order.
func groupByBranch(records []models.Record) ([]string, map[string][]models.Record) {
	groups := make(map[string][]models.Record)
	for _, r := range records {
		key := strings.TrimSpace(r.Branch)
		groups[key] = append(groups[key], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

type sheetFlags struct {
	duplicates bool
	missing    bool
	urgent     bool
}

// flagSheet reports which highlight rules have something to mark in one
// sheet. Items are compared as written to the cells and case-insensitively,
// the way COUNTIF matches them.
func flagSheet(records []models.Record, missing, urgent []string) sheetFlags {
	var flags sheetFlags
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		item := strings.ToLower(models.OrPlaceholder(r.Item))
		if seen[item] {
			flags.duplicates = true
		}
		seen[item] = true
		if contains(missing, r.Category) {
			flags.missing = true
		}
		if contains(urgent, r.Category) {
			flags.urgent = true
		}
	}
	return flags
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func categoryFormula(values []string) string {
	if len(values) == 0 {
		return ""
	}
	terms := make([]string, len(values))
	for i, v := range values {
		terms[i] = fmt.Sprintf(`$D2="%s"`, strings.ReplaceAll(v, `"`, `""`))
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return "OR(" + strings.Join(terms, ",") + ")"
}

func columnName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

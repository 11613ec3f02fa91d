package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"mareero-backend/internal/chart"
	"mareero-backend/internal/models"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

const ContentType = "application/pdf"

// Page geometry in points (A4).
const (
	pageWidth    = 595.28
	pageHeight   = 841.89
	marginX      = 40.0
	marginBottom = 60.0

	headerBand = 110.0

	boxHeight = 50.0
	boxGap    = 15.0

	tableHeaderHeight = 22.0
	rowHeight         = 18.0
	continuationTop   = 40.0

	// The signature band needs this much room above the page bottom.
	signatureSpace = 120.0
	signatureLineY = pageHeight - 80
)

type rgb struct{ r, g, b int }

var (
	brandPrimary = rgb{0x0f, 0x17, 0x2a}
	brandAccent  = rgb{0x25, 0x63, 0xeb}
	textDark     = rgb{0x33, 0x41, 0x55}
	textMuted    = rgb{0x94, 0xa3, 0xb8}
	rowTint      = rgb{0xf1, 0xf5, 0xf9}
	boxBorder    = rgb{0xd3, 0xd3, 0xd3}
	missingText  = rgb{0xdc, 0x26, 0x26}
	white        = rgb{0xff, 0xff, 0xff}
)

type column struct {
	title    string
	width    float64
	maxRunes int
}

// Widths sum to the printable width.
var tableColumns = []column{
	{"TYPE", 70, 12},
	{"ITEM NAME", 140, 24},
	{"BRANCH", 100, 18},
	{"STAFF", 90, 14},
	{"NOTES", 115, 20},
}

// Builder lays out the operational report. Charts defaults to the raster
// renderer and Location to UTC.
type Builder struct {
	Title    string
	Subtitle string
	Catalog  models.Catalog
	Charts   chart.Renderer
	Location *time.Location
	Compress bool
	ReportID func(time.Time) string
	Log      *zap.Logger
}

// Document is a finished report.
type Document struct {
	Bytes        []byte
	Pages        int
	TableHeaders int
	ReportID     string
	Filename     string
}

// NewReportID returns REF-<date>-<three random digits>. The suffix only
// tells printouts apart and is not unique.
func NewReportID(t time.Time) string {
	return fmt.Sprintf("REF-%s-%d", t.Format("20060102"), 100+rand.IntN(900))
}

// Build renders records into a paginated PDF. Chart failures degrade to a
// line of text; only PDF serialization errors are returned.
func (b *Builder) Build(records []models.Record, generatedAt time.Time) (*Document, error) {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	generatedAt = generatedAt.In(loc)
	newID := b.ReportID
	if newID == nil {
		newID = NewReportID
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(b.Compress)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetMargins(marginX, continuationTop, marginX)
	pdf.SetTitle(b.Title, true)

	w := &writer{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		missing: b.Catalog.ValuesWithFlag(models.CategoryFlagMissing),
	}
	doc := &Document{
		ReportID: newID(generatedAt),
		Filename: "Report_" + generatedAt.Format("2006-01-02") + ".pdf",
	}

	summary := Summarize(records)
	pdf.AddPage()
	w.header(b.Title, b.Subtitle, generatedAt, doc.ReportID)
	w.summaryBoxes(b.metrics(summary))
	b.chartBand(w, summary)
	y := w.table(b.sortedRows(records), doc)
	w.signature(y)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout report: %w", err)
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	doc.Bytes = out.Bytes()
	doc.Pages = pdf.PageCount()
	return doc, nil
}

type metric struct {
	label string
	value int
}

func (b *Builder) metrics(s Summary) []metric {
	out := []metric{{"Total Reports", s.Total}}
	for _, cat := range b.Catalog.MetricCategories() {
		out = append(out, metric{cat.Metric, s.Category(cat.Value)})
	}
	return out
}

// sortedRows orders records by category then item. The sort is stable so
// equal keys keep snapshot order.
func (b *Builder) sortedRows(records []models.Record) []models.Record {
	rows := models.CloneRecords(records)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Item < rows[j].Item
	})
	return rows
}

func (b *Builder) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func (b *Builder) renderer() chart.Renderer {
	if b.Charts == nil {
		return chart.NewRaster()
	}
	return b.Charts
}

const chartBandTop = 230.0

type chartSlot struct {
	name    string
	caption string
	x, y    float64
	w, h    float64
	render  func() ([]byte, error)
}

func (b *Builder) chartBand(w *writer, s Summary) {
	w.sectionTitle(chartBandTop, "2. VISUAL ANALYTICS")
	r := b.renderer()
	slots := []chartSlot{
		{"category", "Reports by Category", marginX, chartBandTop + 55, 220, 165, func() ([]byte, error) { return r.Pie(s.ByCategory) }},
		{"branch", "Reports by Branch", 300, chartBandTop + 40, 240, 180, func() ([]byte, error) { return r.Bar(s.ByBranch) }},
	}

	images := make([][]byte, len(slots))
	errs := make([]error, len(slots))
	noData := 0
	for i, slot := range slots {
		images[i], errs[i] = renderSafely(slot.render)
		if errors.Is(errs[i], chart.ErrNoData) {
			noData++
		}
	}
	if noData == len(slots) {
		w.note(marginX, chartBandTop+30, "No visual data available.", textDark)
		return
	}

	for i, slot := range slots {
		switch {
		case errors.Is(errs[i], chart.ErrNoData):
			w.note(slot.x, slot.y+12, "No data for this chart.", textDark)
		case errs[i] != nil:
			b.logger().Warn("chart rendering failed", zap.String("chart", slot.name), zap.Error(errs[i]))
			w.note(slot.x, slot.y+12, "Chart unavailable: "+shorten(errs[i].Error(), 40), textDark)
		default:
			if err := w.image(slot.name, images[i], slot.x, slot.y, slot.w, slot.h); err != nil {
				b.logger().Warn("chart image rejected", zap.String("chart", slot.name), zap.Error(err))
				w.note(slot.x, slot.y+12, "Chart unavailable: invalid image", textDark)
				continue
			}
			w.caption(slot.x, slot.y-8, slot.caption)
		}
	}
}

// renderSafely turns a renderer panic into an error and rejects bytes that
// do not decode as PNG.
func renderSafely(render func() ([]byte, error)) (img []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("renderer panic: %v", p)
		}
	}()
	img, err = render()
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, errors.New("renderer returned no image")
	}
	if _, err := png.DecodeConfig(bytes.NewReader(img)); err != nil {
		return nil, fmt.Errorf("renderer returned an invalid png: %w", err)
	}
	return img, nil
}

// writer wraps the drawing primitives; it keeps no state between pages
// besides what fpdf itself holds.
type writer struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	missing []string
}

func (w *writer) fill(c rgb)      { w.pdf.SetFillColor(c.r, c.g, c.b) }
func (w *writer) textColor(c rgb) { w.pdf.SetTextColor(c.r, c.g, c.b) }
func (w *writer) drawColor(c rgb) { w.pdf.SetDrawColor(c.r, c.g, c.b) }

func (w *writer) text(x, y float64, s string) {
	w.pdf.Text(x, y, w.tr(s))
}

func (w *writer) textRight(right, y float64, s string) {
	s = w.tr(s)
	w.pdf.Text(right-w.pdf.GetStringWidth(s), y, s)
}

func (w *writer) textCentered(center, y float64, s string) {
	s = w.tr(s)
	w.pdf.Text(center-w.pdf.GetStringWidth(s)/2, y, s)
}

func (w *writer) header(title, subtitle string, at time.Time, reportID string) {
	w.fill(brandPrimary)
	w.pdf.Rect(0, 0, pageWidth, headerBand, "F")

	w.textColor(white)
	w.pdf.SetFont("Helvetica", "B", 26)
	w.text(marginX, 50, title)
	w.textColor(textMuted)
	w.pdf.SetFont("Helvetica", "", 12)
	w.text(marginX, 70, subtitle)

	right := pageWidth - marginX
	w.textColor(white)
	w.pdf.SetFont("Helvetica", "B", 12)
	w.textRight(right, 40, "OPERATIONAL REPORT")
	w.pdf.SetFont("Helvetica", "", 10)
	w.textRight(right, 55, "Date: "+at.Format("02 Jan 2006"))
	w.textRight(right, 70, "Time: "+at.Format("03:04 PM"))
	w.textRight(right, 85, "ID: "+reportID)
}

func (w *writer) sectionTitle(y float64, title string) {
	w.textColor(brandPrimary)
	w.pdf.SetFont("Helvetica", "B", 14)
	w.text(marginX, y, title)
}

const summaryTop = 150.0

func (w *writer) summaryBoxes(metrics []metric) {
	w.sectionTitle(summaryTop, "1. EXECUTIVE SUMMARY")

	printable := pageWidth - 2*marginX
	n := float64(len(metrics))
	boxWidth := (printable - boxGap*(n-1)) / n
	top := summaryTop + 10
	for i, m := range metrics {
		x := marginX + float64(i)*(boxWidth+boxGap)

		w.fill(boxBorder)
		w.pdf.RoundedRect(x+2, top+2, boxWidth, boxHeight, 6, "1234", "F")
		w.fill(white)
		w.drawColor(boxBorder)
		w.pdf.SetLineWidth(1)
		w.pdf.RoundedRect(x, top, boxWidth, boxHeight, 6, "1234", "FD")

		w.textColor(brandAccent)
		w.pdf.SetFont("Helvetica", "B", 16)
		w.textCentered(x+boxWidth/2, top+25, fmt.Sprint(m.value))
		w.textColor(textDark)
		w.pdf.SetFont("Helvetica", "", 9)
		w.textCentered(x+boxWidth/2, top+40, m.label)
	}
}

func (w *writer) note(x, y float64, s string, c rgb) {
	w.textColor(c)
	w.pdf.SetFont("Helvetica", "", 10)
	w.text(x, y, s)
}

func (w *writer) caption(x, y float64, s string) {
	w.textColor(textDark)
	w.pdf.SetFont("Helvetica", "B", 9)
	w.text(x, y, s)
}

func (w *writer) image(name string, data []byte, x, y, width, height float64) error {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if w.pdf.Err() {
		err := w.pdf.Error()
		w.pdf.ClearError()
		return err
	}
	w.pdf.ImageOptions(name, x, y, width, height, false, opts, 0, "")
	return nil
}

const tableTitleY = 470.0

// table draws the detail rows and returns the cursor below the last row.
func (w *writer) table(rows []models.Record, doc *Document) float64 {
	w.sectionTitle(tableTitleY, "3. INVENTORY DETAILS")
	y := w.tableHeader(tableTitleY+14, doc)

	if len(rows) == 0 {
		w.note(marginX+5, y+12, "No records submitted.", textDark)
		return y + rowHeight
	}

	limit := pageHeight - marginBottom
	for i, r := range rows {
		if y+rowHeight > limit {
			w.pdf.AddPage()
			y = w.tableHeader(continuationTop, doc)
		}
		w.row(i, r, y)
		y += rowHeight
	}
	return y
}

func (w *writer) tableHeader(top float64, doc *Document) float64 {
	w.fill(brandPrimary)
	w.pdf.Rect(marginX, top, tableWidth(), tableHeaderHeight, "F")
	w.textColor(white)
	w.pdf.SetFont("Helvetica", "B", 8)
	x := marginX + 5
	for _, col := range tableColumns {
		w.text(x, top+14, col.title)
		x += col.width
	}
	doc.TableHeaders++
	return top + tableHeaderHeight + 4
}

func (w *writer) row(index int, r models.Record, top float64) {
	if index%2 == 0 {
		w.fill(rowTint)
		w.pdf.Rect(marginX, top, tableWidth(), rowHeight, "F")
	}
	color := textDark
	if w.isMissing(r.Category) {
		color = missingText
	}
	w.textColor(color)
	w.pdf.SetFont("Helvetica", "", 9)

	values := []string{
		r.Category,
		r.Item,
		strings.ReplaceAll(models.OrPlaceholder(r.Branch), "Branch", "Br."),
		r.Employee,
		r.Note,
	}
	x := marginX + 5
	for i, col := range tableColumns {
		w.text(x, top+12, truncate(models.OrPlaceholder(values[i]), col.maxRunes))
		x += col.width
	}
}

func (w *writer) signature(y float64) {
	if y > pageHeight-signatureSpace {
		w.pdf.AddPage()
	}
	w.drawColor(rgb{0x80, 0x80, 0x80})
	w.pdf.SetLineWidth(1)
	w.pdf.Line(marginX, signatureLineY, 200, signatureLineY)
	w.pdf.Line(350, signatureLineY, 510, signatureLineY)

	w.textColor(textDark)
	w.pdf.SetFont("Helvetica", "", 9)
	w.text(marginX, signatureLineY+15, "Authorized Manager")
	w.text(350, signatureLineY+15, "Date & Official Stamp")
}

func (w *writer) isMissing(category string) bool {
	for _, v := range w.missing {
		if v == category {
			return true
		}
	}
	return false
}

func tableWidth() float64 {
	total := 0.0
	for _, col := range tableColumns {
		total += col.width
	}
	return total
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func shorten(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

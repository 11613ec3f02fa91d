// Package dashboard serves the manager's overview figures, computed from a
// fresh table snapshot on every request.
package dashboard

import (
	"sort"
	"time"

	"mareero-backend/internal/models"
	"mareero-backend/internal/report"

	"github.com/gofiber/fiber/v2"
)

type MetricBox struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Count    int    `json:"count"`
	Percent  int    `json:"percent"`
}

type MetricsResponse struct {
	Total          int            `json:"total"`
	Today          int            `json:"today"`
	Metrics        []MetricBox    `json:"metrics"`
	ActiveBranches []string       `json:"active_branches"`
	ByCategory     map[string]int `json:"by_category"`
	ByBranch       map[string]int `json:"by_branch"`
	LastSubmission *string        `json:"last_submission"`
}

// Metrics mirrors the PDF summary boxes and adds the figures the manager
// view shows above the table.
func Metrics(records []models.Record, catalog models.Catalog, now time.Time) MetricsResponse {
	s := report.Summarize(records)
	resp := MetricsResponse{
		Total:          s.Total,
		Metrics:        []MetricBox{},
		ActiveBranches: make([]string, 0, len(s.ByBranch)),
		ByCategory:     s.ByCategory,
		ByBranch:       s.ByBranch,
	}
	for _, cat := range catalog.MetricCategories() {
		resp.Metrics = append(resp.Metrics, MetricBox{
			Label:    cat.Metric,
			Category: cat.Value,
			Count:    s.Category(cat.Value),
			Percent:  s.Percent(cat.Value),
		})
	}
	for b := range s.ByBranch {
		resp.ActiveBranches = append(resp.ActiveBranches, b)
	}
	sort.Strings(resp.ActiveBranches)

	today := bucketStart(now, PeriodDaily)
	var last time.Time
	for _, r := range records {
		if r.Timestamp.IsZero() {
			continue
		}
		ts := r.Timestamp.In(now.Location())
		if bucketStart(ts, PeriodDaily).Equal(today) {
			resp.Today++
		}
		if ts.After(last) {
			last = ts
		}
	}
	if !last.IsZero() {
		formatted := last.Format(models.TimestampLayout)
		resp.LastSubmission = &formatted
	}
	return resp
}

// GET /api/manager/dashboard
func MetricsHandler(src report.Source, catalog models.Catalog, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := src.Snapshot(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
		}
		return c.JSON(Metrics(records, catalog, now()))
	}
}

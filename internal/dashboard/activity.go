package dashboard

import (
	"fmt"
	"time"

	"mareero-backend/internal/models"
	"mareero-backend/internal/report"

	"github.com/gofiber/fiber/v2"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"

	maxBuckets = 366
)

type ActivityPoint struct {
	Label      string         `json:"label"` // bucket start: day, Monday of the week, or first of the month
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}

type ActivityResponse struct {
	Period      Period          `json:"period"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Points      []ActivityPoint `json:"points"`
	GrandTotals map[string]int  `json:"grand_totals"`
	Total       int             `json:"total"`
}

func defaultCount(p Period) int {
	switch p {
	case PeriodWeekly:
		return 8
	case PeriodMonthly:
		return 12
	default:
		return 7
	}
}

// bucketStart truncates t to the start of its bucket in t's location.
func bucketStart(t time.Time, p Period) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // weeks start on Monday
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

func nextBucket(t time.Time, p Period) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Activity counts submissions per bucket for the last count buckets up to
// and including the one holding now. Every bucket is present, empty ones
// with zero counts. Records without a timestamp are ignored.
func Activity(records []models.Record, p Period, count int, now time.Time) ActivityResponse {
	last := bucketStart(now, p)
	start := last
	for i := 1; i < count; i++ {
		switch p {
		case PeriodWeekly:
			start = start.AddDate(0, 0, -7)
		case PeriodMonthly:
			start = start.AddDate(0, -1, 0)
		default:
			start = start.AddDate(0, 0, -1)
		}
	}
	end := nextBucket(last, p)

	points := make([]ActivityPoint, 0, count)
	index := make(map[time.Time]int, count)
	for b := start; b.Before(end); b = nextBucket(b, p) {
		index[b] = len(points)
		points = append(points, ActivityPoint{Label: b.Format("2006-01-02"), ByCategory: map[string]int{}})
	}

	resp := ActivityResponse{
		Period:      p,
		From:        start.Format("2006-01-02"),
		To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
		GrandTotals: map[string]int{},
	}
	for _, r := range records {
		if r.Timestamp.IsZero() {
			continue
		}
		i, ok := index[bucketStart(r.Timestamp.In(now.Location()), p)]
		if !ok {
			continue
		}
		points[i].Total++
		resp.Total++
		if r.Category != "" {
			points[i].ByCategory[r.Category]++
			resp.GrandTotals[r.Category]++
		}
	}
	resp.Points = points
	return resp
}

// GET /api/manager/dashboard/activity?period=daily&count=7
func ActivityHandler(src report.Source, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := Period(c.Query("period", string(PeriodDaily)))
		switch period {
		case PeriodDaily, PeriodWeekly, PeriodMonthly:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "period must be daily, weekly or monthly")
		}

		count := defaultCount(period)
		if v := c.Query("count"); v != "" {
			if _, err := fmt.Sscan(v, &count); err != nil || count <= 0 || count > maxBuckets {
				return fiber.NewError(fiber.StatusBadRequest, "invalid count")
			}
		}

		records, err := src.Snapshot(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
		}
		return c.JSON(Activity(records, period, count, now()))
	}
}

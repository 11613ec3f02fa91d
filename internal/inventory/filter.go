package inventory

import (
	"fmt"
	"strings"
	"time"

	"mareero-backend/internal/models"
)

type Window string

const (
	WindowToday Window = "today"
	WindowWeek  Window = "7d"
	WindowAll   Window = "all"
)

func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "", WindowAll:
		return WindowAll, nil
	case WindowToday, WindowWeek:
		return w, nil
	default:
		return "", fmt.Errorf("unknown time window %q", s)
	}
}

// Filter narrows the manager's view of the table.
type Filter struct {
	Query  string
	Window Window
}

// Active reports whether the filter can hide rows.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || (f.Window != "" && f.Window != WindowAll)
}

// Apply keeps records matching the search text in any displayed field
// (case-insensitive) and falling inside the window. Records without a
// timestamp only pass the "all" window.
func (f Filter) Apply(records []models.Record, now time.Time) []models.Record {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if !f.inWindow(r.Timestamp, now) {
			continue
		}
		if query != "" && !matches(r, query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f Filter) inWindow(ts, now time.Time) bool {
	switch f.Window {
	case WindowToday:
		if ts.IsZero() {
			return false
		}
		ts = ts.In(now.Location())
		y1, m1, d1 := ts.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case WindowWeek:
		return !ts.IsZero() && !ts.Before(now.AddDate(0, 0, -7)) && !ts.After(now)
	default:
		return true
	}
}

func matches(r models.Record, query string) bool {
	for _, v := range r.Fields() {
		if strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

// Package report builds the manager's PDF report from a record snapshot.
package report

import (
	"math"
	"strings"

	"mareero-backend/internal/models"
)

// Summary holds the counts shown in the executive summary and charts.
// Keys that never occur are absent rather than zero.
type Summary struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	ByBranch   map[string]int `json:"by_branch"`
}

// Summarize counts records per category and per branch. Blank category or
// branch values are left out of the matching map but still count in Total.
func Summarize(records []models.Record) Summary {
	s := Summary{
		Total:      len(records),
		ByCategory: make(map[string]int),
		ByBranch:   make(map[string]int),
	}
	for _, r := range records {
		if c := strings.TrimSpace(r.Category); c != "" {
			s.ByCategory[c]++
		}
		if b := strings.TrimSpace(r.Branch); b != "" {
			s.ByBranch[b]++
		}
	}
	return s
}

func (s Summary) Category(value string) int {
	return s.ByCategory[value]
}

func (s Summary) Branch(name string) int {
	return s.ByBranch[name]
}

// Percent is the rounded share of Total carried by a category.
func (s Summary) Percent(category string) int {
	if s.Total == 0 {
		return 0
	}
	return int(math.Round(float64(s.ByCategory[category]) * 100 / float64(s.Total)))
}

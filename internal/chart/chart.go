// Package chart renders the category pie and branch bar charts embedded in
// the PDF report.
package chart

import (
	"errors"
	"math"
	"sort"
)

// ErrNoData is returned when there is nothing to plot. It is not a failure:
// callers show a "no data" notice instead of the image.
var ErrNoData = errors.New("chart: no data")

// Renderer turns label counts into PNG bytes.
type Renderer interface {
	Pie(counts map[string]int) ([]byte, error)
	Bar(counts map[string]int) ([]byte, error)
}

// Slice is one plotted label with its share of the total.
type Slice struct {
	Label   string
	Count   int
	Percent int
}

// Slices orders counts by count descending, then label, dropping
// non-positive entries. Percent is rounded to the nearest whole number.
func Slices(counts map[string]int) []Slice {
	total := 0
	out := make([]Slice, 0, len(counts))
	for label, n := range counts {
		if n <= 0 {
			continue
		}
		total += n
		out = append(out, Slice{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	for i := range out {
		out[i].Percent = int(math.Round(float64(out[i].Count) * 100 / float64(total)))
	}
	return out
}

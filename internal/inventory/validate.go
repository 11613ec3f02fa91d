package inventory

import (
	"fmt"
	"strings"

	"mareero-backend/internal/models"
)

// ValidationError rejects input before any store call is made.
type ValidationError struct {
	Row    int // 1-based row of a bulk request, 0 for single submissions
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Submission is the staff form as posted.
type Submission struct {
	Branch   string `json:"branch"`
	Employee string `json:"employee"`
	Category string `json:"category"` // form label or canonical value
	Item     string `json:"item"`
	Note     string `json:"note"`
}

// normalize trims every field and resolves the branch and category against
// the catalog. Strict mode rejects values outside the catalog; lenient mode
// (manager edits of existing rows) keeps them as they are.
func normalize(r models.Record, catalog models.Catalog, row int, strict bool) (models.Record, error) {
	r.Branch = strings.TrimSpace(r.Branch)
	r.Employee = strings.TrimSpace(r.Employee)
	r.Category = strings.TrimSpace(r.Category)
	r.Item = strings.TrimSpace(r.Item)
	r.Note = strings.TrimSpace(r.Note)
	if r.Note == models.Placeholder {
		r.Note = ""
	}

	// "-" is how stored tables write an empty cell and reads back as empty.
	if r.Employee == "" || r.Employee == models.Placeholder {
		return r, &ValidationError{Row: row, Field: "employee", Reason: "is required"}
	}
	if r.Item == "" || r.Item == models.Placeholder {
		return r, &ValidationError{Row: row, Field: "item", Reason: "is required"}
	}

	if value, ok := catalog.Canonical(r.Category); ok {
		r.Category = value
	} else if strict {
		return r, &ValidationError{Row: row, Field: "category", Reason: fmt.Sprintf("%q is not a known category", r.Category)}
	}

	if catalog.HasBranch(r.Branch) {
		r.Branch = catalog.BranchName(r.Branch)
	} else if strict {
		return r, &ValidationError{Row: row, Field: "branch", Reason: fmt.Sprintf("%q is not a known branch", r.Branch)}
	}
	return r, nil
}

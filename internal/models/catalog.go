package models

import "strings"

type CategoryFlag string

const (
	CategoryFlagNone    CategoryFlag = ""
	CategoryFlagMissing CategoryFlag = "missing"
	CategoryFlagUrgent  CategoryFlag = "urgent"
)

// Category maps a form label to the canonical value stored in the table.
type Category struct {
	Label  string       `yaml:"label" json:"label"`
	Value  string       `yaml:"value" json:"value"`
	Metric string       `yaml:"metric" json:"metric,omitempty"` // summary box caption, empty = no box
	Flag   CategoryFlag `yaml:"flag" json:"flag,omitempty"`
}

// Catalog: the closed enumerations offered by the submission form
type Catalog struct {
	Branches   []string   `yaml:"branches" json:"branches"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// DefaultCatalog mirrors the first deployment of the form.
func DefaultCatalog() Catalog {
	return Catalog{
		Branches: []string{"Head Q", "Branch 1", "Branch 3", "Branch 4", "Branch 5", "Kaydka M.hassan"},
		Categories: []Category{
			{Label: "alaabta Maqan (Missing)", Value: "Maqan", Metric: "Missing Stock", Flag: CategoryFlagMissing},
			{Label: "alaabta Suqqa leh (High Demand)", Value: "Suuq leh"},
			{Label: "bahiyaha Dadweynaha (New Request)", Value: "Dadweynaha", Metric: "New Requests"},
		},
	}
}

// Canonical resolves a form label or a canonical value. Matching is
// case-insensitive on trimmed input.
func (c Catalog) Canonical(labelOrValue string) (string, bool) {
	key := strings.TrimSpace(labelOrValue)
	if key == "" {
		return "", false
	}
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Label, key) || strings.EqualFold(cat.Value, key) {
			return cat.Value, true
		}
	}
	return "", false
}

// HasBranch reports whether branch is one of the configured branches.
func (c Catalog) HasBranch(branch string) bool {
	branch = strings.TrimSpace(branch)
	for _, b := range c.Branches {
		if strings.EqualFold(b, branch) {
			return true
		}
	}
	return false
}

// BranchName returns the configured spelling of branch.
func (c Catalog) BranchName(branch string) string {
	branch = strings.TrimSpace(branch)
	for _, b := range c.Branches {
		if strings.EqualFold(b, branch) {
			return b
		}
	}
	return branch
}

func (c Catalog) FlagOf(value string) CategoryFlag {
	for _, cat := range c.Categories {
		if cat.Value == value {
			return cat.Flag
		}
	}
	return CategoryFlagNone
}

// ValuesWithFlag lists canonical values carrying flag, in catalog order.
func (c Catalog) ValuesWithFlag(flag CategoryFlag) []string {
	var out []string
	for _, cat := range c.Categories {
		if cat.Flag == flag && cat.Value != "" {
			out = append(out, cat.Value)
		}
	}
	return out
}

// MetricCategories lists the categories that get their own summary box.
func (c Catalog) MetricCategories() []Category {
	var out []Category
	for _, cat := range c.Categories {
		if cat.Metric != "" {
			out = append(out, cat)
		}
	}
	return out
}

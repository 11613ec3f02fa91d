package config

import (
	"fmt"
	"os"
	"strings"

	"mareero-backend/internal/models"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads the branch and category enumerations from a YAML file.
// An empty path yields the built-in catalog.
//
//	branches: ["Head Q", "Branch 1"]
//	categories:
//	  - label: "alaabta Maqan (Missing)"
//	    value: Maqan
//	    metric: Missing Stock
//	    flag: missing
func LoadCatalog(path string) (models.Catalog, error) {
	if path == "" {
		return models.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (models.Catalog, error) {
	var cat models.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return models.Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validateCatalog(cat); err != nil {
		return models.Catalog{}, err
	}
	return cat, nil
}

func validateCatalog(cat models.Catalog) error {
	if len(cat.Branches) == 0 {
		return fmt.Errorf("catalog: at least one branch is required")
	}
	if len(cat.Categories) == 0 {
		return fmt.Errorf("catalog: at least one category is required")
	}

	branches := make(map[string]bool, len(cat.Branches))
	for _, b := range cat.Branches {
		key := strings.ToLower(strings.TrimSpace(b))
		if key == "" {
			return fmt.Errorf("catalog: empty branch name")
		}
		if branches[key] {
			return fmt.Errorf("catalog: duplicate branch %q", b)
		}
		branches[key] = true
	}

	values := make(map[string]bool, len(cat.Categories))
	for _, c := range cat.Categories {
		if strings.TrimSpace(c.Label) == "" || strings.TrimSpace(c.Value) == "" {
			return fmt.Errorf("catalog: category needs both label and value")
		}
		if values[c.Value] {
			return fmt.Errorf("catalog: duplicate category value %q", c.Value)
		}
		values[c.Value] = true

		switch c.Flag {
		case models.CategoryFlagNone, models.CategoryFlagMissing, models.CategoryFlagUrgent:
		default:
			return fmt.Errorf("catalog: category %q has unknown flag %q", c.Value, c.Flag)
		}
	}
	return nil
}

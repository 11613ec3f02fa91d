package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogCanonical(t *testing.T) {
	cat := DefaultCatalog()

	v, ok := cat.Canonical("alaabta Maqan (Missing)")
	assert.True(t, ok)
	assert.Equal(t, "Maqan", v)

	v, ok = cat.Canonical("  dadweynaha ")
	assert.True(t, ok)
	assert.Equal(t, "Dadweynaha", v)

	_, ok = cat.Canonical("Unknown")
	assert.False(t, ok)
	_, ok = cat.Canonical("")
	assert.False(t, ok)
}

func TestCatalogBranches(t *testing.T) {
	cat := DefaultCatalog()
	assert.True(t, cat.HasBranch("branch 1"))
	assert.Equal(t, "Branch 1", cat.BranchName(" branch 1"))
	assert.False(t, cat.HasBranch("Branch 2"))
	assert.Equal(t, "Branch 2", cat.BranchName("Branch 2"))
}

func TestCatalogFlagsAndMetrics(t *testing.T) {
	cat := DefaultCatalog()
	assert.Equal(t, CategoryFlagMissing, cat.FlagOf("Maqan"))
	assert.Equal(t, CategoryFlagNone, cat.FlagOf("Suuq leh"))
	assert.Equal(t, CategoryFlagNone, cat.FlagOf("nope"))

	metrics := cat.MetricCategories()
	if assert.Len(t, metrics, 2) {
		assert.Equal(t, "Missing Stock", metrics[0].Metric)
		assert.Equal(t, "New Requests", metrics[1].Metric)
	}
}

func TestRecordHelpers(t *testing.T) {
	assert.True(t, Record{}.IsBlank())
	assert.True(t, Record{Note: "  "}.IsBlank())
	assert.False(t, Record{Item: "Pump"}.IsBlank())

	assert.Equal(t, Placeholder, Record{}.FormatTimestamp())
	assert.Equal(t, Placeholder, OrPlaceholder(" "))
	assert.Equal(t, "x", OrPlaceholder("x"))

	assert.NotNil(t, CloneRecords(nil))
}

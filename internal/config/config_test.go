package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"mareero-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("MANAGER_PASSWORD", "mareero2025")
	t.Setenv("MANAGER_PASSWORD_HASH", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CATALOG_PATH", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("STORE_CACHE_TTL", "")
	t.Setenv("EXPORT_SPLIT_BY_BRANCH", "")
	t.Setenv("HTTP_PORT", "")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setBaseEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.HTTPPort)
		assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
		assert.Equal(t, 30*time.Second, cfg.StoreCacheTTL)
		assert.True(t, cfg.SplitByBranch)
		assert.Equal(t, "Africa/Mogadishu", cfg.Location.String())
		assert.Equal(t, models.DefaultCatalog(), cfg.Catalog)
		assert.True(t, cfg.AuditEnabled())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cfg.ManagerPasswordHash), []byte("mareero2025")))
		assert.NotEmpty(t, cfg.Warnings())
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("short jwt secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "short")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing manager secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("MANAGER_PASSWORD", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("hash takes precedence", func(t *testing.T) {
		setBaseEnv(t)
		h, err := bcrypt.GenerateFromPassword([]byte("other"), bcrypt.MinCost)
		require.NoError(t, err)
		t.Setenv("MANAGER_PASSWORD_HASH", string(h))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, string(h), cfg.ManagerPasswordHash)
	})

	t.Run("unknown backend", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("STORE_BACKEND", "gsheets")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("workbook backend disables audit", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("STORE_BACKEND", "Workbook")
		t.Setenv("EXPORT_SPLIT_BY_BRANCH", "false")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, StoreBackendWorkbook, cfg.StoreBackend)
		assert.False(t, cfg.AuditEnabled())
		assert.False(t, cfg.SplitByBranch)
	})

	t.Run("offline commands need no credentials", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "")
		t.Setenv("MANAGER_PASSWORD", "")

		cfg, err := LoadStore()
		require.NoError(t, err)
		assert.Empty(t, cfg.ManagerPasswordHash)
		assert.Equal(t, models.DefaultCatalog(), cfg.Catalog)
	})

	t.Run("bad timezone", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("TIMEZONE", "Nowhere/Atlantis")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
branches: ["B1", "B2"]
categories:
  - label: "Missing item"
    value: Missing
    metric: Missing Stock
    flag: missing
  - label: "Urgent item"
    value: Urgent
    flag: urgent
  - label: "New request"
    value: New-Request
`), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"B1", "B2"}, cat.Branches)
	assert.Len(t, cat.Categories, 3)
	assert.Equal(t, []string{"Missing"}, cat.ValuesWithFlag(models.CategoryFlagMissing))
	assert.Equal(t, []string{"Urgent"}, cat.ValuesWithFlag(models.CategoryFlagUrgent))

	v, ok := cat.Canonical("new REQUEST")
	assert.True(t, ok)
	assert.Equal(t, "New-Request", v)
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no branches":      "categories: [{label: a, value: a}]",
		"no categories":    "branches: [B1]",
		"duplicate value":  "branches: [B1]\ncategories: [{label: a, value: x}, {label: b, value: x}]",
		"duplicate branch": "branches: [B1, b1]\ncategories: [{label: a, value: a}]",
		"missing label":    "branches: [B1]\ncategories: [{value: a}]",
		"unknown flag":     "branches: [B1]\ncategories: [{label: a, value: a, flag: lost}]",
		"not yaml":         "branches: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"add kpi rollup tables", "add_kpi_rollup_tables"},
		{"Add-Raw-Shopee-Tables", "add_raw_shopee_tables"},
		{"CREATE_UNIFIED_ORDERS", "create_unified_orders"},
		{"add__fx__rates", "add_fx_rates"},
		{"Backfill Q3 2026", "backfill_q3_2026"},
		{"   spaces   ", "spaces"},
		{"drop!@#$legacy", "droplegacy"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, sanitizeName(tc.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("writes a matched up and down pair", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "add kpi rollup tables", "overview, daily, monthly and revenue rollups")
		require.NoError(t, err)

		// Version prefix is YYYYMMDDHHMMSS.
		assert.Len(t, mf.Version, 14)
		assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
		assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))
		assert.Equal(t,
			strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql"),
			strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql"),
		)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "add kpi rollup tables")
		assert.Contains(t, string(up), "overview, daily, monthly and revenue rollups")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "rollback")
	})

	t.Run("creates a missing migrations directory", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(nested, "add fx rates", "")
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestListMigrations(t *testing.T) {
	write := func(t *testing.T, dir string, names ...string) {
		t.Helper()
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql"), 0644))
		}
	}

	t.Run("returns pairs once, sorted by version", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir,
			"000002_create_unified_orders.up.sql",
			"000002_create_unified_orders.down.sql",
			"000001_create_raw_tables.up.sql",
			"000001_create_raw_tables.down.sql",
			"000003_create_kpi_rollups.up.sql",
			"000003_create_kpi_rollups.down.sql",
		)

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"000001_create_raw_tables",
			"000002_create_unified_orders",
			"000003_create_kpi_rollups",
		}, migrations)
	})

	t.Run("empty directory", func(t *testing.T) {
		migrations, err := ListMigrations(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("missing directory is not an error", func(t *testing.T) {
		migrations, err := ListMigrations("/nonexistent/path/to/migrations")
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("skips files that are not up migrations", func(t *testing.T) {
		dir := t.TempDir()
		write(t, dir,
			"000001_create_raw_tables.up.sql",
			"000001_create_raw_tables.down.sql",
			"README.md",
			".gitkeep",
		)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.up.sql"), 0755))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_create_raw_tables"}, migrations)
	})
}

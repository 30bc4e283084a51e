package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/cartsync/internal/profile"
	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/db"
)

// NewTestingStore opens a migrated, empty store. The driver comes from
// CARTSYNC_TEST_DRIVER (sqlite by default, or postgres).
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// NewSeededStore is NewTestingStore with the demo data loaded.
func NewSeededStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	p := getTestingProfile(t)
	p.Mode = "demo"
	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	driver := getDriverFromEnv()
	p := &profile.Profile{Mode: "dev", Driver: driver}
	switch driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		dir := t.TempDir()
		p.Data = dir
		p.DSN = filepath.Join(dir, "cartsync_test.db")
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("CARTSYNC_TEST_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}

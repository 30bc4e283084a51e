package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/cartsync/internal/profile"
	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/db/postgres"
	"github.com/hrygo/cartsync/store/db/rest"
	"github.com/hrygo/cartsync/store/db/sqlite"
)

// ============================================================================
// BACKING STORE SUPPORT POLICY
// ============================================================================
// PostgreSQL: production.
// SQLite: development, demo mode and tests.
// REST: PostgREST-compatible remotes (Supabase). Schema is managed remotely.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	case "rest":
		driver, err = rest.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite', 'postgres' and 'rest' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/cartsync/internal/profile"
	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/db/sqlcommon"
)

// ============================================================================
// SQLITE SUPPORT (Development / Demo)
// ============================================================================
// SQLite is the default for local development, demo mode and tests.
// Joined relations are folded with json_object and come back as JSON text.
// ============================================================================

var dialect = sqlcommon.Dialect{
	Placeholder: func(int) string { return "?" },
	JSONObject:  "json_object",
}

// pragmas are applied to every pooled connection.
// - foreign_keys(0): item rows may outlive the product they reference.
// - busy_timeout: wait instead of failing while another writer holds the lock.
// - journal_mode(WAL): readers do not block the writer.
const pragmas = "_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"

type DB struct {
	*sqlcommon.DB
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database connection with the SQLite driver.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sep := "?"
	if strings.Contains(profile.DSN, "?") {
		sep = "&"
	}
	sqliteDB, err := sql.Open("sqlite", profile.DSN+sep+pragmas)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{
		DB:      &sqlcommon.DB{Conn: sqliteDB, Dialect: dialect},
		db:      sqliteDB,
		profile: profile,
	}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'personal_carts')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Schema files live under migration/{driver}/LATEST.sql. There is a single
// schema revision, so a fresh database gets LATEST.sql and an initialized one
// is left alone. Demo mode additionally loads seed/{driver}/*.sql.

//go:embed migration
var migrationFS embed.FS

//go:embed seed
var seedFS embed.FS

const (
	// LatestSchemaFileName is the full schema for fresh installations.
	LatestSchemaFileName = "LATEST.sql"

	modeDemo = "demo"
)

// Migrate initializes the schema when needed and seeds demo data in demo
// mode. Backends that manage their own schema (rest) report themselves as
// initialized and are never touched.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if !initialized {
		filePath := s.getMigrationBasePath() + LatestSchemaFileName
		data, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read latest schema file %s", filePath)
		}
		slog.Info("initializing new database with latest schema", slog.String("file", filePath))
		if err := s.driver.ExecScript(ctx, splitSQL(string(data))); err != nil {
			return errors.Wrapf(err, "failed to execute %s", filePath)
		}
	}

	if s.profile.Mode == modeDemo && !initialized {
		if err := s.seed(ctx); err != nil {
			return errors.Wrap(err, "failed to seed")
		}
	}
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) getSeedBasePath() string {
	return fmt.Sprintf("seed/%s/", s.profile.Driver)
}

// seed loads the demo catalog and carts. Seed files are applied in name order.
func (s *Store) seed(ctx context.Context) error {
	filenames, err := fs.Glob(seedFS, s.getSeedBasePath()+"*.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read seed files")
	}
	if len(filenames) == 0 {
		slog.Warn("no seed files for driver, skipping", slog.String("driver", s.profile.Driver))
		return nil
	}
	sort.Strings(filenames)

	var statements []string
	for _, filename := range filenames {
		data, err := seedFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "failed to read seed file, filename=%s", filename)
		}
		statements = append(statements, splitSQL(string(data))...)
	}
	return s.driver.ExecScript(ctx, statements)
}

// splitSQL splits a script into statements on semicolons outside string
// literals. Line comments are dropped.
func splitSQL(script string) []string {
	var (
		statements []string
		current    strings.Builder
		inQuote    bool
	)
	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		for i := 0; i < len(line); i++ {
			ch := line[i]
			if !inQuote && ch == '-' && i+1 < len(line) && line[i+1] == '-' {
				break
			}
			if ch == '\'' {
				inQuote = !inQuote
			}
			if ch == ';' && !inQuote {
				flush()
				continue
			}
			current.WriteByte(ch)
		}
		current.WriteByte('\n')
	}
	flush()
	return statements
}

package test

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"
	"github.com/lithammer/shortuuid/v4"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

var (
	pgOnce    sync.Once
	pgBaseDSN string
	pgErr     error
)

// startPostgres boots one container per test binary. Ryuk removes it when
// the binary exits.
func startPostgres() (string, error) {
	pgOnce.Do(func() {
		if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
			pgBaseDSN = dsn
			return
		}
		ctx := context.Background()
		container, err := postgres.Run(ctx, postgresImage,
			testcontainers.WithImage(postgresImage),
			postgres.WithDatabase("cartsync"),
			postgres.WithUsername("cartsync"),
			postgres.WithPassword("cartsync"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			pgErr = err
			return
		}
		pgBaseDSN, pgErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	return pgBaseDSN, pgErr
}

// GetPostgresDSN returns the DSN of a database created for t alone, so
// parallel tests never see each other's carts.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	base, err := startPostgres()
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	admin, err := sql.Open("postgres", base)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}
	defer admin.Close()

	name := "cartsync_" + strings.ToLower(shortuuid.New())
	if _, err := admin.ExecContext(t.Context(), "CREATE DATABASE "+name); err != nil {
		t.Fatalf("failed to create database %s: %v", name, err)
	}

	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("invalid postgres dsn: %v", err)
	}
	u.Path = "/" + name
	return u.String()
}

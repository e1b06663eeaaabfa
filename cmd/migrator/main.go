// Package main applies the cart snapshot schema migrations to PostgreSQL.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/abgdnv/bathifarms/pkg/bootstrap"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	databaseURLFlag    = "database-url"
	migrationsPathFlag = "migrations-path"
	downFlag           = "down"

	databaseURLEnv = "STOREFRONT_DATABASE_URL"
)

type flags struct {
	databaseURL    string
	migrationsPath string
	down           bool
}

func main() {
	slog.SetDefault(bootstrap.NewLogger("info"))
	f := parseFlags()
	if err := validateFlags(f); err != nil {
		slog.Error("invalid arguments", "error", err)
		os.Exit(2)
	}
	if err := makeMigrations(f); err != nil {
		slog.Error("failed to migrate", "error", err)
		os.Exit(1)
	}
}

// migrationLogger routes golang-migrate output to slog.
type migrationLogger struct {
	logger *slog.Logger
}

func (l *migrationLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrationLogger) Verbose() bool {
	return true
}

func parseFlags() flags {
	databaseURL := pflag.StringP(databaseURLFlag, "d", os.Getenv(databaseURLEnv), "PostgreSQL connection URL")
	migrationsPath := pflag.StringP(migrationsPathFlag, "m", "migrations", "directory with the SQL migrations")
	down := pflag.Bool(downFlag, false, "roll back the latest migration instead of applying pending ones")
	pflag.Parse()
	return flags{databaseURL: *databaseURL, migrationsPath: *migrationsPath, down: *down}
}

func validateFlags(f flags) error {
	var errs []error
	if f.databaseURL == "" {
		errs = append(errs, fmt.Errorf("--%s flag or %s: required", databaseURLFlag, databaseURLEnv))
	}
	if f.migrationsPath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", migrationsPathFlag))
	}
	return errors.Join(errs...)
}

// pgxURL switches a postgres:// URL to the scheme registered by the pgx/v5 driver.
func pgxURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

func makeMigrations(f flags) error {
	m, err := migrate.New("file://"+f.migrationsPath, pgxURL(f.databaseURL))
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()
	m.Log = &migrationLogger{logger: slog.Default()}

	if f.down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		m.Log.Printf("no migrations to apply")
		return nil
	}
	if err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	slog.Info("migration applied", "version", version, "dirty", dirty)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/BoostACart/internal/pkg/env"
)

var migrationsPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply BoostACart database migrations",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env.SetupEnvFile()
		},
	}
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "migrations directory (default migrations/<DB_DRIVER>)")

	rootCmd.AddCommand(upCmd(), downCmd(), gotoCmd(), statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// databaseURL builds the golang-migrate URL for the configured driver.
func databaseURL() (string, string, error) {
	driver := env.GetEnv("DB_DRIVER", "mysql")
	user := env.GetEnv("DB_USER", "boostacart")
	password := env.GetEnv("DB_PASSWORD", "boostacart")
	host := env.GetEnv("DB_HOST", "db")
	name := env.GetEnv("DB_NAME", "boostacart")

	switch driver {
	case "mysql":
		port := env.GetEnv("DB_PORT", "3306")
		log.Printf("Connecting to database: %s@%s:%s/%s", user, host, port, name)
		return driver, fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true", user, password, host, port, name), nil
	case "postgres":
		port := env.GetEnv("DB_PORT", "5432")
		log.Printf("Connecting to database: %s@%s:%s/%s", user, host, port, name)
		return driver, fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, env.GetEnv("DB_SSLMODE", "disable")), nil
	default:
		return "", "", fmt.Errorf("migrations are not provided for DB_DRIVER %q, sqlite uses AutoMigrate", driver)
	}
}

func newMigrate() (*migrate.Migrate, error) {
	driver, dbURL, err := databaseURL()
	if err != nil {
		return nil, err
	}
	path := migrationsPath
	if path == "" {
		path = "migrations/" + driver
	}
	m, err := migrate.New("file://"+path, dbURL)
	if err != nil {
		return nil, fmt.Errorf("initializing migrations: %w", err)
	}
	return m, nil
}

func withMigrate(fn func(m *migrate.Migrate) error) error {
	m, err := newMigrate()
	if err != nil {
		return err
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Error closing migration resources: %v, %v", sourceErr, dbErr)
		}
	}()
	return fn(m)
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(func(m *migrate.Migrate) error {
				err := m.Up()
				if errors.Is(err, migrate.ErrNoChange) {
					log.Println("No changes: database is up to date")
					return nil
				}
				if err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				log.Println("Migrations applied")
				return nil
			})
		},
	}
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(func(m *migrate.Migrate) error {
				if err := m.Steps(-1); err != nil {
					return fmt.Errorf("rolling back: %w", err)
				}
				log.Println("Last migration rolled back")
				return nil
			})
		},
	}
}

func gotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goto [version]",
		Short: "Migrate to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			return withMigrate(func(m *migrate.Migrate) error {
				err := m.Migrate(uint(version))
				if errors.Is(err, migrate.ErrNoChange) {
					log.Printf("No changes: database is already at version %d", version)
					return nil
				}
				if err != nil {
					return fmt.Errorf("migrating to version %d: %w", version, err)
				}
				log.Printf("Migrated to version %d", version)
				return nil
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrate(func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					log.Println("No migrations have been applied yet")
					return nil
				}
				if err != nil {
					return fmt.Errorf("reading version: %w", err)
				}
				dirtyStatus := ""
				if dirty {
					dirtyStatus = " (dirty)"
				}
				log.Printf("Current migration version: %d%s", version, dirtyStatus)
				return nil
			})
		},
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adinventory/backend/internal/infrastructure/config"
	"github.com/adinventory/backend/internal/infrastructure/logger"
	"github.com/adinventory/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the adinventory database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Sources: cli.EnvVars("ADS_MIGRATIONS_PATH"),
				Name:    "path",
				Aliases: []string{"p"},
				Value:   "",
				Usage:   "migrations directory (default: ./migrations)",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("ADS_LOG_LEVEL"),
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withMigrator(func(_ *cli.Command, m *migration.Migrator, _ *zap.Logger) error {
					return m.Up()
				}),
			},
			{
				Name:  "down",
				Usage: "roll back all migrations",
				Action: withMigrator(func(_ *cli.Command, m *migration.Migrator, _ *zap.Logger) error {
					return m.Down()
				}),
			},
			{
				Name:      "step",
				Usage:     "apply n migrations (negative rolls back)",
				ArgsUsage: "<n>",
				Action: withMigrator(func(cmd *cli.Command, m *migration.Migrator, _ *zap.Logger) error {
					n, err := strconv.Atoi(cmd.Args().First())
					if err != nil {
						return fmt.Errorf("invalid step count %q", cmd.Args().First())
					}
					return m.Steps(n)
				}),
			},
			{
				Name:      "goto",
				Usage:     "migrate to a specific version",
				ArgsUsage: "<version>",
				Action: withMigrator(func(cmd *cli.Command, m *migration.Migrator, _ *zap.Logger) error {
					version, err := strconv.ParseUint(cmd.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("invalid version %q", cmd.Args().First())
					}
					return m.GoTo(uint(version))
				}),
			},
			{
				Name:  "version",
				Usage: "show the current schema version",
				Action: withMigrator(func(_ *cli.Command, m *migration.Migrator, log *zap.Logger) error {
					state, err := m.State()
					if err != nil {
						return err
					}
					if state.Version == 0 {
						log.Info("No migrations applied")
						return nil
					}
					log.Info("Current migration version",
						zap.Uint("version", state.Version),
						zap.Bool("dirty", state.Dirty),
					)
					return nil
				}),
			},
			{
				Name:      "force",
				Usage:     "set the schema version without running migrations",
				ArgsUsage: "<version>",
				Action: withMigrator(func(cmd *cli.Command, m *migration.Migrator, _ *zap.Logger) error {
					version, err := strconv.Atoi(cmd.Args().First())
					if err != nil {
						return fmt.Errorf("invalid version %q", cmd.Args().First())
					}
					return m.Force(version)
				}),
			},
			{
				Name:  "drop",
				Usage: "drop every database object",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "confirm", Usage: "required to drop"},
				},
				Action: withMigrator(func(cmd *cli.Command, m *migration.Migrator, _ *zap.Logger) error {
					if !cmd.Bool("confirm") {
						return errors.New("drop cancelled; pass --confirm")
					}
					return m.Drop()
				}),
			},
			{
				Name:      "create",
				Usage:     "scaffold a new migration pair",
				ArgsUsage: "<name> [description]",
				Action: func(_ context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 1 {
						return errors.New("migration name required")
					}
					log, err := newLogger(cmd)
					if err != nil {
						return err
					}
					defer func() { _ = logger.Sync(log) }()

					mf, err := migration.CreateMigration(migrationsPath(cmd), cmd.Args().Get(0), cmd.Args().Get(1), time.Now())
					if err != nil {
						return err
					}
					log.Info("Migration created",
						zap.String("version", mf.Version),
						zap.String("up_file", mf.UpPath),
						zap.String("down_file", mf.DownPath),
					)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list migrations in the migrations directory",
				Action: func(_ context.Context, cmd *cli.Command) error {
					migrations, err := migration.ListMigrations(migrationsPath(cmd))
					if err != nil {
						return err
					}
					for _, m := range migrations {
						suffix := ""
						if !m.HasDown {
							suffix = " (no down migration)"
						}
						fmt.Printf("  - %s%s\n", m, suffix)
					}
					return nil
				},
			},
		},
	}
}

// withMigrator opens the database from configuration and hands a Migrator to fn
func withMigrator(fn func(*cli.Command, *migration.Migrator, *zap.Logger) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync(log) }()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}

		path := migrationsPath(cmd)
		log.Info("Migration CLI started", zap.String("command", cmd.Name), zap.String("migrations_path", path))

		m, err := migration.New(db, migration.Config{Path: path}, log)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()

		return fn(cmd, m, log)
	}
}

func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cmd.String("log-level"),
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
}

// migrationsPath resolves --path, then ./migrations, then migrations next to the binary
func migrationsPath(cmd *cli.Command) string {
	path := cmd.String("path")
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

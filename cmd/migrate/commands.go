package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kiosco/fiados/internal/infrastructure/logger"
	"github.com/kiosco/fiados/internal/infrastructure/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// migrator is what the schema commands drive; *migration.Migrator satisfies it.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

// opener connects to the ledger database. It is only called by commands
// that touch the schema; create and list work on the directory alone.
type opener func(log *zap.Logger, migrationsPath string) (migrator, error)

type app struct {
	open     opener
	out      io.Writer
	path     string
	logLevel string
	log      *zap.Logger
}

func newRootCommand(open opener, out io.Writer) *cobra.Command {
	a := &app{open: open, out: out, log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the fiados ledger schema on PostgreSQL",
		Long:          "SQLite ledgers build their schema when the server or fiadoctl opens them; these commands target PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			log, err := logger.New(&logger.Config{
				Level:      a.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.log = log

			path, err := resolveMigrationsPath(a.path)
			if err != nil {
				return err
			}
			a.path = path
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync(a.log)
		},
	}
	root.PersistentFlags().StringVar(&a.path, "path", "", "Migrations directory (default: ./migrations, then next to the binary)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.upCommand(),
		a.downCommand(),
		a.statusCommand(),
		a.forceCommand(),
		a.createCommand(),
		a.listCommand(),
	)
	return root
}

// withMigrator opens the database, runs fn and always closes the migrator
func (a *app) withMigrator(fn func(m migrator) error) error {
	m, err := a.open(a.log, a.path)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			a.log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}

func (a *app) upCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.withMigrator(func(m migrator) error { return m.Up() })
		},
	}
}

func (a *app) downCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "down [N]",
		Short: "Roll back the last N migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if all {
				if len(args) > 0 {
					return errors.New("pass either N or --all, not both")
				}
				return a.withMigrator(func(m migrator) error { return m.Down() })
			}

			n := 1
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 1 {
					return fmt.Errorf("invalid step count %q: must be a positive integer", args[0])
				}
				n = v
			}
			return a.withMigrator(func(m migrator) error { return m.Steps(-n) })
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Roll back every migration, dropping the ledger tables")
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"version"},
		Short:   "Show the applied schema version",
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.withMigrator(func(m migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				switch {
				case version == 0:
					fmt.Fprintln(a.out, "No migrations applied")
				case dirty:
					fmt.Fprintf(a.out, "Version %d (dirty: fix the schema, then run 'migrate force %d')\n", version, version)
				default:
					fmt.Fprintf(a.out, "Version %d\n", version)
				}
				return nil
			})
		},
	}
}

func (a *app) forceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it, clearing the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return a.withMigrator(func(m migrator) error { return m.Force(version) })
		},
	}
}

func (a *app) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME [DESCRIPTION]",
		Short: "Write a new timestamped up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(a.path, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created %s\n  %s\n  %s\n", mf.Version, mf.UpPath, mf.DownPath)
			return nil
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the migrations found in the migrations directory",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			names, err := migration.ListMigrations(a.path)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(a.out, "No migrations found")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}
}

// resolveMigrationsPath returns an absolute migrations directory: the flag
// value, ./migrations, or ../../migrations relative to the binary.
func resolveMigrationsPath(path string) (string, error) {
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
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return abs, nil
}

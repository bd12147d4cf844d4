// Package cli implements fiadoctl, the operator command line over the fiado ledger.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/domain/shared"
	"github.com/kiosco/fiados/internal/infrastructure/config"
	"github.com/kiosco/fiados/internal/infrastructure/logger"
	"github.com/kiosco/fiados/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// App is the ledger a command runs against
type App struct {
	Clientes *fiadoapp.ClienteService
	Ledger   *fiadoapp.LedgerService
	Queries  *fiadoapp.QueryService

	Close func() error
}

// Opener builds the App on first use. Commands that never touch the ledger
// (help, completion) never open the store.
type Opener func(ctx context.Context) (*App, error)

// runtime is the state shared by every command of one invocation
type runtime struct {
	open    Opener
	app     *App
	lang    string
	jsonOut bool
	printer *message.Printer
}

// Run executes fiadoctl with args, writing command output to out and errors to errOut.
func Run(ctx context.Context, open Opener, args []string, out, errOut io.Writer) error {
	rt := &runtime{open: open}
	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if rt.app != nil && rt.app.Close != nil {
		if cerr := rt.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "fiadoctl",
		Short: "Manage store credit (fiados) from the command line",
		Long: `fiadoctl reads and changes the fiado ledger directly: register clients,
extend credit, record payments, apply interest and settle a client's debt.
It uses the same configuration as the server (config.toml, .env, FIADOS_* variables).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			tag, err := language.Parse(rt.lang)
			if err != nil {
				return fmt.Errorf("invalid --lang %q: %w", rt.lang, err)
			}
			rt.printer = message.NewPrinter(tag)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&rt.lang, "lang", "es", "Language used to format amounts (BCP 47 tag)")
	root.PersistentFlags().BoolVar(&rt.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(newClienteCommand(rt))
	root.AddCommand(newFiadoCommand(rt))
	root.AddCommand(newStatsCommand(rt))
	return root
}

// ledger opens the App once per invocation
func (rt *runtime) ledger(ctx context.Context) (*App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	app, err := rt.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	rt.app = app
	return app, nil
}

// emit prints v as JSON when --json is set and calls text otherwise
func (rt *runtime) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	if rt.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(cmd.OutOrStdout())
	return nil
}

// Describe renders err for the terminal, prefixing ledger rejections with their code.
func Describe(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code + ": " + domainErr.Message
	}
	var storageErr *shared.StorageError
	if errors.As(err, &storageErr) && storageErr.Retryable() {
		return "the ledger is busy, retry the command: " + err.Error()
	}
	return err.Error()
}

// OpenFromConfig connects to the store described by the server configuration.
// SQLite stores are migrated in place; postgres stores expect cmd/migrate to
// have run unless database.auto_migrate is set.
func OpenFromConfig(_ context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&logger.Config{
		Level:  "warn",
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return nil, err
	}

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel("error")))
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate || db.Driver == config.DriverSQLite {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	scope := persistence.NewGormTransactionScope(db.DB,
		persistence.WithTxTimeout(cfg.Ledger.TxTimeout),
		persistence.WithLockTimeout(cfg.Ledger.LockTimeout),
		persistence.WithScopeLogger(log),
	)
	clienteRepo := persistence.NewGormClienteRepository(db.DB)

	app := &App{
		Clientes: fiadoapp.NewClienteService(scope, clienteRepo, nowFunc, log),
		Ledger: fiadoapp.NewLedgerService(scope,
			fiadoapp.WithClock(nowFunc),
			fiadoapp.WithLogger(log.Named("ledger")),
		),
		Queries: fiadoapp.NewQueryService(
			clienteRepo,
			persistence.NewGormFiadoRepository(db.DB),
			persistence.NewGormPagoRepository(db.DB),
			persistence.NewGormLedgerReportRepository(db.DB),
		),
		Close: func() error {
			_ = logger.Sync(log)
			return db.Close()
		},
	}
	log.Debug("Ledger opened", zap.String("driver", db.Driver))
	return app, nil
}

// Package server wires the banking server together: it loads the ledger
// file, builds the ledger with its optional journal and token grants, and
// runs the protocol engine behind the connection supervisor until the
// context is cancelled or a termination signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dmitrijs2005/gophbank/internal/logging"
	"github.com/dmitrijs2005/gophbank/internal/netx"
	"github.com/dmitrijs2005/gophbank/internal/server/config"
	"github.com/dmitrijs2005/gophbank/internal/server/journal"
	"github.com/dmitrijs2005/gophbank/internal/server/ledger"
	"github.com/dmitrijs2005/gophbank/internal/server/ledgerfile"
	"github.com/dmitrijs2005/gophbank/internal/server/notify"
	"github.com/dmitrijs2005/gophbank/internal/server/protocol"
	"github.com/dmitrijs2005/gophbank/internal/server/supervisor"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	file    *ledgerfile.File
	ledger  *ledger.Ledger
	journal *journal.Journal
	server  *supervisor.Server
}

// NewApp builds the application from c. Logs go to out as JSON; console
// confirmation codes are printed to out as well.
func NewApp(c *config.Config, out io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(out, c.LogLevel)

	file, err := ledgerfile.Load(c.LedgerFile)
	if err != nil {
		return nil, fmt.Errorf("ledger file init error: %w", err)
	}

	opts := []ledger.Option{
		ledger.WithLoginDelay(c.LoginDelay),
		ledger.WithLogger(logger),
	}

	var j *journal.Journal
	if c.JournalFile != "" {
		j, err = journal.Open(c.JournalFile)
		if err != nil {
			return nil, fmt.Errorf("journal init error: %w", err)
		}
		opts = append(opts, ledger.WithRecorder(j))
	}
	if c.TokenGrantURL != "" {
		opts = append(opts, ledger.WithTokenGranter(netx.NewTokenGranter(c.TokenGrantURL, c.TokenGrantInsecure)))
	}
	l := ledger.New(file.Accounts(), opts...)

	var n notify.Notifier = notify.NewConsole(out, logger)
	if c.MailEnabled {
		n = notify.NewSMTP(notify.SMTPConfig{
			Addr:     c.SMTPAddr,
			User:     c.SMTPUser,
			Password: c.SMTPPassword,
			From:     c.MailFrom,
		}, logger)
	}

	engine := protocol.NewEngine(l, file.Params(),
		protocol.WithNotifier(n),
		protocol.WithLogger(logger),
		protocol.WithMaxFrameSize(uint32(c.MaxFrameSize)))

	addr := c.ListenAddr
	if addr == "" {
		addr = ":" + strconv.Itoa(file.Port)
	}

	return &App{
		config:  c,
		logger:  logger,
		file:    file,
		ledger:  l,
		journal: j,
		server:  supervisor.New(addr, engine, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Ready is closed once the listener is bound.
func (app *App) Ready() <-chan struct{} {
	return app.server.Ready()
}

// Addr returns the bound listen address, or "" before Ready.
func (app *App) Addr() string {
	if a := app.server.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// Ledger exposes the running ledger.
func (app *App) Ledger() *ledger.Ledger {
	return app.ledger
}

// Run serves until ctx is cancelled or a signal arrives, then waits for
// pending token grants, saves the ledger if configured and closes the
// journal.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "ledger_file", app.config.LedgerFile, "accounts", app.ledger.Len())
	app.initSignalHandler(ctx, cancelFunc)

	runErr := app.server.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "server stopped", "error", runErr)
	}

	app.ledger.WaitGrants()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if app.config.SaveOnExit {
		if err := ledgerfile.Save(app.config.LedgerFile, app.file.WithAccounts(app.ledger.Snapshot())); err != nil {
			errs = append(errs, fmt.Errorf("save ledger: %w", err))
		} else {
			app.logger.Info(ctx, "ledger saved", "file", app.config.LedgerFile)
		}
	}
	if app.journal != nil {
		if err := app.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}

	app.logger.Info(ctx, "app stopped")
	return errors.Join(errs...)
}

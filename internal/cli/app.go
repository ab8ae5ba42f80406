// Package cli is the interactive front end: a small REPL over the sync
// manager, permission filter and login flow.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"
	"time"

	"github.com/jinxingedu/kindersync/internal/access"
	"github.com/jinxingedu/kindersync/internal/auth"
	"github.com/jinxingedu/kindersync/internal/config"
	"github.com/jinxingedu/kindersync/internal/logging"
	"github.com/jinxingedu/kindersync/internal/notify"
	"github.com/jinxingedu/kindersync/internal/oss"
	"github.com/jinxingedu/kindersync/internal/storage"
	"github.com/jinxingedu/kindersync/internal/syncer"

	_ "modernc.org/sqlite"
)

// remoteTransport is what the app needs from the wire layer: the sync
// manager's surface plus the health probe.
type remoteTransport interface {
	syncer.Transport
	Health(ctx context.Context, resource string) (time.Duration, error)
}

type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	store    storage.Store
	remote   remoteTransport
	manager  *syncer.Manager
	resolver *access.Resolver
	otp      *auth.OTPService
	broker   *auth.Broker
	notices  *notify.MemoryQueue

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, store, err := storage.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "failed to open local database", "dsn", cfg.DatabaseDSN, "error", err)
		return nil, err
	}

	queue := notify.NewMemoryQueue(100)
	transport := oss.NewTransport(cfg, log)
	manager := syncer.NewManager(ctx, cfg, store, transport, log, queue)

	return &App{
		config:   cfg,
		log:      log,
		db:       db,
		store:    store,
		remote:   transport,
		manager:  manager,
		resolver: access.NewResolver(store, log),
		otp:      auth.NewOTPService(store, log),
		broker:   auth.NewBroker(cfg.BrokerURL),
		notices:  queue,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

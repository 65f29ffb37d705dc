package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/korpimaa/nightexpress/internal/casefile"
	"github.com/korpimaa/nightexpress/internal/envstruct"
	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/logging"
	"github.com/korpimaa/nightexpress/internal/pprofserver"
	"github.com/korpimaa/nightexpress/internal/sqlite"
	"github.com/korpimaa/nightexpress/internal/store"
)

type config struct {
	Addr      string `env:"NIGHTEXPRESS_ADDR" envDefault:"localhost:4000"`
	PprofPort string `env:"NIGHTEXPRESS_PPROF_PORT" envDefault:":6060"`
	SqliteURL string `env:"NIGHTEXPRESS_SQLITE_URL" envDefault:"./nightexpress.sqlite"`
}

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	store          *store.Store
	bundle         *casefile.Bundle
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "parse config")
	}

	// pprof listens on localhost so that it's not open to the world.
	pprofserver.Launch(cfg.PprofPort, logger)

	dbs, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := dbs.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()

	st := store.NewStore(dbs, logger)
	defer st.Close()

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	bundle, err := casefile.MidnightExpress()
	if err != nil {
		return errors.Wrap(err, "load case bundle")
	}

	app := &application{
		logger:         logger,
		sessionManager: sessionManager,
		store:          st,
		bundle:         bundle,
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}))
	logger := slog.New(loggerHandler)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error(err.Error())
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server failed", errors.SlogError(err))
		os.Exit(1)
	}
}

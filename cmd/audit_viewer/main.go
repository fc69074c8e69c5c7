package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"webomatic/internal/config"
	"webomatic/internal/database"
	"webomatic/internal/logger"
	"webomatic/internal/metrics"
)

func main() {
	fs := config.Flags("audit_viewer")
	addr := fs.String("addr", "0.0.0.0:8080", "address to listen on")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	c, err := config.Load(fs)
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	if c.Database.DSN == "" {
		log.Fatal("database.dsn is not set (config.yaml or WEBOMATIC_DATABASE_DSN)")
	}

	loggerManager, err := logger.NewLoggerManagerWithLevel(c.LogFilePath, logger.LogLevel(strings.ToUpper(c.LogLevel)))
	if err != nil {
		log.Fatal("Error initializing logger: ", err)
	}
	defer loggerManager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, c.Database.DSN)
	if err != nil {
		loggerManager.LogError(err, "Error connecting to database")
		return
	}
	defer db.Close()
	loggerManager.Info("connected to database")

	srv, err := newServer(database.NewDatabaseManager(db, true, loggerManager), loggerManager)
	if err != nil {
		loggerManager.LogError(err, "parse templates")
		return
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.routes(metrics.New()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	loggerManager.Info("audit viewer listening on http://%s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		loggerManager.LogError(err, "server failed")
	}
}

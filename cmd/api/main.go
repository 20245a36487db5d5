package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpcaldeira/reserva/internal/backup"
	backupStore "github.com/jpcaldeira/reserva/internal/backup/store"
	"github.com/jpcaldeira/reserva/internal/config"
	"github.com/jpcaldeira/reserva/internal/database"
	reservaHttp "github.com/jpcaldeira/reserva/internal/http"
	backupHandler "github.com/jpcaldeira/reserva/internal/http/backup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := backupStore.New(db)
	backupService := backup.NewService(store, store)

	backupH := backupHandler.NewHandler(backupService, cfg.Backup.MaxUploadBytes)

	router := reservaHttp.New(backupH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/daesung-dev/anshim/internal/chat"
	chatStore "github.com/daesung-dev/anshim/internal/chat/store"
	"github.com/daesung-dev/anshim/internal/config"
	"github.com/daesung-dev/anshim/internal/database"
	"github.com/daesung-dev/anshim/internal/dispute"
	disputeStore "github.com/daesung-dev/anshim/internal/dispute/store"
	"github.com/daesung-dev/anshim/internal/escrow"
	escrowStore "github.com/daesung-dev/anshim/internal/escrow/store"
	"github.com/daesung-dev/anshim/internal/export"
	"github.com/daesung-dev/anshim/internal/gateway"
	anshimHttp "github.com/daesung-dev/anshim/internal/http"
	chatHandler "github.com/daesung-dev/anshim/internal/http/chat"
	disputeHandler "github.com/daesung-dev/anshim/internal/http/dispute"
	escrowHandler "github.com/daesung-dev/anshim/internal/http/escrow"
	exportHandler "github.com/daesung-dev/anshim/internal/http/export"
	reconcileHandler "github.com/daesung-dev/anshim/internal/http/reconcile"
	"github.com/daesung-dev/anshim/internal/reconcile"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Secret, cfg.Gateway.Timeout)

	var (
		escrowService    = escrow.NewService(escrowStore.New(db), gw, escrow.FeeSchedule{RateBps: cfg.Escrow.FeeRateBps})
		chatService      = chat.NewService(chatStore.New(db), escrowService)
		disputeService   = dispute.NewService(disputeStore.New(db), escrowService)
		reconcileService = reconcile.NewService(escrowService)
		exportService    = export.NewService(escrowService)
	)

	var (
		escrowH    = escrowHandler.NewHandler(escrowService)
		chatH      = chatHandler.NewHandler(chatService)
		disputeH   = disputeHandler.NewHandler(disputeService)
		reconcileH = reconcileHandler.NewHandler(reconcileService)
		exportH    = exportHandler.NewHandler(exportService)
	)

	router := anshimHttp.New(cfg.Auth.JWTSecret, escrowH, chatH, disputeH, reconcileH, exportH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

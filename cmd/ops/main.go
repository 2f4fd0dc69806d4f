package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/daesung-dev/anshim/cmd/ops/internal/view"
	"github.com/daesung-dev/anshim/internal/chat"
	chatStore "github.com/daesung-dev/anshim/internal/chat/store"
	"github.com/daesung-dev/anshim/internal/config"
	"github.com/daesung-dev/anshim/internal/database"
	"github.com/daesung-dev/anshim/internal/dispute"
	disputeStore "github.com/daesung-dev/anshim/internal/dispute/store"
	"github.com/daesung-dev/anshim/internal/escrow"
	escrowStore "github.com/daesung-dev/anshim/internal/escrow/store"
	"github.com/daesung-dev/anshim/internal/gateway"
	"github.com/daesung-dev/anshim/internal/reconcile"
)

type model struct {
	escrowService    *escrow.Service
	chatService      *chat.Service
	disputeService   *dispute.Service
	reconcileService *reconcile.Service

	currentView View

	escrowsView    view.EscrowsModel
	disputesView   view.DisputesModel
	settlementView view.SettlementModel

	resolverID uuid.UUID
}

type View int

const (
	ViewMenu       View = 0
	ViewEscrows    View = 1
	ViewDisputes   View = 2
	ViewSettlement View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	resolverID, err := uuid.Parse(cfg.Ops.ResolverID)
	if err != nil {
		slog.Error("OPS_RESOLVER_ID must be a valid uuid", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Secret, cfg.Gateway.Timeout)

	escrowSvc := escrow.NewService(escrowStore.New(db), gw, escrow.FeeSchedule{RateBps: cfg.Escrow.FeeRateBps})
	chatSvc := chat.NewService(chatStore.New(db), escrowSvc)
	disputeSvc := dispute.NewService(disputeStore.New(db), escrowSvc)
	reconcileSvc := reconcile.NewService(escrowSvc)

	return model{
		escrowService:    escrowSvc,
		chatService:      chatSvc,
		disputeService:   disputeSvc,
		reconcileService: reconcileSvc,
		currentView:      ViewMenu,
		escrowsView:      view.NewEscrowsModel(escrowSvc, chatSvc),
		disputesView:     view.NewDisputesModel(disputeSvc, resolverID),
		settlementView:   view.NewSettlementModel(reconcileSvc),
		resolverID:       resolverID,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewEscrows
				m.escrowsView = view.NewEscrowsModel(m.escrowService, m.chatService)

				return m, m.escrowsView.Init()
			case "2":
				m.currentView = ViewDisputes
				m.disputesView = view.NewDisputesModel(m.disputeService, m.resolverID)

				return m, m.disputesView.Init()
			case "3":
				m.currentView = ViewSettlement
				m.settlementView = view.NewSettlementModel(m.reconcileService)

				return m, m.settlementView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewEscrows:
		var newModel tea.Model
		newModel, cmd = m.escrowsView.Update(msg)
		m.escrowsView = newModel.(view.EscrowsModel)
	case ViewDisputes:
		var newModel tea.Model
		newModel, cmd = m.disputesView.Update(msg)
		m.disputesView = newModel.(view.DisputesModel)
	case ViewSettlement:
		var newModel tea.Model
		newModel, cmd = m.settlementView.Update(msg)
		m.settlementView = newModel.(view.SettlementModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Anshim Ops Console\n\n" +
				"1. Browse Escrows\n" +
				"2. Dispute Queue\n" +
				"3. Import Settlement File\n\n" +
				"q. Quit",
		)
	case ViewEscrows:
		return view.Frame(m.escrowsView)
	case ViewDisputes:
		return view.Frame(m.disputesView)
	case ViewSettlement:
		return view.Frame(m.settlementView)
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run ops console", "error", err)
		os.Exit(1)
	}
}

package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/daesung-dev/anshim/internal/chat"
	"github.com/daesung-dev/anshim/internal/escrow"
)

type escrowsState int

const (
	escrowsStateBrowse escrowsState = iota
	escrowsStateDetail
)

type EscrowsModel struct {
	CommonModel
	escrowService *escrow.Service
	chatService   *chat.Service

	state escrowsState
	table table.Model
	txs   []*escrow.Transaction

	// Filter cycling
	statusFilterIdx int

	filter  escrow.ListFilter
	loading bool
	err     error

	detail *escrowDetail
}

// escrowDetail is the loaded side panel: ledger balances and the tail of
// the conversation for the selected escrow.
type escrowDetail struct {
	tx       *escrow.Transaction
	balances map[escrow.Account]int64
	messages []*chat.Message
}

var escrowStatusFilters = []*escrow.Status{
	nil,
	new(escrow.StatusInitiated),
	new(escrow.StatusFunded),
	new(escrow.StatusInProgress),
	new(escrow.StatusCompleted),
	new(escrow.StatusDisputed),
}

var escrowStatusLabels = []string{"All", "Initiated", "Funded", "In Progress", "Completed", "Disputed"}

func NewEscrowsModel(escrowSvc *escrow.Service, chatSvc *chat.Service) EscrowsModel {
	columns := []table.Column{
		{Title: "Number", Width: 16},
		{Title: "Status", Width: 12},
		{Title: "Total", Width: 16},
		{Title: "Released", Width: 16},
		{Title: "Created", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return EscrowsModel{
		escrowService: escrowSvc,
		chatService:   chatSvc,
		table:         t,
	}
}

func (m EscrowsModel) Title() string { return "Escrows" }
func (m EscrowsModel) ShortHelp() string {
	if m.state == escrowsStateDetail {
		return "Esc: close detail"
	}

	return "Esc: back | enter: detail | s: status filter | r: refresh"
}

func (m EscrowsModel) Init() tea.Cmd {
	return m.loadEscrowsCmd()
}

func (m EscrowsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadEscrowsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.txs = msg.txs
		m.err = nil
		m.refreshTable()

		return m, nil

	case loadDetailMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.detail = msg.detail
		m.state = escrowsStateDetail
		m.table.Blur()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.state == escrowsStateDetail {
			if keyMsg.Type == tea.KeyEsc {
				m.state = escrowsStateBrowse
				m.detail = nil
				m.table.Focus()
			}

			return m, nil
		}

		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadEscrowsCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(escrowStatusFilters)
			m.filter.Status = escrowStatusFilters[m.statusFilterIdx]

			return m, m.loadEscrowsCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx >= 0 && idx < len(m.txs) {
				return m, m.loadDetailCmd(m.txs[idx])
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m EscrowsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading escrows...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Filter: [s] Status: %s", activeStyle(escrowStatusLabels[m.statusFilterIdx]))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == escrowsStateDetail && m.detail != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(64).
			Render(m.detail.render())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (d *escrowDetail) render() string {
	var sb strings.Builder

	t := d.tx

	fmt.Fprintf(&sb, "%s  [%s]\n", t.Number, t.Status)
	fmt.Fprintf(&sb, "Total: %s  Fee: %s  Payout: %s\n\n", FormatWon(t.TotalAmount), FormatWon(t.PlatformFee), FormatWon(t.PartnerPayout))

	sb.WriteString("Milestones:\n")

	for _, ms := range t.Milestones {
		fmt.Fprintf(&sb, "  %d. %-24s %-12s %s\n", ms.Position+1, ms.Name, ms.Status, FormatWon(ms.Amount))
	}

	sb.WriteString("\nLedger:\n")

	for _, acct := range []escrow.Account{escrow.AccountCustody, escrow.AccountPartnerPayout, escrow.AccountPlatformRevenue, escrow.AccountCustomerRefund} {
		fmt.Fprintf(&sb, "  %-18s %s\n", acct, FormatWon(d.balances[acct]))
	}

	if len(d.messages) > 0 {
		sb.WriteString("\nRecent messages:\n")

		for _, msg := range d.messages {
			fmt.Fprintf(&sb, "  [%s] %s\n", msg.Type, msg.Content)
		}
	}

	return sb.String()
}

func (m *EscrowsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))

	for _, t := range m.txs {
		rows = append(rows, table.Row{
			t.Number,
			string(t.Status),
			FormatWon(t.TotalAmount),
			FormatWon(t.ReleasedAmount()),
			FormatDate(t.CreatedAt),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadEscrowsMsg struct {
	txs []*escrow.Transaction
	err error
}

func (m EscrowsModel) loadEscrowsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.escrowService.List(ctx, m.filter)

		return loadEscrowsMsg{txs: txs, err: err}
	}
}

type loadDetailMsg struct {
	detail *escrowDetail
	err    error
}

const detailMessageTail = 8

func (m EscrowsModel) loadDetailCmd(t *escrow.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		d := &escrowDetail{tx: t, balances: make(map[escrow.Account]int64)}

		for _, acct := range []escrow.Account{escrow.AccountCustody, escrow.AccountPartnerPayout, escrow.AccountPlatformRevenue, escrow.AccountCustomerRefund} {
			balance, err := m.escrowService.Balance(ctx, t.ID, acct)
			if err != nil {
				return loadDetailMsg{err: err}
			}

			d.balances[acct] = balance
		}

		msgs, err := m.chatService.History(ctx, t.ID)
		if err != nil {
			return loadDetailMsg{err: err}
		}

		if len(msgs) > detailMessageTail {
			msgs = msgs[len(msgs)-detailMessageTail:]
		}

		d.messages = msgs

		return loadDetailMsg{detail: d}
	}
}

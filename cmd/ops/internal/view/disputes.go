package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/dispute"
	"github.com/daesung-dev/anshim/internal/escrow"
)

type disputesState int

const (
	disputesStateBrowse disputesState = iota
	disputesStateResolve
)

type DisputesModel struct {
	CommonModel
	disputeService *dispute.Service
	resolverID     uuid.UUID

	state    disputesState
	table    table.Model
	disputes []*dispute.Dispute
	form     *huh.Form

	loading bool
	err     error
	status  string

	// Form bindings
	formOutcome string
	formConfirm bool
}

func NewDisputesModel(disputeSvc *dispute.Service, resolverID uuid.UUID) DisputesModel {
	columns := []table.Column{
		{Title: "Opened", Width: 12},
		{Title: "Escrow", Width: 38},
		{Title: "Reason", Width: 20},
		{Title: "Description", Width: 40},
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

	return DisputesModel{
		disputeService: disputeSvc,
		resolverID:     resolverID,
		table:          t,
	}
}

func (m DisputesModel) Title() string { return "Dispute Queue" }
func (m DisputesModel) ShortHelp() string {
	if m.state == disputesStateResolve {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | r: refresh | enter: resolve"
}

func (m DisputesModel) Init() tea.Cmd {
	return m.loadDisputesCmd()
}

func (m DisputesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDisputesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.disputes = msg.disputes
		m.err = nil
		m.refreshTable()

		return m, nil

	case resolveMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error resolving: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Resolved: escrow now %s", msg.status)
		}

		m.state = disputesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadDisputesCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case disputesStateBrowse:
		return m.updateBrowse(msg)
	case disputesStateResolve:
		return m.updateResolve(msg)
	}

	return m, nil
}

func (m DisputesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadDisputesCmd()
		case "enter":
			return m.enterResolveMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DisputesModel) enterResolveMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.disputes) {
		return m, nil
	}

	m.formOutcome = string(escrow.ResolutionReleaseToPartner)
	m.formConfirm = false

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("outcome").
				Title("Resolution").
				Options(
					huh.NewOption("Release remainder to partner", string(escrow.ResolutionReleaseToPartner)),
					huh.NewOption("Refund remainder to customer", string(escrow.ResolutionRefundToCustomer)),
				).
				Value(&m.formOutcome),

			huh.NewConfirm().
				Key("confirm").
				Title("Apply this resolution? It cannot be undone.").
				Value(&m.formConfirm),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = disputesStateResolve
	m.table.Blur()

	return m, m.form.Init()
}

func (m DisputesModel) updateResolve(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = disputesStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.formConfirm {
		m.state = disputesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	return m, m.resolveCmd()
}

func (m DisputesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading disputes...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := tableView

	if m.state == disputesStateResolve && m.form != nil {
		idx := m.table.Cursor()

		desc := ""
		if idx >= 0 && idx < len(m.disputes) {
			desc = m.disputes[idx].Description
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(54).
			Render(fmt.Sprintf("Resolve Dispute\n\nClaim: %s\n\n%s", desc, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *DisputesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.disputes))

	for _, d := range m.disputes {
		rows = append(rows, table.Row{
			FormatDate(d.CreatedAt),
			d.TransactionID.String(),
			string(d.Reason),
			d.Description,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadDisputesMsg struct {
	disputes []*dispute.Dispute
	err      error
}

func (m DisputesModel) loadDisputesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		disputes, err := m.disputeService.ListOpen(ctx)

		return loadDisputesMsg{disputes: disputes, err: err}
	}
}

type resolveMsg struct {
	status escrow.Status
	err    error
}

func (m DisputesModel) resolveCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.disputes) {
		return nil
	}

	d := m.disputes[idx]
	outcome := escrow.Resolution(m.formOutcome)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		t, err := m.disputeService.Resolve(ctx, d.ID, m.resolverID, outcome)
		if err != nil {
			return resolveMsg{err: err}
		}

		return resolveMsg{status: t.Status}
	}
}

package view

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/daesung-dev/anshim/internal/reconcile"
)

type SettlementModel struct {
	CommonModel
	reconcileService *reconcile.Service

	form    *huh.Form
	running bool
	result  *reconcile.Result
	err     error

	// Form bindings
	formPath string
}

func NewSettlementModel(reconcileSvc *reconcile.Service) SettlementModel {
	m := SettlementModel{reconcileService: reconcileSvc}
	m.form = m.newForm()

	return m
}

func (m SettlementModel) newForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("path").
				Title("Settlement file").
				Placeholder("/path/to/settlement.csv").
				Value(&m.formPath).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("path cannot be empty")
					}

					return nil
				}),
		),
	).WithWidth(60).WithShowHelp(false)
}

func (m SettlementModel) Title() string     { return "Import Settlement File" }
func (m SettlementModel) ShortHelp() string { return "Esc: back | enter: run" }

func (m SettlementModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m SettlementModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case settlementDoneMsg:
		m.running = false
		m.result = msg.result
		m.err = msg.err
		m.form = m.newForm()

		return m, m.form.Init()

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	if m.running {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.running = true

	return m, m.runCmd()
}

func (m SettlementModel) View() string {
	if m.running {
		return lipgloss.NewStyle().Padding(2).Render("Reconciling settlement file...")
	}

	var sb strings.Builder

	sb.WriteString(m.form.View())

	if m.err != nil {
		sb.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.result != nil {
		summary := fmt.Sprintf(
			"Rows: %d\nReplayed: %d\nSkipped: %d\nUnknown keys: %d",
			m.result.Rows, m.result.Replayed, m.result.Skipped, len(m.result.Unknown),
		)

		sb.WriteString("\n\n" + lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Render(summary))
	}

	return lipgloss.NewStyle().Padding(1).Render(sb.String())
}

// Messages

type settlementDoneMsg struct {
	result *reconcile.Result
	err    error
}

func (m SettlementModel) runCmd() tea.Cmd {
	path := m.formPath

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return settlementDoneMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := DbCtx()
		defer cancel()

		result, err := m.reconcileService.Import(ctx, f)

		return settlementDoneMsg{result: result, err: err}
	}
}

package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/jpcaldeira/reserva/cmd/tui/internal/view"
	"github.com/jpcaldeira/reserva/internal/backup"
	backupStore "github.com/jpcaldeira/reserva/internal/backup/store"
	"github.com/jpcaldeira/reserva/internal/config"
	"github.com/jpcaldeira/reserva/internal/database"
)

type model struct {
	backupService *backup.Service

	currentView View

	restoreView view.RestoreModel
	exportView  view.ExportModel
}

type View int

const (
	ViewMenu    View = 0
	ViewRestore View = 1
	ViewExport  View = 2
)

func initialModel() model {
	_ = godotenv.Load()

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

	store := backupStore.New(db)
	backupSvc := backup.NewService(store, store)

	return model{
		backupService: backupSvc,
		currentView:   ViewMenu,
		restoreView:   view.NewRestoreModel(backupSvc),
		exportView:    view.NewExportModel(backupSvc),
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
				m.currentView = ViewRestore
				m.restoreView = view.NewRestoreModel(m.backupService)

				return m, m.restoreView.Init()
			case "2":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.backupService)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewRestore:
		var newModel tea.Model
		newModel, cmd = m.restoreView.Update(msg)
		m.restoreView = newModel.(view.RestoreModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Reserva Console\n\n" +
				"1. Restore from Backup\n" +
				"2. Export Backup\n\n" +
				"q. Quit",
		)
	case ViewRestore:
		return m.restoreView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}

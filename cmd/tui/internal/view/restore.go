package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpcaldeira/reserva/internal/backup"
)

const restoreTimeout = 2 * time.Minute

// selectableClasses are the classes offered for manual selection; payments
// follow their booking automatically.
var selectableClasses = []backup.Class{
	backup.ClassClient,
	backup.ClassService,
	backup.ClassCategory,
	backup.ClassExpense,
	backup.ClassBooking,
}

type restoreState int

const (
	restoreStateFilePick restoreState = iota
	restoreStateLoading
	restoreStateSelect
	restoreStateConfirm
	restoreStateImporting
	restoreStateResult
)

type RestoreModel struct {
	CommonModel
	svc *backup.Service

	state      restoreState
	filePicker filepicker.Model

	session    *backup.Session
	classIdx   int
	recordList list.Model
	settings   bool
	warning    string

	form   *huh.Form
	doIt   bool
	status string
	err    error
}

func NewRestoreModel(svc *backup.Service) RestoreModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.AllowedTypes = []string{".json"}
	fp.SetHeight(15)

	return RestoreModel{
		svc:        svc,
		filePicker: fp,
	}
}

func (m RestoreModel) Title() string { return "Restore from Backup" }

func (m RestoreModel) ShortHelp() string {
	switch m.state {
	case restoreStateSelect:
		return "←/→: class | Space: toggle | a: all | n: none | s: settings | Enter: import | Esc: cancel"
	case restoreStateResult:
		return "Esc: back to menu"
	}

	return "Esc: back | Enter: select"
}

func (m RestoreModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m RestoreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == restoreStateSelect {
			return m.updateSelect(msg)
		}

	case sessionMsg:
		if msg.err != nil {
			m.state = restoreStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.session = msg.session
		m.state = restoreStateSelect
		m.classIdx = 0
		m.settings = false
		m.warning = ""
		m.rebuildList()

		return m, nil

	case importDoneMsg:
		m.state = restoreStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = importSummary(msg.stats)

		return m, nil
	}

	if m.state == restoreStateConfirm {
		return m.updateConfirm(msg)
	}

	if m.state != restoreStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = restoreStateLoading
		m.status = fmt.Sprintf("Reading %s...", path)

		return m, m.openCmd(path)
	}

	return m, cmd
}

func (m RestoreModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case restoreStateSelect, restoreStateResult, restoreStateConfirm:
		m.state = restoreStateFilePick
		m.session = nil
		m.err = nil
		m.status = ""
		m.warning = ""

		return m, m.filePicker.Init()
	}

	return m, Back
}

func (m RestoreModel) currentClass() backup.Class {
	return selectableClasses[m.classIdx]
}

func (m *RestoreModel) rebuildList() {
	class := m.currentClass()
	data := m.session.Data()

	items := make([]list.Item, data.Len(class))
	for i := range items {
		items[i] = recordItem{ref: backup.RecordRef{Class: class, Index: i}}
	}

	delegate := recordDelegate{session: m.session}
	m.recordList = list.New(items, delegate, 80, 18)
	m.recordList.Title = fmt.Sprintf("%s (%d)", class.DisplayName(), data.Len(class))
	m.recordList.SetShowStatusBar(false)
	m.recordList.SetFilteringEnabled(false)
	m.recordList.SetShowHelp(false)
}

func (m RestoreModel) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.warning = ""

	switch msg.String() {
	case "left", "h":
		if m.classIdx > 0 {
			m.classIdx--
			m.rebuildList()
		}

		return m, nil
	case "right", "l":
		if m.classIdx < len(selectableClasses)-1 {
			m.classIdx++
			m.rebuildList()
		}

		return m, nil
	case " ":
		return m.toggleCurrent()
	case "a":
		if _, err := m.session.Apply(backup.Action{Op: backup.OpSelectAll, Class: m.currentClass()}); err != nil {
			m.warning = err.Error()
		}

		return m, nil
	case "n":
		delta, err := m.session.Apply(backup.Action{Op: backup.OpDeselectAll, Class: m.currentClass()})
		if err != nil {
			m.warning = err.Error()
		} else if len(delta.Protected) > 0 {
			m.warning = fmt.Sprintf("%d record(s) kept: still referenced by selected records", len(delta.Protected))
		}

		return m, nil
	case "s":
		m.settings = !m.settings
		m.session.SetIncludeSettings(m.settings)

		return m, nil
	case "enter":
		m.form = m.buildConfirmForm()
		m.state = restoreStateConfirm

		return m, m.form.Init()
	}

	var cmd tea.Cmd
	m.recordList, cmd = m.recordList.Update(msg)

	return m, cmd
}

func (m RestoreModel) toggleCurrent() (tea.Model, tea.Cmd) {
	idx := m.recordList.Index()
	class := m.currentClass()

	op := backup.OpSelect
	if m.session.Selection().Has(class, idx) {
		op = backup.OpDeselect
	}

	if _, err := m.session.Apply(backup.Action{Op: op, Class: class, Index: idx}); err != nil {
		m.warning = err.Error()
	}

	return m, nil
}

func (m RestoreModel) buildConfirmForm() *huh.Form {
	sel := m.session.Selection()

	var total int
	for _, class := range selectableClasses {
		total += sel.Count(class)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Import %d selected record(s)?", total)).
				Description("Payments of selected bookings are imported automatically.").
				Affirmative("Import").
				Negative("Cancel").
				Value(&m.doIt),
		),
	)
}

func (m RestoreModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.doIt {
		m.state = restoreStateSelect
		return m, nil
	}

	m.state = restoreStateImporting
	m.status = "Importing..."

	return m, m.importCmd()
}

func (m RestoreModel) View() string {
	switch m.state {
	case restoreStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			"Select a backup file to restore:\n\n" + m.filePicker.View(),
		)
	case restoreStateLoading, restoreStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case restoreStateSelect:
		return m.viewSelect()
	case restoreStateConfirm:
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	case restoreStateResult:
		return m.viewResult()
	}

	return ""
}

func (m RestoreModel) viewSelect() string {
	tabs := ""

	for i, class := range selectableClasses {
		name := fmt.Sprintf(" %s (%d) ", class.DisplayName(), m.session.Selection().Count(class))
		if i == m.classIdx {
			name = lipgloss.NewStyle().Bold(true).Underline(true).Render(name)
		}

		tabs += name
	}

	settingsLine := "[ ] Import settings (press s)"
	if m.settings {
		settingsLine = "[x] Import settings (press s)"
	}

	body := tabs + "\n\n" + m.recordList.View() + "\n" + settingsLine

	if m.warning != "" {
		body += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("! "+m.warning)
	}

	return lipgloss.NewStyle().Padding(1).Render(body)
}

func (m RestoreModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	return style.Render(
		lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status) +
			"\n\n(Esc to go back)",
	)
}

func importSummary(stats *backup.Stats) string {
	s := "Import complete."

	for _, class := range backup.Classes {
		if n := stats.Written[class]; n > 0 {
			s += fmt.Sprintf(" %s: %d.", class.DisplayName(), n)
		}
	}

	if stats.SettingsApplied {
		s += " Settings applied."
	}

	return s
}

// Messages

type sessionMsg struct {
	session *backup.Session
	err     error
}

type importDoneMsg struct {
	stats *backup.Stats
	err   error
}

func (m RestoreModel) openCmd(path string) tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return sessionMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()

		session, err := svc.Open(ctx, f)
		if err != nil {
			return sessionMsg{err: err}
		}

		return sessionMsg{session: session}
	}
}

func (m RestoreModel) importCmd() tea.Cmd {
	svc := m.svc
	session := m.session

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()

		stats, err := svc.Import(ctx, session)
		if err != nil {
			return importDoneMsg{err: err}
		}

		return importDoneMsg{stats: stats}
	}
}

// Record list item

type recordItem struct {
	ref backup.RecordRef
}

func (i recordItem) Title() string       { return "" }
func (i recordItem) Description() string { return "" }
func (i recordItem) FilterValue() string { return "" }

// Record list delegate

type recordDelegate struct {
	session *backup.Session
}

func (d recordDelegate) Height() int                             { return 1 }
func (d recordDelegate) Spacing() int                            { return 0 }
func (d recordDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d recordDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(recordItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	marker := "[ ]"

	switch {
	case d.session.Mask().Duplicate(item.ref):
		marker = lipgloss.NewStyle().Faint(true).Render("[=]")
	case d.session.Selection().Has(item.ref.Class, item.ref.Index):
		marker = "[x]"
	}

	label := d.session.Data().Label(item.ref)
	if d.session.Mask().Duplicate(item.ref) {
		label = lipgloss.NewStyle().Faint(true).Render(label + "  (already exists)")
	}

	fmt.Fprintf(w, "%s%s %s\n", cursor, marker, label)
}

// Package ui is the terminal interface of the send workflow.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/mrsinham/dicomsend/internal/catalog"
	"github.com/mrsinham/dicomsend/internal/source"
	"github.com/mrsinham/dicomsend/internal/workflow"
)

// Controller is the part of the workflow the interface drives.
// *workflow.Machine implements it.
type Controller interface {
	SelectFolder(dir source.Directory) error
	Cancel() error
	SetSelection(studyUIDs []string) error
	Confirm() error
	Back() error
}

// SnapshotMsg carries a workflow snapshot into the program.
type SnapshotMsg workflow.Snapshot

type resultMsg struct{ err error }

// App renders workflow snapshots and turns keys into workflow operations.
type App struct {
	ctl  Controller
	snap workflow.Snapshot
	// form is the folder or study form of the current state, if any.
	form      *huh.Form
	formState workflow.State
	submitted bool
	folder    string
	selected  []string
	lastErr   error
	started   time.Time
	width     int
	quitting  bool
}

// New returns an App for ctl starting from snap.
func New(ctl Controller, snap workflow.Snapshot) *App {
	a := &App{ctl: ctl, snap: workflow.Snapshot{State: -1}}
	a.apply(snap)
	return a
}

func (a *App) Init() tea.Cmd {
	if a.form != nil {
		return a.form.Init()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
	case SnapshotMsg:
		return a, a.apply(workflow.Snapshot(msg))
	case resultMsg:
		a.lastErr = msg.err
		if msg.err != nil && a.submitted {
			// The workflow refused the form; let the operator edit it.
			return a, a.buildForm()
		}
		return a, nil
	case tea.KeyMsg:
		if cmd, handled := a.key(msg); handled {
			return a, cmd
		}
	}

	if a.form == nil {
		return a, nil
	}
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}
	if a.form.State == huh.StateCompleted && !a.submitted {
		a.submitted = true
		return a, tea.Batch(cmd, a.submit())
	}
	return a, cmd
}

// key handles keys meaningful outside forms.
func (a *App) key(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		a.quitting = true
		if a.snap.State == workflow.Scanning || a.snap.State == workflow.Sending {
			return tea.Sequence(a.call(a.ctl.Cancel), tea.Quit), true
		}
		return tea.Quit, true
	case "esc":
		switch a.snap.State {
		case workflow.Scanning, workflow.Sending:
			return a.call(a.ctl.Cancel), true
		case workflow.ScanCompleteSelectionPending:
			return a.call(a.ctl.Back), true
		case workflow.WaitingForFolder:
			a.quitting = true
			return tea.Quit, true
		}
	case "enter":
		switch a.snap.State {
		case workflow.SendComplete, workflow.Failed:
			return a.call(a.ctl.Back), true
		}
	case "q":
		switch a.snap.State {
		case workflow.SendComplete, workflow.Failed, workflow.EnvironmentUnsupported:
			a.quitting = true
			return tea.Quit, true
		}
	}
	return nil, false
}

// call runs op outside the update loop: the workflow notifies observers
// synchronously and those notifications come back as messages.
func (a *App) call(op func() error) tea.Cmd {
	return func() tea.Msg { return resultMsg{err: op()} }
}

func (a *App) submit() tea.Cmd {
	switch a.formState {
	case workflow.WaitingForFolder:
		dir := source.Dir(a.folder)
		return a.call(func() error { return a.ctl.SelectFolder(dir) })
	case workflow.ScanCompleteSelectionPending:
		uids := append([]string(nil), a.selected...)
		return a.call(func() error {
			if err := a.ctl.SetSelection(uids); err != nil {
				return err
			}
			return a.ctl.Confirm()
		})
	}
	return nil
}

// apply adopts snap, building the form its state needs.
func (a *App) apply(snap workflow.Snapshot) tea.Cmd {
	entering := snap.State != a.snap.State
	a.snap = snap
	if !entering && snap.Warning == "" {
		return nil
	}
	if snap.State == workflow.Sending && a.formState != workflow.Sending {
		a.started = time.Now()
	}
	a.formState = snap.State
	a.lastErr = nil
	a.selected = snap.Selected
	return a.buildForm()
}

func (a *App) buildForm() tea.Cmd {
	a.submitted = false
	switch a.snap.State {
	case workflow.WaitingForFolder:
		a.form = folderForm(&a.folder)
	case workflow.ScanCompleteSelectionPending:
		if len(a.snap.Studies) == 0 {
			a.form = nil
			return nil
		}
		a.form = studyForm(a.snap, &a.selected)
	default:
		a.form = nil
		return nil
	}
	return a.form.Init()
}

func folderForm(folder *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("folder").
				Title("Folder to scan").
				Placeholder("/media/cdrom").
				Value(folder).
				Validate(validateFolder),
		),
	).WithShowHelp(false).WithShowErrors(true)
}

func validateFolder(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("folder is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

func studyForm(snap workflow.Snapshot, selected *[]string) *huh.Form {
	options := make([]huh.Option[string], 0, len(snap.Studies))
	for _, s := range snap.Studies {
		options = append(options, huh.NewOption(studyLabel(s), s.UID))
	}
	ms := huh.NewMultiSelect[string]().
		Key("studies").
		Title(studyTitle(snap.MaxStudies)).
		Options(options...).
		Value(selected)
	if snap.MaxStudies > 0 {
		ms = ms.Limit(snap.MaxStudies)
	}
	return huh.NewForm(huh.NewGroup(ms)).WithShowHelp(false).WithShowErrors(true)
}

func studyLabel(s catalog.Summary) string {
	return fmt.Sprintf("%s  %d series, %s files", s.Label, s.Series, humanize.Comma(int64(s.Files)))
}

func studyTitle(limit int) string {
	if limit > 0 {
		return fmt.Sprintf("Studies to send (at most %d)", limit)
	}
	return "Studies to send"
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("DICOMSEND"))
	sb.WriteString("\n")
	if a.snap.Folder != "" && a.snap.State != workflow.WaitingForFolder {
		sb.WriteString(subtitleStyle.Render("Folder: " + a.snap.Folder))
		sb.WriteString("\n\n")
	}

	s := a.snap
	switch s.State {
	case workflow.WaitingForFolder:
		if s.Failure != "" {
			sb.WriteString(errorStyle.Render(s.Failure) + "\n\n")
		}
		if a.form != nil {
			sb.WriteString(a.form.View())
		}
		sb.WriteString("\n" + hintStyle.Render("Enter: scan | Esc: quit"))
	case workflow.ScanStarting, workflow.Scanning:
		fmt.Fprintf(&sb, "Scanning... %s files found, %s in progress\n",
			humanize.Comma(s.Scan.Submitted), humanize.Comma(s.Scan.InFlight))
		fmt.Fprintf(&sb, "%d studies, %s other files, %s rejected\n\n",
			s.Scan.Studies, humanize.Comma(int64(s.Scan.Other)), humanize.Comma(int64(s.Scan.Rejected)))
		sb.WriteString(hintStyle.Render("Esc: cancel"))
	case workflow.ScanCompleteSelectionPending:
		if a.form == nil {
			fmt.Fprintf(&sb, "No studies found (%s files scanned).\n\n", humanize.Comma(s.Scan.Submitted))
			sb.WriteString(hintStyle.Render("Esc: choose another folder"))
			break
		}
		if s.Warning != "" {
			sb.WriteString(warningStyle.Render(s.Warning) + "\n\n")
		}
		sb.WriteString(a.form.View())
		sb.WriteString("\n" + hintStyle.Render("Space: toggle | Enter: send | Esc: back"))
	case workflow.SendStarting, workflow.Sending:
		sb.WriteString(renderBar(s.Send.Percent(), barWidth(a.width)))
		fmt.Fprintf(&sb, " %s\n\n", percentStyle.Render(fmt.Sprintf("%d%%", int(s.Send.Percent()))))
		fmt.Fprintf(&sb, "Instance %d/%d", s.Send.Sent, s.Send.Total)
		if !a.started.IsZero() {
			fmt.Fprintf(&sb, ", started %s", humanize.Time(a.started))
		}
		sb.WriteString("\n\n" + hintStyle.Render("Esc: cancel"))
	case workflow.SendComplete:
		sb.WriteString(successStyle.Render(fmt.Sprintf("Sent %s instances.", humanize.Comma(int64(s.Send.Sent)))))
		sb.WriteString("\n\n" + hintStyle.Render("Enter: send another folder | q: quit"))
	case workflow.Failed:
		sb.WriteString(errorStyle.Render("Failed: " + s.Failure))
		sb.WriteString("\n\n" + hintStyle.Render("Enter: start over | q: quit"))
	case workflow.EnvironmentUnsupported:
		sb.WriteString(errorStyle.Render("This environment cannot run the interactive workflow."))
	}
	if a.lastErr != nil {
		sb.WriteString("\n" + warningStyle.Render(a.lastErr.Error()))
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(sb.String())
}

func barWidth(width int) int {
	if width > 60 {
		return min(width/2, 60)
	}
	return 40
}

func renderBar(percent float64, width int) string {
	filled := min(int(percent/100*float64(width)), width)
	return barStyle.Render("["+strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled)+"]")
}

// Run drives m through a full-screen program until the operator quits or
// ctx is cancelled.
func Run(ctx context.Context, m *workflow.Machine) error {
	app := New(m, m.Snapshot())
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := m.Subscribe(func(s workflow.Snapshot) { p.Send(SnapshotMsg(s)) })
	defer unsubscribe()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running interface: %w", err)
	}
	if s := m.State(); s == workflow.Scanning || s == workflow.Sending {
		_ = m.Cancel()
	}
	return nil
}

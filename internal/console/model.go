// Package console is the terminal front-end: a home screen and a call
// form bound to one call controller.
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/acme/agent-ivr/internal/domain"
)

// Controller is the part of the call controller the console drives.
type Controller interface {
	StartCall(ctx context.Context, phoneNumber, countryCode string) error
	EndCall(ctx context.Context) error
	Reset()
	State() domain.CallState
	InFlight() bool
	Duration() time.Duration
}

// Notifications exposes the newest notification of the session.
type Notifications interface {
	Latest() (domain.Notification, bool)
}

type operation int

const (
	opNone operation = iota
	opStart
	opEnd
)

type startDoneMsg struct{ err error }

type endDoneMsg struct{ err error }

type tickMsg time.Time

const tickInterval = time.Second

// Model is the bubbletea model of the console.
type Model struct {
	ctx           context.Context
	controller    Controller
	notifications Notifications
	keys          KeyMap

	screen         domain.Screen
	countries      []domain.Country
	defaultCountry int
	countryIndex   int
	input          textinput.Model

	pending operation
	latest  domain.Notification
	hasNote bool
	width   int
}

// NewModel builds a model on the home screen. defaultCountryCode selects
// the initial entry of the country list.
func NewModel(ctx context.Context, controller Controller, notifications Notifications, defaultCountryCode string) Model {
	input := textinput.New()
	input.Placeholder = "Enter phone number"
	input.CharLimit = 15
	input.Width = 20

	countries := domain.Countries()
	index := 0
	for i, c := range countries {
		if c.Code == defaultCountryCode {
			index = i
			break
		}
	}

	return Model{
		ctx:            ctx,
		controller:     controller,
		notifications:  notifications,
		keys:           DefaultKeyMap,
		screen:         domain.ScreenHome,
		countries:      countries,
		defaultCountry: index,
		countryIndex:   index,
		input:          input,
	}
}

// Screen returns the visible screen.
func (model Model) Screen() domain.Screen { return model.screen }

// Country returns the selected country.
func (model Model) Country() domain.Country { return model.countries[model.countryIndex] }

// PhoneNumber returns the digits typed so far.
func (model Model) PhoneNumber() string { return model.input.Value() }

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return scheduleTick()
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if key.Matches(message, model.keys.Quit) {
			return model, tea.Quit
		}
		switch model.screen {
		case domain.ScreenHome:
			return model.updateHome(message)
		case domain.ScreenForm:
			return model.updateForm(message)
		}

	case startDoneMsg:
		model.pending = opNone
		model.refreshNotification()
		model.syncInput()

	case endDoneMsg:
		model.pending = opNone
		model.refreshNotification()
		model.syncInput()

	case tickMsg:
		model.refreshNotification()
		model.syncInput()
		return model, scheduleTick()

	case tea.WindowSizeMsg:
		model.width = message.Width
	}
	return model, nil
}

func (model Model) updateHome(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.GetStarted):
		model.screen = domain.ScreenForm
		return model, model.input.Focus()
	case message.String() == "q":
		return model, tea.Quit
	}
	return model, nil
}

func (model Model) updateForm(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := model.controller.State()
	busy := model.busy()

	switch {
	case key.Matches(message, model.keys.Start):
		if busy || state.Status.Active() {
			return model, nil
		}
		model.pending = opStart
		phone, code := model.input.Value(), model.Country().Code
		ctx, controller := model.ctx, model.controller
		return model, func() tea.Msg {
			return startDoneMsg{err: controller.StartCall(ctx, phone, code)}
		}

	case key.Matches(message, model.keys.End):
		if busy || state.CallID == "" {
			return model, nil
		}
		model.pending = opEnd
		ctx, controller := model.ctx, model.controller
		return model, func() tea.Msg {
			return endDoneMsg{err: controller.EndCall(ctx)}
		}

	case key.Matches(message, model.keys.Back):
		if busy || state.Status.Active() {
			return model, nil
		}
		model.controller.Reset()
		model.screen = domain.ScreenHome
		model.countryIndex = model.defaultCountry
		model.input.Reset()
		model.input.Blur()
		model.hasNote = false
		return model, nil

	case key.Matches(message, model.keys.PrevCountry), key.Matches(message, model.keys.NextCountry):
		if busy || state.Status.Active() {
			return model, nil
		}
		step := 1
		if key.Matches(message, model.keys.PrevCountry) {
			step = len(model.countries) - 1
		}
		model.countryIndex = (model.countryIndex + step) % len(model.countries)
		return model, nil
	}

	if busy || state.Status.Active() {
		return model, nil
	}

	var cmd tea.Cmd
	model.input, cmd = model.input.Update(message)
	if digits := domain.DigitsOnly(model.input.Value()); digits != model.input.Value() {
		model.input.SetValue(digits)
	}
	return model, cmd
}

// busy reports whether a start or end is pending, either from this model
// or from another client sharing the controller.
func (model Model) busy() bool {
	return model.pending != opNone || model.controller.InFlight()
}

func (model *Model) refreshNotification() {
	if model.notifications == nil {
		return
	}
	if n, ok := model.notifications.Latest(); ok {
		model.latest = n
		model.hasNote = true
	}
}

// syncInput locks the phone field while a call is active.
func (model *Model) syncInput() {
	if model.screen != domain.ScreenForm {
		return
	}
	if model.controller.State().Status.Active() {
		model.input.Blur()
		return
	}
	if !model.input.Focused() {
		model.input.Focus()
	}
}

// View implements tea.Model.
func (model Model) View() string {
	switch model.screen {
	case domain.ScreenForm:
		return model.viewForm()
	default:
		return model.viewHome()
	}
}

func (model Model) viewHome() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Agent IVR System"))
	b.WriteString("\n\n")
	b.WriteString(descriptionStyle.Render("Professional call management for seamless customer interactions."))
	b.WriteString("\n\n")
	b.WriteString("Ready to Get Started?\n\n")
	b.WriteString(helpStyle.Render("enter get started • q quit"))
	return panelStyle.Render(b.String())
}

func (model Model) viewForm() string {
	state := model.controller.State()
	country := model.Country()
	busy := model.busy()
	locked := busy || state.Status.Active()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Agent IVR Call"))
	b.WriteString("\n")
	b.WriteString(descriptionStyle.Render("Enter phone number to start call"))
	b.WriteString("\n\n")

	selector := fmt.Sprintf("%s %s (%s)", country.Flag, country.Name, country.Code)
	if !locked {
		selector = "◀ " + selector + " ▶"
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Country"), selector))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Phone"), country.Code+" "+model.input.View()))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Status"), badgeStyle(state.Status).Render(statusLabel(state.Status, model.pending))))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Duration"), FormatDuration(model.controller.Duration())))
	b.WriteString("\n")
	if state.Status == domain.CallStatusConnected {
		b.WriteString(successStyle.Render(fmt.Sprintf("Connected to %s %s", state.CountryCode, state.PhoneNumber)))
		b.WriteString("\n")
	}

	if model.hasNote {
		b.WriteString("\n")
		b.WriteString(renderNotification(model.latest))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(model.helpLine(state, busy)))
	return panelStyle.Render(b.String())
}

func (model Model) helpLine(state domain.CallState, busy bool) string {
	var parts []string
	if !busy && !state.Status.Active() {
		parts = append(parts, "enter start call", "←/→ country", "esc back")
	}
	if !busy && state.CallID != "" {
		parts = append(parts, "e end call")
	}
	parts = append(parts, "ctrl+c quit")
	return strings.Join(parts, " • ")
}

func statusLabel(status domain.CallStatus, pending operation) string {
	switch {
	case pending == opStart || status == domain.CallStatusCalling:
		return "Connecting..."
	case pending == opEnd:
		return "Ending..."
	case status == domain.CallStatusConnected:
		return "Call Active"
	case status == domain.CallStatusEnded:
		return "Call Ended"
	default:
		return "Ready"
	}
}

func renderNotification(n domain.Notification) string {
	text := n.Message
	if n.Title != "" {
		text = n.Title + ": " + n.Message
	}
	if n.Level == domain.NotificationError {
		return errorStyle.Render("✗ " + text)
	}
	return successStyle.Render("✓ " + text)
}

// FormatDuration renders d as mm:ss, or hh:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	hours, minutes, seconds := total/3600, (total/60)%60, total%60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the console.
type KeyMap struct {
	GetStarted  key.Binding
	Start       key.Binding
	End         key.Binding
	Back        key.Binding
	PrevCountry key.Binding
	NextCountry key.Binding
	Quit        key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	GetStarted: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "get started"),
	),
	Start: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "start call"),
	),
	End: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "end call"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	PrevCountry: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "prev country"),
	),
	NextCountry: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next country"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

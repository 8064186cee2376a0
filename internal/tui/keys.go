package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the reader's keyboard bindings.
type keyMap struct {
	Quit     key.Binding
	Open     key.Binding
	Back     key.Binding
	Next     key.Binding
	Previous key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "library"),
		),
		Next: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n", "next chapter"),
		),
		Previous: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p", "previous chapter"),
		),
	}
}

package ui

import "github.com/charmbracelet/bubbles/key"

var keys = struct {
	Quit         key.Binding
	PrevDay      key.Binding
	NextDay      key.Binding
	PrevWeek     key.Binding
	NextWeek     key.Binding
	Up           key.Binding
	Down         key.Binding
	Today        key.Binding
	Toggle       key.Binding
	Open         key.Binding
	Settings     key.Binding
	Refresh      key.Binding
	CloseOverlay key.Binding
}{
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	PrevDay:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/l", "day")),
	NextDay:      key.NewBinding(key.WithKeys("right", "l")),
	PrevWeek:     key.NewBinding(key.WithKeys("H", "pgup"), key.WithHelp("H/L", "week")),
	NextWeek:     key.NewBinding(key.WithKeys("L", "pgdown")),
	Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("j/k", "scroll")),
	Down:         key.NewBinding(key.WithKeys("down", "j")),
	Today:        key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
	Toggle:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Open:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Settings:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
	Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	CloseOverlay: key.NewBinding(key.WithKeys("esc", "s")),
}

func helpBindings() []key.Binding {
	return []key.Binding{
		keys.PrevDay, keys.PrevWeek, keys.Up, keys.Today,
		keys.Toggle, keys.Open, keys.Settings, keys.Refresh, keys.Quit,
	}
}

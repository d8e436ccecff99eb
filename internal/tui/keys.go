package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause     key.Binding
	Resume    key.Binding
	Mode      key.Binding
	Slower    key.Binding
	Faster    key.Binding
	BatchUp   key.Binding
	BatchDown key.Binding
	Remount   key.Binding
	Save      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Resume:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		Mode:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
		Slower:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "delay")),
		Faster:    key.NewBinding(key.WithKeys("-", "_")),
		BatchUp:   key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "batch")),
		BatchDown: key.NewBinding(key.WithKeys("[")),
		Remount:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unmount/remount")),
		Save:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save config")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Resume, k.Mode, k.Slower, k.BatchUp, k.Remount, k.Save, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

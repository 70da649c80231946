// Package keymap defines keybindings for the progress view.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings of the progress view.
type KeyMap struct {
	// Cancel stops the run between files and keeps the rows already stored.
	Cancel key.Binding

	// Details toggles the per-status counters.
	Details key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "cancel"),
		),
		Details: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "details"),
		),
	}
}

// ShortHelp returns the keybindings shown under the bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel, k.Details}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}

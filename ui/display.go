// Package ui renders the presentation state in the terminal with
// bubbletea and translates key presses into coordinator commands.
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TextDisplayedMsg carries a sentence to render.
type TextDisplayedMsg struct {
	Text string
}

// TextClearedMsg blanks the text area.
type TextClearedMsg struct{}

// ImagesDisplayedMsg carries the active slide's image layers. Nil
// layers blank the image area.
type ImagesDisplayedMsg struct {
	Layers []string
}

// TerminalSink implements the playback display contract by forwarding
// everything into the bubbletea program. The playback core calls it
// from timer goroutines; Send is the one thread-safe door into the UI.
type TerminalSink struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewTerminalSink creates a sink with no program attached. Calls
// before Attach are dropped.
func NewTerminalSink() *TerminalSink {
	return &TerminalSink{}
}

// Attach connects the sink to a running program's Send.
func (t *TerminalSink) Attach(send func(tea.Msg)) {
	t.mu.Lock()
	t.send = send
	t.mu.Unlock()
}

func (t *TerminalSink) post(msg tea.Msg) {
	t.mu.Lock()
	send := t.send
	t.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// DisplayText implements playback.DisplaySink.
func (t *TerminalSink) DisplayText(text string) {
	t.post(TextDisplayedMsg{Text: text})
}

// ClearText implements playback.DisplaySink.
func (t *TerminalSink) ClearText() {
	t.post(TextClearedMsg{})
}

// DisplayImages implements playback.DisplaySink.
func (t *TerminalSink) DisplayImages(layers []string) {
	t.post(ImagesDisplayedMsg{Layers: layers})
}

package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alphapresenter/alphapresenter/playback"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	sentenceStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Foreground(lipgloss.Color("252"))

	layerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))
)

// Presenter is the control surface: it shows the active slide's layers
// and sentence and drives the coordinator from the keyboard.
type Presenter struct {
	coordinator *playback.Coordinator
	voiceOver   *playback.VoiceOverPlayer
	cue         string

	slideIndex int
	slideTotal int
	text       string
	layers     []string
	track      string
	voice      string
	paused     bool
	finished   bool
	lastErr    error
	width      int
	height     int
}

// NewPresenter creates the model. The coordinator must already have
// its playlist set.
func NewPresenter(coordinator *playback.Coordinator, voiceOver *playback.VoiceOverPlayer) *Presenter {
	return &Presenter{
		coordinator: coordinator,
		voiceOver:   voiceOver,
		slideIndex:  -1,
		slideTotal:  coordinator.SlideCount(),
	}
}

// SetVoiceOverCue sets the track played by the voice-over key.
func (p *Presenter) SetVoiceOverCue(track string) {
	p.cue = track
}

// Init implements tea.Model. The show starts on the first slide.
func (p *Presenter) Init() tea.Cmd {
	return playback.ShowSlideCmd(p.coordinator, 0)
}

// Update implements tea.Model.
func (p *Presenter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return p, tea.Quit
		case "right", "l", " ":
			return p, playback.NextSlideCmd(p.coordinator)
		case "left", "h":
			return p, playback.PrevSlideCmd(p.coordinator)
		case "home", "g":
			return p, playback.ShowSlideCmd(p.coordinator, 0)
		case "c":
			return p, playback.ClearCmd(p.coordinator)
		case "p":
			paused := !p.paused
			p.paused = paused
			coordinator := p.coordinator
			return p, func() tea.Msg {
				if paused {
					coordinator.PauseAudio()
				} else {
					coordinator.ResumeAudio()
				}
				return nil
			}
		case "v":
			if p.cue != "" {
				p.voice = p.cue
				return p, playback.PlayVoiceOverCmd(p.voiceOver, p.cue, -1, 0)
			}
		case "s":
			return p, func() tea.Msg {
				p.voiceOver.Stop()
				return nil
			}
		}

	case playback.SlideChangedMsg:
		p.slideIndex = msg.Index
		p.slideTotal = msg.Total
		p.finished = false
		p.paused = false
		p.lastErr = nil

	case playback.SlideFinishedMsg:
		if msg.Index == p.slideIndex {
			p.finished = true
		}

	case playback.TrackChangedMsg:
		p.track = msg.TrackName

	case playback.VoiceOverFinishedMsg:
		if p.voice == msg.TrackName {
			p.voice = ""
		}

	case playback.PlaybackErrorMsg:
		p.lastErr = msg.Err

	case TextDisplayedMsg:
		p.text = msg.Text

	case TextClearedMsg:
		p.text = ""

	case ImagesDisplayedMsg:
		p.layers = msg.Layers
	}
	return p, nil
}

// View implements tea.Model.
func (p *Presenter) View() string {
	var b strings.Builder

	if p.slideIndex >= 0 {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Slide %d/%d", p.slideIndex+1, p.slideTotal)))
	} else {
		b.WriteString(titleStyle.Render("No slide"))
	}
	b.WriteString("\n\n")

	if len(p.layers) > 0 {
		b.WriteString(layerStyle.Render("layers: " + strings.Join(p.layers, " + ")))
		b.WriteString("\n")
	}

	if p.text != "" {
		b.WriteString(sentenceStyle.Render(p.text))
		b.WriteString("\n")
	}

	var status []string
	if p.track != "" {
		status = append(status, "♪ "+p.track)
	}
	if p.voice != "" {
		status = append(status, "voice: "+p.voice)
	}
	if p.paused {
		status = append(status, "paused")
	}
	if p.finished {
		status = append(status, "slide finished")
	}
	if len(status) > 0 {
		b.WriteString(statusStyle.Render(strings.Join(status, "  ")))
		b.WriteString("\n")
	}

	if p.lastErr != nil {
		b.WriteString(errorStyle.Render("error: " + p.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("→/space next · ← prev · g first · p pause · v voice-over · s stop cue · c clear · q quit"))
	return b.String()
}

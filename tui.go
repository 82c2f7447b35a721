package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dikta/session"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type AudioLevelMsg struct{ Level float64 }
type TranscriptionMsg struct {
	Text     string
	NoSpeech bool
}
type SessionErrorMsg struct{ Err error }
type tickMsg time.Time

// escCancelWindow is how quickly Escape must be pressed twice to abort
// the active recording.
const escCancelWindow = time.Second

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	standbyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	levelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	noSpeechStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	escStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

type tuiModel struct {
	recording   bool
	recordStart time.Time
	elapsed     float64
	audioLevel  float64
	msgCount    int
	lastText    string
	noSpeech    bool
	errText     string
	modeLine    string
	deviceLine  string
	helpLines   []string
	lastEsc     time.Time
	width       int
	height      int
	cancel      func()
}

func NewTUIProgram(modeLine, deviceLine string, helpLines []string, cancel func()) *tea.Program {
	m := tuiModel{
		modeLine:   modeLine,
		deviceLine: deviceLine,
		helpLines:  helpLines,
		cancel:     cancel,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			now := time.Now()
			if !m.lastEsc.IsZero() && now.Sub(m.lastEsc) <= escCancelWindow {
				m.lastEsc = time.Time{}
				cancel := m.cancel
				return m, func() tea.Msg {
					cancel()
					return nil
				}
			}
			m.lastEsc = now
		}

	case tickMsg:
		if m.recording {
			m.elapsed = time.Since(m.recordStart).Seconds()
		}
		return m, tuiTick()

	case RecordingStartMsg:
		m.recording = true
		m.recordStart = time.Now()
		m.elapsed = 0
		m.audioLevel = 0

	case RecordingStopMsg:
		m.recording = false
		m.audioLevel = 0

	case AudioLevelMsg:
		if m.recording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
		}

	case TranscriptionMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.noSpeech = msg.NoSpeech
		m.errText = ""

	case SessionErrorMsg:
		m.errText = msg.Err.Error()
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	if m.recording {
		b.WriteString(recStyle.Render(fmt.Sprintf("● REC %.1fs", m.elapsed)))
		b.WriteString("  " + levelStyle.Render(levelBar(m.audioLevel)))
	} else {
		b.WriteString(standbyStyle.Render("○ STANDBY"))
	}
	b.WriteString("\n\n")

	if m.modeLine != "" {
		b.WriteString(infoStyle.Render(m.modeLine) + "\n")
	}
	if m.deviceLine != "" {
		b.WriteString(standbyStyle.Render(m.deviceLine) + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.errText != "":
		b.WriteString(errStyle.Render("error: "+m.errText) + "\n")
	case m.noSpeech && m.msgCount > 0:
		b.WriteString(noSpeechStyle.Render("(no speech detected)") + "\n")
	case m.lastText != "":
		title := infoStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount))
		b.WriteString(title + "\n")
		wrapWidth := m.width - 2
		if wrapWidth < 10 {
			wrapWidth = 10
		}
		for _, line := range wrapText(m.lastText, wrapWidth) {
			b.WriteString(textStyle.Render(line) + "\n")
		}
	default:
		b.WriteString(standbyStyle.Render("No transcriptions yet") + "\n")
	}
	b.WriteString("\n")

	if m.recording && !m.lastEsc.IsZero() && time.Since(m.lastEsc) <= escCancelWindow {
		b.WriteString(escStyle.Render("esc again to cancel") + "\n")
	}

	for _, line := range m.helpLines {
		b.WriteString(helpStyle.Render(line) + "\n")
	}
	b.WriteString(helpStyle.Render("dikta " + version))

	return b.String()
}

func levelBar(level float64) string {
	n := int(level * 60)
	if n > 24 {
		n = 24
	}
	return strings.Repeat("▮", n)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// tuiSink forwards session events into the running TUI program.
type tuiSink struct{}

var _ session.EventSink = tuiSink{}

func (tuiSink) RecordingStart() { tuiSend(RecordingStartMsg{}) }
func (tuiSink) RecordingStop()  { tuiSend(RecordingStopMsg{}) }
func (tuiSink) AudioLevel(level float64) {
	tuiSend(AudioLevelMsg{Level: level})
}
func (tuiSink) Transcription(text string, noSpeech bool) {
	tuiSend(TranscriptionMsg{Text: text, NoSpeech: noSpeech})
}
func (tuiSink) SessionError(err error) {
	tuiSend(SessionErrorMsg{Err: err})
}

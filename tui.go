package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pitchperfect/analyzer"
	"pitchperfect/scorer"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type RecordingTickMsg struct{ Duration float64 }
type PitchMsg struct {
	Pitch      float64
	Volume     float64
	Confidence float64
	AvgPitch   float64 // rolling 5s average
}
type NoVoiceWarningMsg struct{}
type VoiceClearedMsg struct{}
type StatusMsg struct{ Text string }
type FeedbackMsg struct {
	Result   scorer.Result
	Text     string
	Copied   bool
	NoSpeech bool
	Metrics  []string
}
type ModeLineMsg struct{ Text string }   // category/provider info
type DeviceLineMsg struct{ Text string } // microphone device name
type RateLimitMsg struct{ Text string }
type tickMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
)

type tuiModel struct {
	state             tuiState
	frame             int
	recordingDuration float64
	pitch             float64
	avgPitch          float64
	volume            float64
	confidence        float64
	peakVolume        float64
	noVoice           bool
	takeCount         int
	width, height     int
	modeLine          string
	deviceLine        string
	rateLimit         string
	statusLine        string
	lastText          string
	lastFeedback      *scorer.Result
	lastMetrics       []string
	copiedToClipboard bool
	noSpeech          bool

	toggle chan<- struct{}
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func logToTUI(format string, args ...any) {
	tuiSend(StatusMsg{Text: fmt.Sprintf(format, args...)})
}

func NewTUIProgram(toggle chan<- struct{}) *tea.Program {
	m := tuiModel{toggle: toggle}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
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
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			if m.toggle != nil {
				select {
				case m.toggle <- struct{}{}:
				default:
				}
			}
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recordingDuration = 0
		m.pitch = 0
		m.avgPitch = 0
		m.volume = 0
		m.peakVolume = 0
		m.noVoice = false
		m.statusLine = ""

	case RecordingStopMsg:
		m.state = tuiStateIdle
		m.pitch = 0
		m.volume = 0
		m.noVoice = false

	case RecordingTickMsg:
		m.recordingDuration = msg.Duration

	case PitchMsg:
		if m.state == tuiStateRecording {
			m.pitch = msg.Pitch
			m.avgPitch = msg.AvgPitch
			m.confidence = msg.Confidence
			m.volume = m.volume*0.6 + msg.Volume*0.4
			if msg.Volume > m.peakVolume {
				m.peakVolume = msg.Volume
			}
		}

	case NoVoiceWarningMsg:
		m.noVoice = true

	case VoiceClearedMsg:
		m.noVoice = false

	case StatusMsg:
		m.statusLine = msg.Text

	case FeedbackMsg:
		m.takeCount++
		m.lastText = msg.Text
		if msg.NoSpeech {
			m.lastFeedback = nil
		} else {
			result := msg.Result
			m.lastFeedback = &result
		}
		m.lastMetrics = msg.Metrics
		m.copiedToClipboard = msg.Copied
		m.noSpeech = msg.NoSpeech

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case RateLimitMsg:
		m.rateLimit = msg.Text
	}
	return m, nil
}

const meterWidth = 30

// pitchBar maps pitch onto a log scale across the analyzable range so the
// speaking range (80-400Hz) gets most of the bar.
func pitchBar(pitch float64) string {
	if pitch <= 0 {
		return strings.Repeat("░", meterWidth)
	}
	lo := math.Log(analyzer.DefaultMinPitch)
	hi := math.Log(analyzer.DefaultMaxPitch)
	pos := (math.Log(pitch) - lo) / (hi - lo)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	filled := int(pos * meterWidth)
	if filled >= meterWidth {
		filled = meterWidth - 1
	}
	return strings.Repeat("░", filled) + "█" + strings.Repeat("░", meterWidth-filled-1)
}

func volumeBar(volume float64) string {
	filled := int(volume * meterWidth)
	if filled > meterWidth {
		filled = meterWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", meterWidth-filled)
}

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	meterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	scoreGood    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	scoreMid     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	scoreBad     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	copiedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	metricsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 75:
		return scoreGood
	case score >= 50:
		return scoreMid
	default:
		return scoreBad
	}
}

const leftWidth = 45

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var left []string

	if m.state == tuiStateRecording {
		left = append(left, recStyle.Render(fmt.Sprintf("● REC %.1fs", m.recordingDuration)))
		if m.noVoice {
			left = append(left, warnStyle.Render("  ⚠ no voice detected"))
		}
	} else {
		left = append(left, idleStyle.Render("○ STANDBY"))
	}
	left = append(left, "")

	pitchLabel := "  --- Hz"
	if m.pitch > 0 {
		pitchLabel = fmt.Sprintf("%5.0f Hz", m.pitch)
	}
	left = append(left, labelStyle.Render("pitch  ")+meterStyle.Render(pitchBar(m.pitch))+" "+pitchLabel)

	avgLabel := ""
	if m.avgPitch > 0 {
		avgLabel = fmt.Sprintf("%5.0f Hz", m.avgPitch)
	}
	left = append(left, labelStyle.Render("avg 5s ")+meterStyle.Render(pitchBar(m.avgPitch))+" "+avgLabel)
	left = append(left, labelStyle.Render("volume ")+meterStyle.Render(volumeBar(m.volume)))
	left = append(left, "")

	if m.modeLine != "" {
		left = append(left, labelStyle.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		left = append(left, idleStyle.Render(m.deviceLine))
	}
	if m.rateLimit != "" {
		left = append(left, idleStyle.Render(m.rateLimit))
	}
	if m.statusLine != "" {
		left = append(left, warnStyle.Render(m.statusLine))
	}
	left = append(left, "")
	left = append(left, dimStyle.Bold(true).Render("space")+dimStyle.Render(" start/stop take  ")+
		dimStyle.Bold(true).Render("q")+dimStyle.Render(" quit"))
	left = append(left, dimStyle.Render("pitchperfect "+version))

	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	wrapWidth := rightWidth - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var right strings.Builder
	if m.lastText != "" || m.noSpeech {
		right.WriteString(labelStyle.Render(fmt.Sprintf("Take #%d", m.takeCount)) + "\n\n")

		if m.noSpeech {
			right.WriteString(warnStyle.Render("(no speech detected)") + "\n")
		} else {
			lines := wrapText(m.lastText, wrapWidth)
			for i, line := range lines {
				right.WriteString(textStyle.Render(line))
				if i == len(lines)-1 && m.copiedToClipboard {
					right.WriteString(" " + copiedStyle.Render("[✓ copied]"))
				}
				right.WriteString("\n")
			}
		}

		if fb := m.lastFeedback; fb != nil {
			right.WriteString("\n")
			right.WriteString(labelStyle.Render("overall  ") + scoreStyle(fb.Score).Render(fmt.Sprintf("%3d", fb.Score)) + "\n")
			for _, a := range []struct {
				name   string
				aspect scorer.Aspect
			}{
				{"tone", fb.Tone},
				{"clarity", fb.Clarity},
				{"handling", fb.ObjectionHandling},
			} {
				right.WriteString(labelStyle.Render(fmt.Sprintf("%-8s ", a.name)) +
					scoreStyle(a.aspect.Rating).Render(fmt.Sprintf("%3d", a.aspect.Rating)) +
					" " + dimStyle.Render(a.aspect.Feedback) + "\n")
			}
			if len(fb.Strengths) > 0 {
				right.WriteString("\n" + scoreGood.Render("+ "+strings.Join(fb.Strengths, "; ")) + "\n")
			}
			if len(fb.Improvements) > 0 {
				right.WriteString(scoreMid.Render("~ "+strings.Join(fb.Improvements, "; ")) + "\n")
			}
			if fb.IdealResponse != "" {
				right.WriteString("\n")
				for _, line := range wrapText("ideal: "+fb.IdealResponse, wrapWidth) {
					right.WriteString(dimStyle.Render(line) + "\n")
				}
			}
		}

		if len(m.lastMetrics) > 0 {
			right.WriteString("\n")
			for _, metric := range m.lastMetrics {
				right.WriteString(metricsStyle.Render(metric) + "\n")
			}
		}
	} else {
		right.WriteString(idleStyle.Render("No takes yet. Press space and start pitching."))
	}

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth - 1).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(left, "\n"))

	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(right.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
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

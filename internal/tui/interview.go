package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"jobprep/internal/errors"
	"jobprep/internal/interview"
	"jobprep/internal/types"
)

type interviewStage int

const (
	ivTopic interviewStage = iota
	ivWaiting
	ivChat
	ivFinished
)

type turnMsg struct {
	turn   *types.InterviewTurn
	answer string
	err    error
}

// InterviewOption customizes NewInterview.
type InterviewOption func(*interviewOptions)

type interviewOptions struct {
	glamourStyle string
	wordWrap     int
}

// WithGlamourStyle picks a standard glamour style ("dark", "light", "notty", ...)
// instead of detecting it from the terminal.
func WithGlamourStyle(style string) InterviewOption {
	return func(o *interviewOptions) { o.glamourStyle = style }
}

// WithWordWrap sets the feedback wrap width.
func WithWordWrap(n int) InterviewOption {
	return func(o *interviewOptions) { o.wordWrap = n }
}

// InterviewModel is the mock interview chat.
type InterviewModel struct {
	ctx      context.Context
	session  *interview.Session
	styles   Styles
	renderer *glamour.TermRenderer

	stage    interviewStage
	started  bool
	input    textinput.Model
	spinner  spinner.Model
	status   string
	feedback string
}

// NewInterview returns a chat bound to session.
func NewInterview(ctx context.Context, session *interview.Session, opts ...InterviewOption) (InterviewModel, error) {
	o := interviewOptions{wordWrap: 80}
	for _, opt := range opts {
		opt(&o)
	}

	rendererOpts := []glamour.TermRendererOption{glamour.WithWordWrap(o.wordWrap)}
	if o.glamourStyle != "" {
		rendererOpts = append(rendererOpts, glamour.WithStandardStyle(o.glamourStyle))
	} else {
		rendererOpts = append(rendererOpts, glamour.WithAutoStyle())
	}
	renderer, err := glamour.NewTermRenderer(rendererOpts...)
	if err != nil {
		return InterviewModel{}, errors.NewInternalError("RENDERER_INIT", "failed to create markdown renderer", err)
	}

	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "면접 주제 (예: 백엔드 개발자)"
	ti.Prompt = "│ "
	ti.CharLimit = 2000
	ti.Width = 70
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Cursor

	return InterviewModel{
		ctx:      ctx,
		session:  session,
		styles:   styles,
		renderer: renderer,
		stage:    ivTopic,
		input:    ti,
		spinner:  sp,
	}, nil
}

// Transcript is the chat so far, for export after the program exits.
func (m InterviewModel) Transcript() types.InterviewTranscript {
	return m.session.Transcript()
}

func (m InterviewModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m InterviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = min(max(msg.Width-4, 20), 100)
		return m, nil

	case turnMsg:
		if msg.err != nil {
			m.status = errors.UserMessage(msg.err)
			if m.started {
				m.stage = ivChat
				// put the unsent answer back for a retry
				m.input.SetValue(msg.answer)
			} else {
				m.stage = ivTopic
			}
			return m, textinput.Blink
		}
		m.started = true
		m.status = ""
		if m.session.Finished() {
			m.stage = ivFinished
			m.feedback = m.renderFeedback(msg.turn.Feedback)
			m.input.Blur()
			return m, nil
		}
		m.stage = ivChat
		m.input.Placeholder = "답변을 입력하세요"
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.stage != ivWaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
		if m.stage == ivFinished {
			if msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.stage == ivWaiting {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m InterviewModel) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	switch m.stage {
	case ivTopic:
		if text == "" {
			m.status = interview.MsgTopicRequired
			return m, nil
		}
		m.stage = ivWaiting
		m.status = ""
		m.input.Reset()
		return m, tea.Batch(m.spinner.Tick, interviewStartCmd(m.ctx, m.session, text))
	case ivChat:
		if text == "" {
			m.status = interview.MsgAnswerRequired
			return m, nil
		}
		m.stage = ivWaiting
		m.status = ""
		m.input.Reset()
		return m, tea.Batch(m.spinner.Tick, interviewAnswerCmd(m.ctx, m.session, text))
	case ivFinished:
		return m, tea.Quit
	}
	return m, nil
}

func interviewStartCmd(ctx context.Context, s *interview.Session, topic string) tea.Cmd {
	return func() tea.Msg {
		turn, err := s.Start(ctx, topic)
		return turnMsg{turn: turn, err: err}
	}
}

func interviewAnswerCmd(ctx context.Context, s *interview.Session, answer string) tea.Cmd {
	return func() tea.Msg {
		turn, err := s.Answer(ctx, answer)
		return turnMsg{turn: turn, answer: answer, err: err}
	}
}

// renderFeedback falls back to the raw markdown when glamour fails.
func (m InterviewModel) renderFeedback(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m InterviewModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("모의 면접"))
	sb.WriteString("\n\n")

	t := m.session.Transcript()
	if t.Topic != "" {
		sb.WriteString(m.styles.Subtle.Render("주제: " + t.Topic))
		sb.WriteString("\n\n")
	}
	for _, e := range t.Entries {
		who := "지원자"
		if e.Speaker == interview.SpeakerInterviewer {
			who = "면접관"
			if e.Interviewer != "" {
				who = e.Interviewer
			}
		}
		fmt.Fprintf(&sb, "%s %s\n\n", m.styles.Speaker.Render(who+":"), e.Text)
	}

	switch m.stage {
	case ivTopic, ivChat:
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
		sb.WriteString(m.styles.Help.Render("Enter 전송 · Esc 종료"))
		sb.WriteString("\n")
	case ivWaiting:
		if pending := m.session.Pending(); pending != "" {
			fmt.Fprintf(&sb, "%s %s\n\n", m.styles.Speaker.Render("지원자:"), pending)
		}
		fmt.Fprintf(&sb, "%s 면접관이 생각 중입니다...\n", m.spinner.View())
	case ivFinished:
		sb.WriteString(m.styles.Title.Render("피드백"))
		sb.WriteString("\n")
		if m.feedback != "" {
			sb.WriteString(m.feedback)
		}
		sb.WriteString(m.styles.Help.Render("Enter 또는 q로 종료"))
		sb.WriteString("\n")
	}

	if m.status != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render(m.status))
		sb.WriteString("\n")
	}
	return sb.String()
}

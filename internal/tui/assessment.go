package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"jobprep/internal/assessment"
	"jobprep/internal/errors"
	"jobprep/internal/results"
)

type stage int

const (
	stageName stage = iota
	stageStarting
	stageQuestions
	stageSubmitting
	stageResult
)

const defaultBarWidth = 40

type startedMsg struct{ err error }

type submittedMsg struct {
	outcome *assessment.Outcome
	err     error
}

// AssessmentModel walks one questionnaire: name, paged questions, result.
type AssessmentModel struct {
	ctx     context.Context
	session *assessment.Session
	styles  Styles

	stage   stage
	name    textinput.Model
	spinner spinner.Model
	bars    map[assessment.Band]progress.Model
	cursor  int
	status  string
	outcome *assessment.Outcome
	width   int
}

// NewAssessment returns a model bound to session. ctx bounds its network calls.
func NewAssessment(ctx context.Context, session *assessment.Session) AssessmentModel {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "이름"
	ti.Prompt = "│ "
	ti.CharLimit = 50
	ti.Width = 30
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Cursor

	return AssessmentModel{
		ctx:     ctx,
		session: session,
		styles:  styles,
		stage:   stageName,
		name:    ti,
		spinner: sp,
		bars:    bandBars(defaultBarWidth),
	}
}

// Outcome is the submitted result, nil until the questionnaire is done.
func (m AssessmentModel) Outcome() *assessment.Outcome {
	return m.outcome
}

func (m AssessmentModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m AssessmentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := min(max(msg.Width-12, 10), 60)
		for b, bar := range m.bars {
			bar.Width = w
			m.bars[b] = bar
		}
		return m, nil

	case startedMsg:
		if msg.err != nil {
			m.stage = stageName
			m.status = errors.UserMessage(msg.err)
			return m, textinput.Blink
		}
		m.stage = stageQuestions
		m.cursor = 0
		m.status = ""
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.stage = stageQuestions
			m.status = errors.UserMessage(msg.err)
			m.focusUnanswered(msg.err)
			return m, nil
		}
		m.stage = stageResult
		m.outcome = msg.outcome
		m.status = ""
		return m, nil

	case spinner.TickMsg:
		if m.stage != stageStarting && m.stage != stageSubmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.stage {
		case stageName:
			return m.updateName(msg)
		case stageQuestions:
			return m.updateQuestions(msg)
		case stageResult:
			switch msg.String() {
			case "q", "esc", "enter":
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m AssessmentModel) updateName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		name := strings.TrimSpace(m.name.Value())
		if name == "" {
			m.status = assessment.MsgNameRequired
			return m, nil
		}
		m.stage = stageStarting
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, startCmd(m.ctx, m.session, name))
	}
	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	return m, cmd
}

func (m AssessmentModel) updateQuestions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.session.PageQuestions()
	switch key := msg.String(); key {
	case "esc", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(page)-1 {
			m.cursor++
		}
	case "left", "h":
		m.session.PrevPage()
		m.cursor = 0
	case "right", "l":
		m.session.NextPage()
		m.cursor = 0
	case "1", "2", "3", "4", "5":
		if len(page) == 0 {
			break
		}
		if err := m.session.SetAnswer(page[m.cursor].Index, int(key[0]-'0')); err != nil {
			m.status = errors.UserMessage(err)
			break
		}
		m.status = ""
		if m.cursor < len(page)-1 {
			m.cursor++
		}
	case "enter":
		m.stage = stageSubmitting
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, submitCmd(m.ctx, m.session))
	}
	return m, nil
}

// focusUnanswered moves to the first unanswered question after an incomplete submit.
func (m *AssessmentModel) focusUnanswered(err error) {
	appErr, ok := errors.As(err)
	if !ok {
		return
	}
	first, ok := appErr.Context["first_unanswered"].(int)
	if !ok || first < 0 {
		return
	}
	m.session.JumpTo(first)
	m.cursor = 0
	for i, item := range m.session.PageQuestions() {
		if item.Index == first {
			m.cursor = i
			break
		}
	}
}

func startCmd(ctx context.Context, s *assessment.Session, name string) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: s.Start(ctx, name)}
	}
}

func submitCmd(ctx context.Context, s *assessment.Session) tea.Cmd {
	return func() tea.Msg {
		outcome, err := s.Submit(ctx)
		return submittedMsg{outcome: outcome, err: err}
	}
}

func (m AssessmentModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("인적성검사"))
	sb.WriteString("\n\n")

	switch m.stage {
	case stageName:
		sb.WriteString("이름을 입력한 뒤 Enter를 누르세요.\n")
		sb.WriteString(m.name.View())
		sb.WriteString("\n")
	case stageStarting:
		fmt.Fprintf(&sb, "%s 문항을 불러오는 중...\n", m.spinner.View())
	case stageQuestions:
		m.viewQuestions(&sb)
	case stageSubmitting:
		fmt.Fprintf(&sb, "%s 답변을 제출하는 중...\n", m.spinner.View())
	case stageResult:
		m.viewResult(&sb)
	}

	if m.status != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render(m.status))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m AssessmentModel) viewQuestions(sb *strings.Builder) {
	snap := m.session.Snapshot()
	fmt.Fprintf(sb, "%s  %s\n", snap.Name,
		m.styles.Subtle.Render(fmt.Sprintf("페이지 %d/%d", snap.Page+1, snap.TotalPages)))
	fmt.Fprintf(sb, "%s %3d%%\n\n", m.bars[snap.Band].ViewAs(float64(snap.Progress)/100), snap.Progress)

	for i, item := range m.session.PageQuestions() {
		marker := "  "
		if i == m.cursor {
			marker = m.styles.Cursor.Render("▸ ")
		}
		fmt.Fprintf(sb, "%s%d. %s\n   ", marker, item.Question.Number, item.Question.Text)
		for v := 1; v <= 5; v++ {
			label := fmt.Sprintf("%d %s", v, results.LikertLabels[v-1])
			if item.Answer != nil && *item.Answer == v {
				sb.WriteString(m.styles.Selected.Render(label))
			} else {
				sb.WriteString(m.styles.Choice.Render(label))
			}
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(m.styles.Help.Render("↑/↓ 문항 이동 · 1-5 답변 · ←/→ 페이지 · Enter 제출 · q 종료"))
	sb.WriteString("\n")
}

func (m AssessmentModel) viewResult(sb *strings.Builder) {
	if m.outcome == nil {
		return
	}
	report := results.Build(results.Input{
		Name:         m.outcome.Name,
		AssessmentID: m.outcome.AssessmentID,
		Result:       m.outcome.Result,
		Analysis:     m.outcome.Analysis,
	})
	fmt.Fprintf(sb, "%s님의 결과", report.Name)
	if report.TypeLabel != "" {
		fmt.Fprintf(sb, " · %s", m.styles.Speaker.Render(report.TypeLabel))
	}
	sb.WriteString("\n\n")
	for _, row := range report.Rows {
		if row.Score == nil {
			fmt.Fprintf(sb, "  %-8s %s\n", row.Label, m.styles.Subtle.Render("-"))
			continue
		}
		fmt.Fprintf(sb, "  %-8s %s %.1f\n", row.Label, row.Bar, *row.Score)
	}
	for _, w := range report.Warnings {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Warning.Render("주의: " + w))
	}
	if len(report.Summary) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Box.Render(strings.Join(report.Summary, "\n")))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Help.Render("Enter 또는 q로 종료"))
	sb.WriteString("\n")
}

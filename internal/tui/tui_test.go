package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jobprep/internal/assessment"
	apperrors "jobprep/internal/errors"
	"jobprep/internal/interview"
	"jobprep/internal/types"
)

type assessmentAPI struct {
	mock.Mock
}

func (a *assessmentAPI) StartAssessment(ctx context.Context, name string) (*types.AssessmentStart, error) {
	args := a.Called(name)
	start, _ := args.Get(0).(*types.AssessmentStart)
	return start, args.Error(1)
}

func (a *assessmentAPI) SubmitAssessment(ctx context.Context, id int, answers []int) (*types.ResultPayload, error) {
	args := a.Called(id, answers)
	payload, _ := args.Get(0).(*types.ResultPayload)
	return payload, args.Error(1)
}

func (a *assessmentAPI) AssessmentResult(ctx context.Context, id int) (*types.ResultPayload, error) {
	args := a.Called(id)
	payload, _ := args.Get(0).(*types.ResultPayload)
	return payload, args.Error(1)
}

type interviewAPI struct {
	mock.Mock
}

func (a *interviewAPI) StartInterview(ctx context.Context, topic string) (*types.InterviewTurn, error) {
	args := a.Called(topic)
	turn, _ := args.Get(0).(*types.InterviewTurn)
	return turn, args.Error(1)
}

func (a *interviewAPI) AnswerInterview(ctx context.Context, exchangeID int, answer string) (*types.InterviewTurn, error) {
	args := a.Called(exchangeID, answer)
	turn, _ := args.Get(0).(*types.InterviewTurn)
	return turn, args.Error(1)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// drain runs cmd and every batched command, returning the produced messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// feed sends msg and then the results of the commands it triggers, skipping spinner ticks.
func feed[M tea.Model](t *testing.T, m M, msg tea.Msg) M {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(M)
	require.True(t, ok)
	for _, produced := range drain(cmd) {
		switch produced.(type) {
		case startedMsg, submittedMsg, turnMsg:
			out = feed(t, out, produced)
		}
	}
	return out
}

// typeText drops the commands of each keystroke; they are only cursor blinks.
func typeText[M tea.Model](t *testing.T, m M, s string) M {
	t.Helper()
	for _, r := range s {
		next, _ := m.Update(runes(string(r)))
		out, ok := next.(M)
		require.True(t, ok)
		m = out
	}
	return m
}

func threeQuestions() *types.AssessmentStart {
	return &types.AssessmentStart{
		Assessment: types.AssessmentRef{ID: 7},
		Questions: []types.Question{
			{ID: 1, Number: 1, Text: "나는 사람들과 대화하는 것을 즐긴다."},
			{ID: 2, Number: 2, Text: "맡은 일은 끝까지 해낸다."},
			{ID: 3, Number: 3, Text: "새로운 환경에 빨리 적응한다."},
		},
	}
}

func newAssessmentModel(t *testing.T, api *assessmentAPI) AssessmentModel {
	t.Helper()
	s := assessment.NewSession(api, assessment.Options{PageSize: 2, Bands: assessment.DefaultBands}, apperrors.NewNop())
	return NewAssessment(context.Background(), s)
}

func TestAssessmentModelFlow(t *testing.T) {
	api := &assessmentAPI{}
	api.On("StartAssessment", "홍길동").Return(threeQuestions(), nil).Once()
	api.On("SubmitAssessment", 7, []int{4, 5, 3}).Return(&types.ResultPayload{
		Result: types.AssessmentResult{
			Scores:             types.ScoreVector{types.Communication: 4.5, types.Responsibility: 4},
			AttentionCheckPass: true,
			TypeLabel:          "소통형",
		},
	}, nil).Once()

	m := newAssessmentModel(t, api)
	m = feed(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "이름을 입력한 뒤")

	m = typeText(t, m, "홍길동")
	m = feed(t, m, enter)
	require.Equal(t, stageQuestions, m.stage)
	assert.Contains(t, m.View(), "맡은 일은 끝까지 해낸다.")
	assert.Contains(t, m.View(), "페이지 1/2")

	m = feed(t, m, runes("4"))
	assert.Equal(t, 1, m.cursor, "answering moves to the next question")
	m = feed(t, m, runes("5"))
	m = feed(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Contains(t, m.View(), "페이지 2/2")
	assert.Equal(t, 0, m.cursor)
	m = feed(t, m, runes("3"))
	assert.Contains(t, m.View(), "100%")

	m = feed(t, m, enter)
	require.Equal(t, stageResult, m.stage)
	require.NotNil(t, m.Outcome())
	assert.Equal(t, 7, m.Outcome().AssessmentID)
	view := m.View()
	assert.Contains(t, view, "홍길동님의 결과")
	assert.Contains(t, view, "소통형")
	assert.Contains(t, view, "의사소통")

	_, cmd := m.Update(enter)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	api.AssertExpectations(t)
}

func TestAssessmentModelEmptyName(t *testing.T) {
	api := &assessmentAPI{}
	m := newAssessmentModel(t, api)
	m = feed(t, m, enter)
	assert.Equal(t, stageName, m.stage)
	assert.Contains(t, m.View(), assessment.MsgNameRequired)
	api.AssertNotCalled(t, "StartAssessment", mock.Anything)
}

func TestAssessmentModelStartFailure(t *testing.T) {
	api := &assessmentAPI{}
	api.On("StartAssessment", "홍길동").Return(nil, errors.New("connection refused")).Once()

	m := newAssessmentModel(t, api)
	m = typeText(t, m, "홍길동")
	m = feed(t, m, enter)
	assert.Equal(t, stageName, m.stage)
	assert.Contains(t, m.View(), assessment.MsgStartFailed)
}

func TestAssessmentModelIncompleteSubmitFocusesFirstGap(t *testing.T) {
	api := &assessmentAPI{}
	api.On("StartAssessment", "홍길동").Return(threeQuestions(), nil).Once()

	m := newAssessmentModel(t, api)
	m = typeText(t, m, "홍길동")
	m = feed(t, m, enter)
	m = feed(t, m, runes("4"))
	m = feed(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = feed(t, m, runes("2"))

	m = feed(t, m, enter)
	assert.Equal(t, stageQuestions, m.stage)
	assert.Contains(t, m.View(), assessment.MsgIncomplete)
	assert.Contains(t, m.View(), "페이지 1/2", "jumps back to the page with question 2")
	assert.Equal(t, 1, m.cursor)
	api.AssertNotCalled(t, "SubmitAssessment", mock.Anything, mock.Anything)
}

func TestAssessmentModelCursorBounds(t *testing.T) {
	api := &assessmentAPI{}
	api.On("StartAssessment", "a").Return(threeQuestions(), nil).Once()

	m := newAssessmentModel(t, api)
	m = typeText(t, m, "a")
	m = feed(t, m, enter)

	m = feed(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)
	m = feed(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = feed(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m = feed(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Contains(t, m.View(), "페이지 1/2")
}

func TestBandColor(t *testing.T) {
	assert.Equal(t, colorLow, BandColor(assessment.BandLow))
	assert.Equal(t, colorMid, BandColor(assessment.BandMid))
	assert.Equal(t, colorHigh, BandColor(assessment.BandHigh))
}

func newInterviewModel(t *testing.T, api *interviewAPI) InterviewModel {
	t.Helper()
	m, err := NewInterview(context.Background(), interview.NewSession(api, apperrors.NewNop()),
		WithGlamourStyle("notty"), WithWordWrap(60))
	require.NoError(t, err)
	return m
}

func TestInterviewModelFlow(t *testing.T) {
	kim := &types.Interviewer{Name: "김팀장", Role: "개발팀장", Personality: "technical"}
	api := &interviewAPI{}
	api.On("StartInterview", "백엔드").
		Return(&types.InterviewTurn{SessionID: 1, ExchangeID: 10, Question: "자기소개 해주세요.", Interviewer: kim}, nil).Once()
	api.On("AnswerInterview", 10, "홍길동입니다.").
		Return(&types.InterviewTurn{IsFinished: true, Feedback: "## 총평\n\n답변이 **명확**했습니다."}, nil).Once()

	m := newInterviewModel(t, api)
	m = typeText(t, m, "백엔드")
	m = feed(t, m, enter)
	require.Equal(t, ivChat, m.stage)
	assert.Contains(t, m.View(), "김팀장:")
	assert.Contains(t, m.View(), "자기소개 해주세요.")

	m = typeText(t, m, "홍길동입니다.")
	m = feed(t, m, enter)
	require.Equal(t, ivFinished, m.stage)
	view := m.View()
	assert.Contains(t, view, "지원자:")
	assert.Contains(t, view, "총평")
	assert.Contains(t, view, "명확")

	tr := m.Transcript()
	assert.True(t, tr.Finished)
	assert.Len(t, tr.Entries, 2)
	api.AssertExpectations(t)
}

func TestInterviewModelRequiresInput(t *testing.T) {
	api := &interviewAPI{}
	m := newInterviewModel(t, api)
	m = feed(t, m, enter)
	assert.Equal(t, ivTopic, m.stage)
	assert.Contains(t, m.View(), interview.MsgTopicRequired)
	api.AssertNotCalled(t, "StartInterview", mock.Anything)
}

func TestInterviewModelAnswerFailureKeepsChat(t *testing.T) {
	api := &interviewAPI{}
	api.On("StartInterview", "PM").
		Return(&types.InterviewTurn{SessionID: 1, ExchangeID: 3, Question: "강점은?"}, nil).Once()
	api.On("AnswerInterview", 3, "끈기").Return(nil, errors.New("timeout")).Once()

	m := newInterviewModel(t, api)
	m = typeText(t, m, "PM")
	m = feed(t, m, enter)
	m = typeText(t, m, "끈기")
	m = feed(t, m, enter)
	assert.Equal(t, ivChat, m.stage)
	assert.Contains(t, m.View(), interview.MsgAnswerFailed)
	assert.Equal(t, "끈기", m.input.Value(), "the answer is offered again")
	assert.Len(t, m.Transcript().Entries, 1)
}

func TestInterviewModelIgnoresKeysWhileWaiting(t *testing.T) {
	m := newInterviewModel(t, &interviewAPI{})
	m.stage = ivWaiting
	next, cmd := m.Update(runes("x"))
	assert.Nil(t, cmd)
	assert.Equal(t, "", next.(InterviewModel).input.Value())
}

package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "jobprep/internal/errors"
	"jobprep/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) StartInterview(ctx context.Context, topic string) (*types.InterviewTurn, error) {
	args := m.Called(ctx, topic)
	turn, _ := args.Get(0).(*types.InterviewTurn)
	return turn, args.Error(1)
}

func (m *mockAPI) AnswerInterview(ctx context.Context, exchangeID int, answer string) (*types.InterviewTurn, error) {
	args := m.Called(ctx, exchangeID, answer)
	turn, _ := args.Get(0).(*types.InterviewTurn)
	return turn, args.Error(1)
}

var (
	kim = &types.Interviewer{Name: "김팀장", Role: "개발팀장", Personality: "technical"}
	lee = &types.Interviewer{Name: "이상무", Role: "임원", Personality: "cto_level"}
)

func TestFullInterview(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("StartInterview", ctx, "백엔드 개발자").
		Return(&types.InterviewTurn{SessionID: 5, ExchangeID: 1, Question: "자기소개 해주세요.", Interviewer: kim}, nil).Once()
	api.On("AnswerInterview", ctx, 1, "저는 홍길동입니다.").
		Return(&types.InterviewTurn{ExchangeID: 2, Question: "왜 지원했나요?", Interviewer: lee}, nil).Once()
	api.On("AnswerInterview", ctx, 2, "성장하고 싶어서입니다.").
		Return(&types.InterviewTurn{IsFinished: true, Feedback: "구체적인 사례가 좋았습니다."}, nil).Once()

	s := NewSession(api, apperrors.NewNop())
	_, err := s.Start(ctx, " 백엔드 개발자 ")
	require.NoError(t, err)
	assert.Equal(t, "김팀장", s.Interviewer().Name)

	_, err = s.Answer(ctx, "저는 홍길동입니다.")
	require.NoError(t, err)
	assert.Equal(t, "이상무", s.Interviewer().Name, "a different interviewer may ask next")

	turn, err := s.Answer(ctx, "성장하고 싶어서입니다.")
	require.NoError(t, err)
	assert.True(t, turn.IsFinished)
	assert.True(t, s.Finished())

	_, err = s.Answer(ctx, "하나 더")
	assert.Equal(t, MsgFinished, apperrors.UserMessage(err))

	tr := s.Transcript()
	assert.Equal(t, "백엔드 개발자", tr.Topic)
	assert.Equal(t, []types.TranscriptEntry{
		{Speaker: SpeakerInterviewer, Interviewer: "김팀장", Text: "자기소개 해주세요."},
		{Speaker: SpeakerCandidate, Text: "저는 홍길동입니다."},
		{Speaker: SpeakerInterviewer, Interviewer: "이상무", Text: "왜 지원했나요?"},
		{Speaker: SpeakerCandidate, Text: "성장하고 싶어서입니다."},
	}, tr.Entries)
	assert.Equal(t, "구체적인 사례가 좋았습니다.", tr.Feedback)

	md := s.TranscriptMarkdown()
	assert.Contains(t, md, "# 모의 면접: 백엔드 개발자")
	assert.Contains(t, md, "**김팀장**: 자기소개 해주세요.")
	assert.Contains(t, md, "**지원자**: 저는 홍길동입니다.")
	assert.Contains(t, md, "## 피드백")
	api.AssertExpectations(t)
}

func TestRequiredInputs(t *testing.T) {
	api := &mockAPI{}
	s := NewSession(api, apperrors.NewNop())

	_, err := s.Start(context.Background(), "  ")
	assert.Equal(t, MsgTopicRequired, apperrors.UserMessage(err))

	_, err = s.Answer(context.Background(), "")
	assert.Equal(t, MsgAnswerRequired, apperrors.UserMessage(err))

	_, err = s.Answer(context.Background(), "답")
	assert.Equal(t, MsgNotStarted, apperrors.UserMessage(err))
	api.AssertNotCalled(t, "StartInterview", mock.Anything, mock.Anything)
}

func TestStartFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("StartInterview", ctx, "PM").Return(nil, errors.New("boom")).Once()
	api.On("StartInterview", ctx, "PM").Return(&types.InterviewTurn{ExchangeID: 1, Question: "q"}, nil).Once()

	s := NewSession(api, apperrors.NewNop())
	_, err := s.Start(ctx, "PM")
	assert.Equal(t, MsgStartFailed, apperrors.UserMessage(err))

	_, err = s.Start(ctx, "PM")
	require.NoError(t, err)
	_, err = s.Start(ctx, "PM")
	assert.Equal(t, MsgInProgress, apperrors.UserMessage(err))
}

func TestAnswerWhileBusy(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("StartInterview", ctx, "PM").Return(&types.InterviewTurn{ExchangeID: 1, Question: "q"}, nil).Once()
	release := make(chan struct{})
	api.On("AnswerInterview", ctx, 1, "a").Run(func(mock.Arguments) { <-release }).
		Return(&types.InterviewTurn{ExchangeID: 2, Question: "q2"}, nil).Once()

	s := NewSession(api, apperrors.NewNop())
	_, err := s.Start(ctx, "PM")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Answer(ctx, "a")
		done <- err
	}()
	require.Eventually(t, s.Busy, time.Second, time.Millisecond)
	assert.Equal(t, "a", s.Pending())
	assert.Len(t, s.Transcript().Entries, 1, "the answer in flight is not in the transcript yet")

	_, err = s.Answer(ctx, "b")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, s.Transcript().Entries, 3)
}

func TestFailedAnswerRetryRecordsOnce(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("StartInterview", ctx, "PM").Return(&types.InterviewTurn{ExchangeID: 1, Question: "q"}, nil).Once()
	api.On("AnswerInterview", ctx, 1, "a").Return(nil, errors.New("timeout")).Once()
	api.On("AnswerInterview", ctx, 1, "a").Return(&types.InterviewTurn{ExchangeID: 2, Question: "q2"}, nil).Once()

	s := NewSession(api, apperrors.NewNop())
	_, err := s.Start(ctx, "PM")
	require.NoError(t, err)

	_, err = s.Answer(ctx, "a")
	assert.Equal(t, MsgAnswerFailed, apperrors.UserMessage(err))
	assert.Len(t, s.Transcript().Entries, 1)
	assert.Empty(t, s.Pending())

	_, err = s.Answer(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []types.TranscriptEntry{
		{Speaker: SpeakerInterviewer, Text: "q"},
		{Speaker: SpeakerCandidate, Text: "a"},
		{Speaker: SpeakerInterviewer, Text: "q2"},
	}, s.Transcript().Entries)
	api.AssertExpectations(t)
}

func TestTranscriptIsACopy(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("StartInterview", ctx, "PM").Return(&types.InterviewTurn{ExchangeID: 1, Question: "q"}, nil).Once()
	s := NewSession(api, apperrors.NewNop())
	_, err := s.Start(ctx, "PM")
	require.NoError(t, err)

	tr := s.Transcript()
	tr.Entries[0].Text = "changed"
	assert.Equal(t, "q", s.Transcript().Entries[0].Text)
}

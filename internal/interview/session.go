// Package interview drives a mock interview chat against the backend.
package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"jobprep/internal/errors"
	"jobprep/internal/types"
)

const (
	MsgTopicRequired  = "면접 주제를 입력해 주세요."
	MsgAnswerRequired = "답변을 입력해 주세요."
	MsgStartFailed    = "면접을 시작하는 중 오류가 발생했습니다."
	MsgAnswerFailed   = "답변을 전송하는 중 오류가 발생했습니다."
	MsgFinished       = "이미 종료된 면접입니다."
	MsgNotStarted     = "진행 중인 면접이 없습니다."
	MsgInProgress     = "이미 진행 중인 면접이 있습니다."
)

// ErrBusy is returned when a call arrives while another is in flight.
var ErrBusy = errors.NewValidationError(errors.ErrCodeBusy, "요청을 처리하는 중입니다.", nil)

// Speakers in the transcript.
const (
	SpeakerInterviewer = "interviewer"
	SpeakerCandidate   = "candidate"
)

// API is the part of the backend client the chat needs.
type API interface {
	StartInterview(ctx context.Context, topic string) (*types.InterviewTurn, error)
	AnswerInterview(ctx context.Context, exchangeID int, answer string) (*types.InterviewTurn, error)
}

// Session is one interview. Finished is terminal.
type Session struct {
	mu     sync.Mutex
	api    API
	logger *errors.Logger

	busy        bool
	started     bool
	finished    bool
	topic       string
	sessionID   int
	exchangeID  int
	interviewer *types.Interviewer
	entries     []types.TranscriptEntry
	pending     string
	feedback    string
}

func NewSession(api API, logger *errors.Logger) *Session {
	return &Session{api: api, logger: logger}
}

// Start opens the interview and records the first question.
func (s *Session) Start(ctx context.Context, topic string) (*types.InterviewTurn, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, MsgTopicRequired, nil)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.started {
		s.mu.Unlock()
		return nil, errors.NewValidationError(errors.ErrCodeSessionState, MsgInProgress, nil)
	}
	s.busy = true
	s.mu.Unlock()

	turn, err := s.api.StartInterview(ctx, topic)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		appErr := errors.NewNetworkError(errors.ErrCodeNetworkFailed, MsgStartFailed, err)
		s.logger.LogError(appErr, "Interview start failed", "topic", topic)
		return nil, appErr
	}

	s.started = true
	s.topic = topic
	s.sessionID = turn.SessionID
	s.apply(turn)
	s.logger.Info("Interview started", "session_id", s.sessionID, "topic", topic)
	return turn, nil
}

// Answer posts text for the current question and records the reply.
func (s *Session) Answer(ctx context.Context, text string) (*types.InterviewTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, MsgAnswerRequired, nil)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if err := s.checkActive(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.busy = true
	s.pending = text
	exchangeID := s.exchangeID
	s.mu.Unlock()

	turn, err := s.api.AnswerInterview(ctx, exchangeID, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.pending = ""
	if err != nil {
		appErr := errors.NewNetworkError(errors.ErrCodeNetworkFailed, MsgAnswerFailed, err).
			WithContext("exchange_id", exchangeID)
		s.logger.LogError(appErr, "Interview answer failed")
		return nil, appErr
	}
	// the answer joins the transcript only once the backend took it
	s.entries = append(s.entries, types.TranscriptEntry{Speaker: SpeakerCandidate, Text: text})
	s.apply(turn)
	return turn, nil
}

func (s *Session) checkActive() error {
	switch {
	case !s.started:
		return errors.NewValidationError(errors.ErrCodeSessionState, MsgNotStarted, nil)
	case s.finished:
		return errors.NewValidationError(errors.ErrCodeSessionState, MsgFinished, nil)
	}
	return nil
}

// apply records a backend reply. Caller holds mu.
func (s *Session) apply(turn *types.InterviewTurn) {
	if turn.IsFinished {
		s.finished = true
		s.feedback = turn.Feedback
		s.logger.Info("Interview finished", "session_id", s.sessionID)
		return
	}
	if turn.ExchangeID != 0 {
		s.exchangeID = turn.ExchangeID
	}
	if turn.Interviewer != nil {
		iv := *turn.Interviewer
		s.interviewer = &iv
	}
	entry := types.TranscriptEntry{Speaker: SpeakerInterviewer, Text: turn.Question}
	if s.interviewer != nil {
		entry.Interviewer = s.interviewer.Name
	}
	s.entries = append(s.entries, entry)
}

// Finished reports whether the interview has ended.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Busy reports whether a call is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Pending returns the answer in flight, empty when none.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Interviewer returns the current interviewer, nil before the first question.
func (s *Session) Interviewer() *types.Interviewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interviewer == nil {
		return nil
	}
	iv := *s.interviewer
	return &iv
}

// Transcript returns a copy of the chat so far.
func (s *Session) Transcript() types.InterviewTranscript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.InterviewTranscript{
		Topic:    s.topic,
		Entries:  append([]types.TranscriptEntry(nil), s.entries...),
		Feedback: s.feedback,
		Finished: s.finished,
	}
}

// TranscriptMarkdown renders the transcript for export.
func (s *Session) TranscriptMarkdown() string {
	return Markdown(s.Transcript())
}

// Markdown renders t as a markdown document.
func Markdown(t types.InterviewTranscript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 모의 면접: %s\n\n", t.Topic)
	for _, e := range t.Entries {
		switch e.Speaker {
		case SpeakerInterviewer:
			who := "면접관"
			if e.Interviewer != "" {
				who = e.Interviewer
			}
			fmt.Fprintf(&b, "**%s**: %s\n\n", who, e.Text)
		default:
			fmt.Fprintf(&b, "**지원자**: %s\n\n", e.Text)
		}
	}
	if t.Finished {
		b.WriteString("## 피드백\n\n")
		if t.Feedback != "" {
			b.WriteString(t.Feedback)
			b.WriteString("\n")
		}
	}
	return b.String()
}

package assessment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"jobprep/internal/errors"
	"jobprep/internal/types"
)

// Messages shown for assessment failures.
const (
	MsgNameRequired   = "이름을 입력해 주세요."
	MsgStartFailed    = "인적성검사를 시작하는 중 오류가 발생했습니다."
	MsgIncomplete     = "모든 문항에 답변을 완료해 주세요."
	MsgSubmitFailed   = "답변 제출 중 오류가 발생했습니다."
	MsgResultFailed   = "결과를 불러오는 중 오류가 발생했습니다."
	MsgInvalidAnswer  = "답변은 1에서 5 사이여야 합니다."
	MsgAlreadyStarted = "이미 진행 중인 검사가 있습니다."
	MsgNotInProgress  = "진행 중인 검사가 없습니다."
)

// ErrBusy is returned when Start or Submit is called while another call is in flight.
var ErrBusy = errors.NewValidationError(errors.ErrCodeBusy, "요청을 처리하는 중입니다.", nil)

// State is the lifecycle position of a session.
type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Submitting State = "submitting"
	Finished   State = "result"
)

// API is the part of the backend client the session needs.
type API interface {
	StartAssessment(ctx context.Context, name string) (*types.AssessmentStart, error)
	SubmitAssessment(ctx context.Context, id int, answers []int) (*types.ResultPayload, error)
	AssessmentResult(ctx context.Context, id int) (*types.ResultPayload, error)
}

// SubmitRecorder counts submissions by result.
type SubmitRecorder interface {
	RecordAssessmentSubmitted(ctx context.Context, ok bool)
}

// Options configures paging and the progress bands.
type Options struct {
	PageSize int
	Bands    Bands
}

// Outcome is handed to the result view after a successful submit.
type Outcome struct {
	Name         string                 `json:"name"`
	AssessmentID int                    `json:"assessment_id"`
	Result       types.AssessmentResult `json:"result"`
	Analysis     *types.Analysis        `json:"analysis,omitempty"`
}

// Session drives one questionnaire from name entry to result.
type Session struct {
	mu      sync.Mutex
	api     API
	opts    Options
	logger  *errors.Logger
	metrics SubmitRecorder

	state     State
	busy      bool
	id        int
	name      string
	questions []types.Question
	answers   types.AnswerSet
	page      int
}

// NewSession returns a NotStarted session. PageSize <= 0 means 4.
func NewSession(api API, opts Options, logger *errors.Logger) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = 4
	}
	if opts.Bands == (Bands{}) {
		opts.Bands = DefaultBands
	}
	return &Session{api: api, opts: opts, logger: logger, state: NotStarted}
}

// WithMetrics sets the submission counter.
func (s *Session) WithMetrics(m SubmitRecorder) *Session {
	s.metrics = m
	return s
}

// Start begins a new session for name. From Finished it starts over with a new id.
func (s *Session) Start(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, MsgNameRequired, nil)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state == InProgress || s.state == Submitting {
		s.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeSessionState, MsgAlreadyStarted, nil).
			WithContext("state", string(s.state))
	}
	s.busy = true
	s.mu.Unlock()

	started, err := s.api.StartAssessment(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		appErr := errors.NewNetworkError(errors.ErrCodeNetworkFailed, MsgStartFailed, err)
		s.logger.LogError(appErr, "Assessment start failed", "name", name)
		return appErr
	}

	s.id = started.Assessment.ID
	s.name = name
	s.questions = append([]types.Question(nil), started.Questions...)
	s.answers = types.NewAnswerSet(len(s.questions))
	s.page = 0
	s.state = InProgress
	s.logger.Info("Assessment started", "assessment_id", s.id, "questions", len(s.questions))
	return nil
}

// SetAnswer records value (1..5) for question index.
func (s *Session) SetAnswer(index, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != InProgress {
		return errors.NewValidationError(errors.ErrCodeSessionState, MsgNotInProgress, nil).
			WithContext("state", string(s.state))
	}
	if index < 0 || index >= len(s.answers) {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("문항 번호가 범위를 벗어났습니다: %d", index+1), nil)
	}
	if value < 1 || value > 5 {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, MsgInvalidAnswer, nil).
			WithContext("value", value)
	}
	v := value
	s.answers[index] = &v
	return nil
}

// Submit sends the complete answer set. An incomplete set never reaches the network.
func (s *Session) Submit(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state != InProgress {
		state := s.state
		s.mu.Unlock()
		return nil, errors.NewValidationError(errors.ErrCodeSessionState, MsgNotInProgress, nil).
			WithContext("state", string(state))
	}
	if !s.answers.Complete() {
		first := s.answers.FirstUnanswered()
		s.mu.Unlock()
		return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, MsgIncomplete, nil).
			WithContext("first_unanswered", first)
	}
	s.busy = true
	s.state = Submitting
	id, name, values := s.id, s.name, s.answers.Values()
	s.mu.Unlock()

	payload, err := s.api.SubmitAssessment(ctx, id, values)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.state = InProgress
		s.record(ctx, false)
		appErr := errors.NewNetworkError(errors.ErrCodeNetworkFailed, MsgSubmitFailed, err).
			WithContext("assessment_id", id)
		s.logger.LogError(appErr, "Assessment submit failed")
		return nil, appErr
	}

	s.state = Finished
	s.record(ctx, true)
	s.logger.Info("Assessment submitted", "assessment_id", id)
	return &Outcome{Name: name, AssessmentID: id, Result: payload.Result, Analysis: payload.Analysis}, nil
}

// Resume fetches a finished result by id, for a reload of the result view.
func (s *Session) Resume(ctx context.Context, id int) (*Outcome, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state == InProgress || s.state == Submitting {
		s.mu.Unlock()
		return nil, errors.NewValidationError(errors.ErrCodeSessionState, MsgAlreadyStarted, nil)
	}
	s.busy = true
	s.mu.Unlock()

	payload, err := s.api.AssessmentResult(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkFailed, MsgResultFailed, err).
			WithContext("assessment_id", id)
	}
	s.id = id
	s.state = Finished
	return &Outcome{Name: s.name, AssessmentID: id, Result: payload.Result, Analysis: payload.Analysis}, nil
}

// TotalPages is ceil(questions / page size).
func (s *Session) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPages()
}

func (s *Session) totalPages() int {
	return (len(s.questions) + s.opts.PageSize - 1) / s.opts.PageSize
}

// GoToPage moves to page n clamped to [0, TotalPages-1] and returns the new page.
func (s *Session) GoToPage(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = clamp(n, 0, s.totalPages()-1)
	return s.page
}

// NextPage and PrevPage step one page, clamped.
func (s *Session) NextPage() int { return s.GoToPage(s.Page() + 1) }
func (s *Session) PrevPage() int { return s.GoToPage(s.Page() - 1) }

// JumpTo moves to the page holding question index.
func (s *Session) JumpTo(index int) int {
	return s.GoToPage(index / s.opts.PageSize)
}

// Page returns the current page index.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// PageItem is one question on the current page with its answer.
type PageItem struct {
	Index    int            `json:"index"`
	Question types.Question `json:"question"`
	Answer   *int           `json:"answer"`
}

// PageQuestions returns the questions of the current page.
func (s *Session) PageQuestions() []PageItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.page * s.opts.PageSize
	end := min(start+s.opts.PageSize, len(s.questions))
	items := make([]PageItem, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		items = append(items, PageItem{Index: i, Question: s.questions[i], Answer: s.answers[i]})
	}
	return items
}

// Progress is the answered share as a rounded percentage.
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progress(s.answers)
}

func progress(a types.AnswerSet) int {
	if len(a) == 0 {
		return 0
	}
	return int(math.Round(float64(a.Answered()) / float64(len(a)) * 100))
}

// Band classifies the current progress.
func (s *Session) Band() Band {
	return s.opts.Bands.Classify(s.Progress())
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a network call is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	ID         int              `json:"assessment_id"`
	Name       string           `json:"name"`
	State      State            `json:"state"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Progress   int              `json:"progress"`
	Band       Band             `json:"band"`
	Questions  []types.Question `json:"questions"`
	Answers    types.AnswerSet  `json:"answers"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := progress(s.answers)
	return Snapshot{
		ID:         s.id,
		Name:       s.name,
		State:      s.state,
		Page:       s.page,
		TotalPages: s.totalPages(),
		Progress:   p,
		Band:       s.opts.Bands.Classify(p),
		Questions:  append([]types.Question(nil), s.questions...),
		Answers:    append(types.AnswerSet(nil), s.answers...),
	}
}

func (s *Session) record(ctx context.Context, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordAssessmentSubmitted(ctx, ok)
	}
}

func clamp(n, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(n, hi))
}

package server

import (
	"net/http"
	"strconv"
	"strings"

	"jobprep/internal/assessment"
	"jobprep/internal/errors"
	"jobprep/internal/results"
	"jobprep/internal/types"
	"jobprep/internal/validation"
)

var errUnavailable = errors.NewConfigError(errors.ErrCodeInvalidConfig, "이 기능은 서버에 설정되어 있지 않습니다.", nil)

// draftBody is the stored draft plus its photo preview.
type draftBody struct {
	types.ResumeDraft
	PhotoBase64 string `json:"photoBase64,omitempty"`
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	draft, preview := s.deps.Drafts.Load(r.Context())
	writeJSON(w, http.StatusOK, draftBody{ResumeDraft: draft, PhotoBase64: preview})
}

func (s *Server) putDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	var body draftBody
	if err := parseJSONRequest(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	preview := body.PhotoBase64
	if !strings.HasPrefix(preview, "data:image/") {
		preview = ""
	}
	if err := s.deps.Drafts.Save(r.Context(), body.ResumeDraft, preview); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "저장 되었습니다."})
}

func (s *Server) deleteDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	if err := s.deps.Drafts.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "모든 내용이 삭제되었습니다."})
}

func (s *Server) validateDraft(w http.ResponseWriter, r *http.Request) {
	var draft types.ResumeDraft
	if err := parseJSONRequest(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validation.NewForm(s.deps.Validator, draft).Report())
}

type formatRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

var formatters = map[string]func(string) string{
	"phone":     validation.FormatPhoneNumber,
	"date":      validation.FormatDate,
	"yearmonth": validation.FormatYearMonth,
}

func (s *Server) formatValue(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	format, ok := formatters[req.Kind]
	if !ok {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidInput,
			"kind는 phone, date, yearmonth 중 하나여야 합니다.", nil).WithContext("kind", req.Kind))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": format(req.Value)})
}

// presentResult accepts a bare score vector or a full result object.
func (s *Server) presentResult(w http.ResponseWriter, r *http.Request) {
	var result types.AssessmentResult
	if err := parseJSONRequest(r, &result); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results.Build(results.Input{
		Name:   r.URL.Query().Get("name"),
		Result: result,
	}))
}

// sessionView is the reply for every session route.
type sessionView struct {
	SessionID string                `json:"session_id"`
	Session   assessment.Snapshot   `json:"session"`
	Page      []assessment.PageItem `json:"page_questions"`
}

func (s *Server) view(id string, sess *assessment.Session) sessionView {
	return sessionView{SessionID: id, Session: sess.Snapshot(), Page: sess.PageQuestions()}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	var req types.AssessmentStartRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, sess := s.deps.Sessions.Create()
	if err := sess.Start(r.Context(), req.Name); err != nil {
		s.deps.Sessions.Delete(id)
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(id, sess))
}

// session looks up the {id} path value, writing the error itself on failure.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *assessment.Session, bool) {
	if s.deps.Sessions == nil {
		s.writeError(w, r, errUnavailable)
		return "", nil, false
	}
	id := r.PathValue("id")
	sess, err := s.deps.Sessions.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return "", nil, false
	}
	return id, sess, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(id, sess))
}

func (s *Server) setAnswer(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, r, badRequest("문항 번호가 올바르지 않습니다.", err))
		return
	}
	var body struct {
		Value int `json:"value"`
	}
	if err := parseJSONRequest(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SetAnswer(index, body.Value); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(id, sess))
}

func (s *Server) setPage(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Page *int `json:"page"`
		// Question jumps to the page holding this 0-based index.
		Question *int `json:"question"`
	}
	if err := parseJSONRequest(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	switch {
	case body.Question != nil:
		sess.JumpTo(*body.Question)
	case body.Page != nil:
		sess.GoToPage(*body.Page)
	default:
		s.writeError(w, r, badRequest("page 또는 question 값이 필요합니다.", nil))
		return
	}
	writeJSON(w, http.StatusOK, s.view(id, sess))
}

func (s *Server) submitSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	outcome, err := sess.Submit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"outcome":    outcome,
		"report": results.Build(results.Input{
			Name:         outcome.Name,
			AssessmentID: outcome.AssessmentID,
			Result:       outcome.Result,
			Analysis:     outcome.Analysis,
		}),
	})
}

func (s *Server) requestDonation(w http.ResponseWriter, r *http.Request) {
	if s.deps.Payments == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	var req types.DonationRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.deps.Payments.Request(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) confirmDonation(w http.ResponseWriter, r *http.Request) {
	if s.deps.Payments == nil {
		s.writeError(w, r, errUnavailable)
		return
	}
	var conf types.PaymentConfirmation
	if err := parseJSONRequest(r, &conf); err != nil {
		s.writeError(w, r, err)
		return
	}
	receipt, err := s.deps.Payments.Confirm(r.Context(), conf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

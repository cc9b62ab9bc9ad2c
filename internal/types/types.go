package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Question is one item of the backend question bank.
type Question struct {
	ID     int    `json:"id"`
	Number int    `json:"number"` // 1-based display order
	Text   string `json:"text"`
}

// AnswerSet is index-aligned with the question list. A nil element is unanswered.
type AnswerSet []*int

// NewAnswerSet returns an all-unanswered set of length n.
func NewAnswerSet(n int) AnswerSet {
	return make(AnswerSet, n)
}

// Answered counts the non-nil elements.
func (a AnswerSet) Answered() int {
	count := 0
	for _, v := range a {
		if v != nil {
			count++
		}
	}
	return count
}

// Complete reports whether every question has an answer.
func (a AnswerSet) Complete() bool {
	return a.Answered() == len(a)
}

// FirstUnanswered returns the index of the first nil element, or -1.
func (a AnswerSet) FirstUnanswered() int {
	for i, v := range a {
		if v == nil {
			return i
		}
	}
	return -1
}

// Values returns the answers as plain ints. It must only be called on a complete set.
func (a AnswerSet) Values() []int {
	out := make([]int, len(a))
	for i, v := range a {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

// Dimension names one axis of the score vector.
type Dimension string

const (
	Communication  Dimension = "communication"
	Responsibility Dimension = "responsibility"
	ProblemSolving Dimension = "problem_solving"
	Growth         Dimension = "growth"
	Stress         Dimension = "stress"
	Adaptation     Dimension = "adaptation"
)

// Dimensions is the fixed presentation and tie-break order.
var Dimensions = []Dimension{Communication, Responsibility, ProblemSolving, Growth, Stress, Adaptation}

// ScoreVector maps each parsable dimension to its score. Missing keys did not parse.
type ScoreVector map[Dimension]float64

// Get returns the score for d and whether it was present.
func (v ScoreVector) Get(d Dimension) (float64, bool) {
	s, ok := v[d]
	return s, ok
}

// UnmarshalJSON accepts numbers and numeric strings; the backend sends decimals as strings.
func (v *ScoreVector) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = scoresFromRaw(raw)
	return nil
}

func scoresFromRaw(raw map[string]json.RawMessage) ScoreVector {
	out := make(ScoreVector, len(Dimensions))
	for _, d := range Dimensions {
		if f, ok := parseScore(raw[string(d)]); ok {
			out[d] = f
		}
	}
	return out
}

func parseScore(raw json.RawMessage) (float64, bool) {
	if trimmed := strings.TrimSpace(string(raw)); trimmed == "" || trimmed == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// AssessmentResult is the scored result the backend returns for a submission.
type AssessmentResult struct {
	Scores             ScoreVector `json:"-"`
	AttentionCheckPass bool        `json:"attention_check_pass"`
	ExaggerationFlag   bool        `json:"exaggeration_flag"`
	TypeLabel          string      `json:"type_label,omitempty"`
	CreatedAt          *time.Time  `json:"created_at,omitempty"`
}

type assessmentResultAlias AssessmentResult

// UnmarshalJSON reads the flattened score fields next to the result metadata.
func (r *AssessmentResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// attention_check_pass defaults to true when absent
	alias := assessmentResultAlias{AttentionCheckPass: true}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = AssessmentResult(alias)
	r.Scores = scoresFromRaw(raw)
	return nil
}

// MarshalJSON flattens the score vector into the result object.
func (r AssessmentResult) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"attention_check_pass": r.AttentionCheckPass,
		"exaggeration_flag":    r.ExaggerationFlag,
	}
	if r.TypeLabel != "" {
		out["type_label"] = r.TypeLabel
	}
	if r.CreatedAt != nil {
		out["created_at"] = r.CreatedAt
	}
	for d, s := range r.Scores {
		out[string(d)] = s
	}
	return json.Marshal(out)
}

// Analysis is the narrative the backend generates for a result.
type Analysis struct {
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	WorkStyle  string   `json:"work_style"`
}

// JobRecommendation is one ranked job suggestion.
type JobRecommendation struct {
	TitleKo     string  `json:"title_ko"`
	Similarity  float64 `json:"similarity"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

// Recommendations wraps the ranked list for formatting.
type Recommendations struct {
	Results []JobRecommendation `json:"results"`
}

// Personality is the interviewer persona.
type Personality string

var Personalities = []Personality{
	"friendly", "aggressive", "technical", "practical",
	"silent", "beginner", "cto_level", "hr_focused",
}

// Interviewer describes who asks the current question.
type Interviewer struct {
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	Personality Personality `json:"personality" validate:"omitempty,personality"`
}

// InterviewTurn is the backend reply to a start or an answer.
type InterviewTurn struct {
	SessionID   int          `json:"session_id,omitempty"`
	ExchangeID  int          `json:"exchange_id,omitempty"`
	Question    string       `json:"question,omitempty"`
	Interviewer *Interviewer `json:"interviewer,omitempty"`
	IsFinished  bool         `json:"is_finished"`
	Feedback    string       `json:"feedback,omitempty"`
}

// TranscriptEntry is one line of the interview chat.
type TranscriptEntry struct {
	Speaker     string `json:"speaker"` // "interviewer" or "candidate"
	Interviewer string `json:"interviewer,omitempty"`
	Text        string `json:"text"`
}

// InterviewTranscript is the exportable record of an interview.
type InterviewTranscript struct {
	Topic    string            `json:"topic"`
	Entries  []TranscriptEntry `json:"entries"`
	Feedback string            `json:"feedback,omitempty"`
	Finished bool              `json:"finished"`
}

// DonationRequest starts a donation payment.
type DonationRequest struct {
	Amount    int    `json:"amount" validate:"required,min=1000,max=5000,donation_step"`
	DonorName string `json:"donor_name" validate:"max=100"`
	Message   string `json:"message,omitempty" validate:"max=500"`
}

// PaymentSession holds what the payment widget needs to open checkout.
type PaymentSession struct {
	OrderID      string `json:"orderId"`
	Amount       int    `json:"amount"`
	DonationID   int    `json:"donation_id"`
	OrderName    string `json:"orderName"`
	CustomerName string `json:"customerName"`
	SuccessURL   string `json:"successUrl"`
	FailURL      string `json:"failUrl"`
}

// PaymentConfirmation is posted back after the gateway redirect.
type PaymentConfirmation struct {
	PaymentKey string `json:"paymentKey" validate:"required"`
	OrderID    string `json:"orderId" validate:"required"`
	Amount     int    `json:"amount" validate:"required,gt=0"`
}

// PaymentStatus values.
const (
	PaymentPending  = "PENDING"
	PaymentDone     = "DONE"
	PaymentCanceled = "CANCELED"
	PaymentFailed   = "FAILED"
)

// Donation is the confirmed donation record.
type Donation struct {
	ID            int        `json:"id"`
	Amount        int        `json:"amount"`
	DonorName     string     `json:"donor_name"`
	Message       string     `json:"message,omitempty"`
	OrderID       string     `json:"order_id"`
	PaymentStatus string     `json:"payment_status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Section keys of the résumé draft.
const (
	SectionEducations   = "educations"
	SectionExperiences  = "experiences"
	SectionTrainings    = "trainings"
	SectionCertificates = "certificates"
)

// Sections lists the repeatable sections in validation order.
var Sections = []string{SectionEducations, SectionExperiences, SectionTrainings, SectionCertificates}

// Education is one row of the 학력 section.
type Education struct {
	School           string `json:"school"`
	Major            string `json:"major"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	GraduationStatus string `json:"graduationStatus"`
	Location         string `json:"location"`
}

// Experience is one row of the 경력 section.
type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Rank        string `json:"rank"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// Training is one row of the 교육사항 section.
type Training struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Content     string `json:"content"`
	Institution string `json:"institution"`
}

// Certificate is one row of the 자격증 section.
type Certificate struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

// ResumeDraft is the locally persisted résumé form.
type ResumeDraft struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	BirthDate        string `json:"birthDate"`
	Gender           string `json:"gender"`
	ApplicationField string `json:"applicationField"`
	Portfolio        string `json:"portfolio"`

	Educations   []Education   `json:"educations"`
	Experiences  []Experience  `json:"experiences"`
	Trainings    []Training    `json:"trainings"`
	Certificates []Certificate `json:"certificates"`

	GrowthProcess       string `json:"growthProcess"`
	StrengthsWeaknesses string `json:"strengthsWeaknesses"`
	AcademicLife        string `json:"academicLife"`
	Motivation          string `json:"motivation"`
}

// DefaultResumeDraft returns an empty draft with one template item per section.
func DefaultResumeDraft() ResumeDraft {
	return ResumeDraft{
		Educations:   []Education{{}},
		Experiences:  []Experience{{}},
		Trainings:    []Training{{}},
		Certificates: []Certificate{{}},
	}
}

// SectionLen returns the number of items in section.
func (d *ResumeDraft) SectionLen(section string) int {
	switch section {
	case SectionEducations:
		return len(d.Educations)
	case SectionExperiences:
		return len(d.Experiences)
	case SectionTrainings:
		return len(d.Trainings)
	case SectionCertificates:
		return len(d.Certificates)
	}
	return 0
}

// AddItem appends an empty item to section.
func (d *ResumeDraft) AddItem(section string) error {
	switch section {
	case SectionEducations:
		d.Educations = append(d.Educations, Education{})
	case SectionExperiences:
		d.Experiences = append(d.Experiences, Experience{})
	case SectionTrainings:
		d.Trainings = append(d.Trainings, Training{})
	case SectionCertificates:
		d.Certificates = append(d.Certificates, Certificate{})
	default:
		return fmt.Errorf("unknown section %q", section)
	}
	return nil
}

// RemoveItem deletes item i from section.
func (d *ResumeDraft) RemoveItem(section string, i int) error {
	if i < 0 || i >= d.SectionLen(section) {
		return fmt.Errorf("%s index %d out of range", section, i)
	}
	switch section {
	case SectionEducations:
		d.Educations = append(d.Educations[:i], d.Educations[i+1:]...)
	case SectionExperiences:
		d.Experiences = append(d.Experiences[:i], d.Experiences[i+1:]...)
	case SectionTrainings:
		d.Trainings = append(d.Trainings[:i], d.Trainings[i+1:]...)
	case SectionCertificates:
		d.Certificates = append(d.Certificates[:i], d.Certificates[i+1:]...)
	}
	return nil
}

// Item returns item i of section as a field map.
func (d *ResumeDraft) Item(section string, i int) (map[string]string, error) {
	if i < 0 || i >= d.SectionLen(section) {
		return nil, fmt.Errorf("%s index %d out of range", section, i)
	}
	switch section {
	case SectionEducations:
		e := d.Educations[i]
		return map[string]string{"school": e.School, "major": e.Major, "startDate": e.StartDate,
			"endDate": e.EndDate, "graduationStatus": e.GraduationStatus, "location": e.Location}, nil
	case SectionExperiences:
		e := d.Experiences[i]
		return map[string]string{"company": e.Company, "position": e.Position, "rank": e.Rank,
			"startDate": e.StartDate, "endDate": e.EndDate, "description": e.Description}, nil
	case SectionTrainings:
		t := d.Trainings[i]
		return map[string]string{"startDate": t.StartDate, "endDate": t.EndDate,
			"content": t.Content, "institution": t.Institution}, nil
	default:
		c := d.Certificates[i]
		return map[string]string{"name": c.Name, "issuer": c.Issuer, "date": c.Date}, nil
	}
}

// SetField assigns value to field of item i in section.
func (d *ResumeDraft) SetField(section string, i int, field, value string) error {
	if i < 0 || i >= d.SectionLen(section) {
		return fmt.Errorf("%s index %d out of range", section, i)
	}
	var target *string
	switch section {
	case SectionEducations:
		e := &d.Educations[i]
		target = pick(field, map[string]*string{"school": &e.School, "major": &e.Major, "startDate": &e.StartDate,
			"endDate": &e.EndDate, "graduationStatus": &e.GraduationStatus, "location": &e.Location})
	case SectionExperiences:
		e := &d.Experiences[i]
		target = pick(field, map[string]*string{"company": &e.Company, "position": &e.Position, "rank": &e.Rank,
			"startDate": &e.StartDate, "endDate": &e.EndDate, "description": &e.Description})
	case SectionTrainings:
		t := &d.Trainings[i]
		target = pick(field, map[string]*string{"startDate": &t.StartDate, "endDate": &t.EndDate,
			"content": &t.Content, "institution": &t.Institution})
	case SectionCertificates:
		c := &d.Certificates[i]
		target = pick(field, map[string]*string{"name": &c.Name, "issuer": &c.Issuer, "date": &c.Date})
	}
	if target == nil {
		return fmt.Errorf("unknown field %s.%s", section, field)
	}
	*target = value
	return nil
}

func pick(field string, fields map[string]*string) *string {
	return fields[field]
}

// FieldErrorMap maps item index to field to message.
type FieldErrorMap map[int]map[string]string

// AssessmentStartRequest is the body of POST /assessment/start/.
type AssessmentStartRequest struct {
	Name string `json:"name" validate:"required"`
}

// AssessmentSubmitRequest is the body of POST /assessment/{id}/submit/.
type AssessmentSubmitRequest struct {
	Answers []int `json:"answers" validate:"required,min=1,dive,min=1,max=5"`
}

// AnalyzeSectionRequest is the body of POST /resume/analyze/.
type AnalyzeSectionRequest struct {
	Section string `json:"section" validate:"required,cover_section"`
	Content string `json:"content" validate:"required"`
}

// InterviewStartRequest is the body of POST /interview/start/.
type InterviewStartRequest struct {
	JobTopic string `json:"job_topic" validate:"required,max=100"`
}

// InterviewAnswerRequest is the body of POST /interview/answer/.
type InterviewAnswerRequest struct {
	ExchangeID int    `json:"exchange_id" validate:"required,gt=0"`
	UserAnswer string `json:"user_answer" validate:"required"`
}

// AssessmentRef identifies a backend assessment.
type AssessmentRef struct {
	ID int `json:"id"`
}

// AssessmentStart is the reply to POST /assessment/start/.
type AssessmentStart struct {
	Assessment AssessmentRef `json:"assessment"`
	Questions  []Question    `json:"questions"`
}

// ResultPayload is the reply to submit and result fetches.
type ResultPayload struct {
	Message  string           `json:"message,omitempty"`
	Result   AssessmentResult `json:"result"`
	Analysis *Analysis        `json:"analysis,omitempty"`
}

// UnmarshalJSON accepts both {result, analysis} and a bare result object.
func (p *ResultPayload) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Message  string          `json:"message"`
		Result   json.RawMessage `json:"result"`
		Analysis *Analysis       `json:"analysis"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	resultData := []byte(envelope.Result)
	if len(resultData) == 0 || string(resultData) == "null" {
		resultData = data
	}
	var result AssessmentResult
	if err := json.Unmarshal(resultData, &result); err != nil {
		return err
	}
	*p = ResultPayload{Message: envelope.Message, Result: result, Analysis: envelope.Analysis}
	return nil
}

// PaymentReceipt is the reply to a payment confirmation.
type PaymentReceipt struct {
	Message  string   `json:"message"`
	Donation Donation `json:"donation"`
}

// Feedback is the reply to the résumé analysis endpoints.
type Feedback struct {
	Feedback string `json:"feedback"`
}

// SavedResume is the reply to POST /resume/.
type SavedResume struct {
	ID      int    `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

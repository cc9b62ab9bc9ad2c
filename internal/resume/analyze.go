package resume

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"jobprep/internal/errors"
	"jobprep/internal/types"
	"jobprep/internal/validation"
)

const (
	MsgNoContent      = "분석할 내용이 없습니다."
	MsgInvalidSection = "유효하지 않은 섹션입니다."
	MsgAnalysisFailed = "AI 분석 중 오류가 발생했습니다."
)

// CoverLetterSection pairs a cover-letter draft key with its heading.
type CoverLetterSection struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// CoverLetterSections are the cover-letter parts in page order.
var CoverLetterSections = []CoverLetterSection{
	{Key: "growthProcess", Label: "성장과정"},
	{Key: "strengthsWeaknesses", Label: "성격의 장단점"},
	{Key: "academicLife", Label: "학업생활"},
	{Key: "motivation", Label: "지원동기와 입사 후 포부"},
}

// CoverLetterText returns the draft text for a cover-letter key.
func CoverLetterText(d types.ResumeDraft, key string) (string, bool) {
	switch key {
	case "growthProcess":
		return d.GrowthProcess, true
	case "strengthsWeaknesses":
		return d.StrengthsWeaknesses, true
	case "academicLife":
		return d.AcademicLife, true
	case "motivation":
		return d.Motivation, true
	}
	return "", false
}

// AnalysisAPI is the part of the backend client analysis needs.
type AnalysisAPI interface {
	AnalyzeSection(ctx context.Context, section, content string) (string, error)
	AnalyzeFull(ctx context.Context, draft types.ResumeDraft) (string, error)
}

// Analyzer requests AI feedback for the draft.
type Analyzer struct {
	api           AnalysisAPI
	maxTextLength int
	logger        *errors.Logger
}

func NewAnalyzer(api AnalysisAPI, maxTextLength int, logger *errors.Logger) *Analyzer {
	return &Analyzer{api: api, maxTextLength: maxTextLength, logger: logger}
}

// AnalyzeSection sends one cover-letter section.
func (a *Analyzer) AnalyzeSection(ctx context.Context, section, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput, MsgNoContent, nil)
	}
	if a.maxTextLength > 0 && utf8.RuneCountInString(content) > a.maxTextLength {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%d자 이내로 작성해 주세요.", a.maxTextLength), nil).
			WithContext("section", section)
	}
	req := types.AnalyzeSectionRequest{Section: section, Content: content}
	if err := validation.ValidateStruct(req); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput, MsgInvalidSection, err).
			WithContext("section", section)
	}

	feedback, err := a.api.AnalyzeSection(ctx, section, content)
	if err != nil {
		return "", a.failed(err, "section", section)
	}
	return feedback, nil
}

// AnalyzeFull sends the whole draft once the form has no errors.
func (a *Analyzer) AnalyzeFull(ctx context.Context, form *validation.Form) (string, error) {
	if msg := form.FirstError(); msg != "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput, msg, nil)
	}
	feedback, err := a.api.AnalyzeFull(ctx, form.Draft())
	if err != nil {
		return "", a.failed(err, "section", "full")
	}
	return feedback, nil
}

func (a *Analyzer) failed(err error, args ...any) error {
	msg := MsgAnalysisFailed
	if appErr, ok := errors.As(err); ok {
		if _, hasStatus := appErr.Context["status"]; hasStatus {
			msg = appErr.Message
		}
	}
	appErr := errors.NewNetworkError(errors.ErrCodeNetworkFailed, msg, err)
	a.logger.LogError(appErr, "Resume analysis failed", args...)
	return appErr
}

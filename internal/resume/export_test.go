package resume

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "jobprep/internal/errors"
	"jobprep/internal/types"
	"jobprep/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"홍길동":          "홍길동",
		` a<b>c:"d/e\ `: `a_b_c__d_e_`,
		"f|g?h*":       "f_g_h_",
		"   ":          "이름",
		"":             "이름",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFileName(in), "input %q", in)
	}
}

func TestFileNames(t *testing.T) {
	now := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "이력서_홍길동_20250309.html", ExportFileName("홍길동", now))
	assert.Equal(t, "이력서_이름_20250309.html", ExportFileName("", now))
	assert.Equal(t, "AI_피드백_20250309.txt", FeedbackFileName(now))

	assert.Equal(t, MsgNoFeedback, apperrors.UserMessage(CheckFeedback(" \n ")))
	assert.NoError(t, CheckFeedback("좋습니다"))
}

func TestExportHTML(t *testing.T) {
	d := types.DefaultResumeDraft()
	d.Name = "<script>alert(1)</script>"
	d.Email = "hong@example.com"
	d.Educations[0] = types.Education{School: "서울대학교", Major: "컴퓨터공학", StartDate: "2014.03", EndDate: "2018.02", Location: "서울"}
	d.Experiences[0] = types.Experience{Company: "", Position: ""}
	d.Certificates[0] = types.Certificate{Name: "정보처리기사", Issuer: "한국산업인력공단", Date: "2019-05-01"}
	d.Motivation = "열심히 하겠습니다."

	out, err := ExportHTML(d, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	html := string(out)

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `src="data:image/jpeg;base64,AAAA"`)
	assert.Contains(t, html, "2014.03 ~ 2018.02")
	assert.Contains(t, html, "서울대학교 | 컴퓨터공학 | (서울)")
	assert.Contains(t, html, "정보처리기사 (한국산업인력공단)")
	assert.Contains(t, html, "<h2>학력</h2>")
	assert.NotContains(t, html, "<h2>경력</h2>", "sections without content are skipped")
	assert.NotContains(t, html, "<h2>교육사항</h2>")
	assert.Contains(t, html, "지원동기와 입사 후 포부")
	assert.NotContains(t, html, "성장과정")
	assert.Less(t, strings.Index(html, "<h2>학력</h2>"), strings.Index(html, "<h2>자격증</h2>"))
}

func TestExportHTMLDropsForeignPhotoSource(t *testing.T) {
	out, err := ExportHTML(types.DefaultResumeDraft(), "https://example.com/x.png")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<img")
	assert.Contains(t, string(out), "<title>이력서 - 이름</title>")
}

type mockAnalysis struct {
	mock.Mock
}

func (m *mockAnalysis) AnalyzeSection(ctx context.Context, section, content string) (string, error) {
	args := m.Called(ctx, section, content)
	return args.String(0), args.Error(1)
}

func (m *mockAnalysis) AnalyzeFull(ctx context.Context, draft types.ResumeDraft) (string, error) {
	args := m.Called(ctx, draft)
	return args.String(0), args.Error(1)
}

func TestAnalyzeSectionGuards(t *testing.T) {
	api := &mockAnalysis{}
	a := NewAnalyzer(api, 5, apperrors.NewNop())
	ctx := context.Background()

	_, err := a.AnalyzeSection(ctx, "motivation", "  ")
	assert.Equal(t, MsgNoContent, apperrors.UserMessage(err))

	_, err = a.AnalyzeSection(ctx, "motivation", "가나다라마바")
	assert.Equal(t, "5자 이내로 작성해 주세요.", apperrors.UserMessage(err))

	_, err = a.AnalyzeSection(ctx, "hobbies", "가나다")
	assert.Equal(t, MsgInvalidSection, apperrors.UserMessage(err))
	api.AssertNotCalled(t, "AnalyzeSection", mock.Anything, mock.Anything, mock.Anything)

	api.On("AnalyzeSection", ctx, "motivation", "가나다라마").Return("좋은 글입니다.", nil).Once()
	got, err := a.AnalyzeSection(ctx, "motivation", "가나다라마")
	require.NoError(t, err)
	assert.Equal(t, "좋은 글입니다.", got)
}

func TestAnalyzeSectionFailure(t *testing.T) {
	api := &mockAnalysis{}
	ctx := context.Background()
	api.On("AnalyzeSection", ctx, "motivation", "글").Return("", errors.New("timeout")).Once()

	_, err := NewAnalyzer(api, 500, apperrors.NewNop()).AnalyzeSection(ctx, "motivation", "글")
	assert.Equal(t, MsgAnalysisFailed, apperrors.UserMessage(err))
}

func TestAnalyzeFullRequiresValidForm(t *testing.T) {
	api := &mockAnalysis{}
	ctx := context.Background()
	clock := validation.FixedClock{T: time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)}

	form := validation.NewForm(validation.New(clock), types.DefaultResumeDraft())
	_, err := NewAnalyzer(api, 500, apperrors.NewNop()).AnalyzeFull(ctx, form)
	assert.Equal(t, validation.MsgNameRequired, apperrors.UserMessage(err))
	api.AssertNotCalled(t, "AnalyzeFull", mock.Anything, mock.Anything)

	d := types.DefaultResumeDraft()
	d.Name, d.Email, d.BirthDate = "홍길동", "hong@example.com", "1990-01-01"
	form = validation.NewForm(validation.New(clock), d)
	api.On("AnalyzeFull", ctx, d).Return("전체 피드백", nil).Once()

	got, err := NewAnalyzer(api, 500, apperrors.NewNop()).AnalyzeFull(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "전체 피드백", got)
}

package formatters

import (
	"fmt"
	"strings"

	"jobprep/internal/interview"
	"jobprep/internal/results"
	"jobprep/internal/types"
	"jobprep/internal/validation"
)

// ReportMarkdownFormatter renders an assessment report as markdown
type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	r, err := deref[results.Report](data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	title := "인적성검사 결과"
	if r.Name != "" {
		title = r.Name + "님의 " + title
	}
	fmt.Fprintf(&out, "# %s\n\n", title)
	if r.TypeLabel != "" {
		fmt.Fprintf(&out, "**유형:** %s\n\n", r.TypeLabel)
	}
	if r.TopTraitLabel != "" {
		fmt.Fprintf(&out, "**가장 두드러진 역량:** %s\n\n", r.TopTraitLabel)
	}

	out.WriteString("| 역량 | 점수 | |\n|---|---:|---|\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&out, "| %s | %s | `%s` |\n", row.Label, scoreText(row.Score), row.Bar)
	}

	out.WriteString("\n## 요약\n\n")
	for _, s := range r.Summary {
		out.WriteString("- " + s + "\n")
	}

	if len(r.Warnings) > 0 {
		out.WriteString("\n## 주의\n\n")
		for _, w := range r.Warnings {
			out.WriteString("> " + w + "\n")
		}
	}

	if a := r.Analysis; a != nil {
		out.WriteString("\n## 분석\n\n")
		if a.Summary != "" {
			out.WriteString(a.Summary + "\n\n")
		}
		if a.WorkStyle != "" {
			fmt.Fprintf(&out, "**업무 스타일:** %s\n\n", a.WorkStyle)
		}
		writeMarkdownList(&out, "강점", a.Strengths)
		writeMarkdownList(&out, "약점", a.Weaknesses)
	}
	return out.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string { return TypeReport }

func writeMarkdownList(out *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "### %s\n\n", title)
	for _, it := range items {
		out.WriteString("- " + it + "\n")
	}
	out.WriteString("\n")
}

// RecommendationsMarkdownFormatter renders job suggestions as a table
type RecommendationsMarkdownFormatter struct{}

func (f *RecommendationsMarkdownFormatter) Format(data any) (string, error) {
	recs, err := deref[types.Recommendations](data)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	out.WriteString("# 추천 직업\n\n")
	if len(recs.Results) == 0 {
		out.WriteString("추천 결과가 없습니다.\n")
		return out.String(), nil
	}
	out.WriteString("| 순위 | 직업 | 분야 | 유사도 | 설명 |\n|---:|---|---|---:|---|\n")
	for i, r := range recs.Results {
		fmt.Fprintf(&out, "| %d | %s | %s | %.1f%% | %s |\n",
			i+1, cell(r.TitleKo), cell(r.Category), r.Similarity*100, cell(r.Description))
	}
	return out.String(), nil
}

func (f *RecommendationsMarkdownFormatter) SupportedType() string { return TypeRecommendations }

func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// TranscriptMarkdownFormatter renders an interview chat as markdown
type TranscriptMarkdownFormatter struct{}

func (f *TranscriptMarkdownFormatter) Format(data any) (string, error) {
	t, err := deref[types.InterviewTranscript](data)
	if err != nil {
		return "", err
	}
	return interview.Markdown(t), nil
}

func (f *TranscriptMarkdownFormatter) SupportedType() string { return TypeTranscript }

// FieldReportMarkdownFormatter lists the form errors as markdown
type FieldReportMarkdownFormatter struct{}

func (f *FieldReportMarkdownFormatter) Format(data any) (string, error) {
	r, err := deref[validation.Report](data)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	out.WriteString("# 이력서 입력 검사\n\n")
	if r.FirstError == "" && r.Email == "" && r.BirthDate == "" && !anySectionErrors(r) {
		out.WriteString("입력 오류가 없습니다.\n")
		return out.String(), nil
	}
	if r.FirstError != "" {
		fmt.Fprintf(&out, "**첫 번째 오류:** %s\n\n", r.FirstError)
	}
	if r.Email != "" {
		fmt.Fprintf(&out, "- 이메일: %s\n", r.Email)
	}
	if r.BirthDate != "" {
		fmt.Fprintf(&out, "- 생년월일: %s\n", r.BirthDate)
	}
	for _, line := range fieldErrorLines(r) {
		out.WriteString("- " + line + "\n")
	}
	return out.String(), nil
}

func (f *FieldReportMarkdownFormatter) SupportedType() string { return TypeFieldReport }

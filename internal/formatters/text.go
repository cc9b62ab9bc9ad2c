package formatters

import (
	"fmt"
	"slices"
	"strings"

	"jobprep/internal/interview"
	"jobprep/internal/results"
	"jobprep/internal/types"
	"jobprep/internal/validation"
)

func scoreText(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *s)
}

// ReportTextFormatter renders an assessment report for the terminal
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	r, err := deref[results.Report](data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString("=== 인적성검사 결과 ===\n")
	if r.Name != "" {
		fmt.Fprintf(&out, "이름: %s\n", r.Name)
	}
	if r.TypeLabel != "" {
		fmt.Fprintf(&out, "유형: %s\n", r.TypeLabel)
	}
	if r.TopTraitLabel != "" {
		fmt.Fprintf(&out, "가장 두드러진 역량: %s\n", r.TopTraitLabel)
	}
	out.WriteString("\n")

	for _, row := range r.Rows {
		fmt.Fprintf(&out, "%-8s %s %s\n", row.Label, scoreText(row.Score), row.Bar)
	}

	out.WriteString("\n=== 요약 ===\n")
	for _, s := range r.Summary {
		out.WriteString("- " + s + "\n")
	}

	if len(r.Warnings) > 0 {
		out.WriteString("\n=== 주의 ===\n")
		for _, w := range r.Warnings {
			out.WriteString("! " + w + "\n")
		}
	}

	if a := r.Analysis; a != nil {
		out.WriteString("\n=== 분석 ===\n")
		if a.Summary != "" {
			out.WriteString(a.Summary + "\n")
		}
		if a.WorkStyle != "" {
			fmt.Fprintf(&out, "업무 스타일: %s\n", a.WorkStyle)
		}
		writeList(&out, "강점", a.Strengths, "- ")
		writeList(&out, "약점", a.Weaknesses, "- ")
	}
	return out.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string { return TypeReport }

func writeList(out *strings.Builder, title string, items []string, bullet string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, it := range items {
		out.WriteString(bullet + it + "\n")
	}
}

// RecommendationsTextFormatter renders job suggestions
type RecommendationsTextFormatter struct{}

func (f *RecommendationsTextFormatter) Format(data any) (string, error) {
	recs, err := deref[types.Recommendations](data)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	out.WriteString("=== 추천 직업 ===\n")
	if len(recs.Results) == 0 {
		out.WriteString("추천 결과가 없습니다.\n")
		return out.String(), nil
	}
	for i, r := range recs.Results {
		fmt.Fprintf(&out, "%d. %s (유사도 %.1f%%)\n", i+1, r.TitleKo, r.Similarity*100)
		if r.Category != "" {
			fmt.Fprintf(&out, "   분야: %s\n", r.Category)
		}
		if r.Description != "" {
			fmt.Fprintf(&out, "   %s\n", r.Description)
		}
	}
	return out.String(), nil
}

func (f *RecommendationsTextFormatter) SupportedType() string { return TypeRecommendations }

// TranscriptTextFormatter renders an interview chat
type TranscriptTextFormatter struct{}

func (f *TranscriptTextFormatter) Format(data any) (string, error) {
	t, err := deref[types.InterviewTranscript](data)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	fmt.Fprintf(&out, "=== 모의 면접: %s ===\n\n", t.Topic)
	for _, e := range t.Entries {
		who := "지원자"
		if e.Speaker == interview.SpeakerInterviewer {
			who = "면접관"
			if e.Interviewer != "" {
				who = e.Interviewer
			}
		}
		fmt.Fprintf(&out, "[%s] %s\n", who, e.Text)
	}
	if t.Finished {
		out.WriteString("\n=== 피드백 ===\n")
		out.WriteString(t.Feedback)
		out.WriteString("\n")
	}
	return out.String(), nil
}

func (f *TranscriptTextFormatter) SupportedType() string { return TypeTranscript }

// FieldReportTextFormatter lists the form errors
type FieldReportTextFormatter struct{}

func (f *FieldReportTextFormatter) Format(data any) (string, error) {
	r, err := deref[validation.Report](data)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if r.FirstError == "" && r.Email == "" && r.BirthDate == "" && !anySectionErrors(r) {
		out.WriteString("입력 오류가 없습니다.\n")
		return out.String(), nil
	}
	if r.FirstError != "" {
		fmt.Fprintf(&out, "첫 번째 오류: %s\n\n", r.FirstError)
	}
	if r.Email != "" {
		fmt.Fprintf(&out, "이메일: %s\n", r.Email)
	}
	if r.BirthDate != "" {
		fmt.Fprintf(&out, "생년월일: %s\n", r.BirthDate)
	}
	for _, line := range fieldErrorLines(r) {
		out.WriteString(line + "\n")
	}
	return out.String(), nil
}

func (f *FieldReportTextFormatter) SupportedType() string { return TypeFieldReport }

func anySectionErrors(r validation.Report) bool {
	for _, m := range r.Errors {
		if validation.HasErrors(m) {
			return true
		}
	}
	return false
}

// fieldErrorLines flattens the section maps in section, index and field order.
func fieldErrorLines(r validation.Report) []string {
	var lines []string
	for _, section := range types.Sections {
		m := r.Errors[section]
		indexes := make([]int, 0, len(m))
		for i := range m {
			indexes = append(indexes, i)
		}
		slices.Sort(indexes)
		for _, i := range indexes {
			fields := make([]string, 0, len(m[i]))
			for field := range m[i] {
				fields = append(fields, field)
			}
			slices.Sort(fields)
			for _, field := range fields {
				lines = append(lines, fmt.Sprintf("%s %d번 항목 %s: %s",
					validation.SectionName(section), i+1, field, m[i][field]))
			}
		}
	}
	return lines
}

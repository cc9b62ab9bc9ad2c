package resume

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"jobprep/internal/errors"
	"jobprep/internal/types"
)

const (
	MsgNoFeedback  = "저장할 피드백 내용이 없습니다."
	defaultName    = "이름"
	fileNameLayout = "20060102"
)

var fileNameReplacer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFileName replaces characters not allowed in file names.
func SanitizeFileName(name string) string {
	if s := strings.TrimSpace(fileNameReplacer.Replace(name)); s != "" {
		return s
	}
	return defaultName
}

// ExportFileName is the download name of the printable résumé.
func ExportFileName(name string, now time.Time) string {
	return "이력서_" + SanitizeFileName(name) + "_" + now.Format(fileNameLayout) + ".html"
}

// FeedbackFileName is the download name of saved AI feedback.
func FeedbackFileName(now time.Time) string {
	return "AI_피드백_" + now.Format(fileNameLayout) + ".txt"
}

// CheckFeedback refuses to save empty feedback.
func CheckFeedback(feedback string) error {
	if strings.TrimSpace(feedback) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, MsgNoFeedback, nil)
	}
	return nil
}

type labeled struct {
	Label string
	Value string
	Wide  bool
}

type exportItem struct {
	Date        string
	Details     string
	Description string
}

type exportSection struct {
	Title string
	Items []exportItem
}

type exportView struct {
	Name        string
	Photo       template.URL
	Personal    []labeled
	Sections    []exportSection
	CoverLetter []labeled
}

var exportTemplate = template.Must(template.New("resume").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
  <meta charset="UTF-8">
  <title>이력서 - {{.Name}}</title>
  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body { font-family: 'Noto Sans KR', 'Malgun Gothic', sans-serif; padding: 30px; max-width: 210mm; margin: 0 auto; line-height: 1.6; color: #333; }
    .header { text-align: center; margin-bottom: 30px; padding-bottom: 15px; border-bottom: 3px solid #5c4db8; }
    h1 { color: #5c4db8; font-size: 28px; margin-bottom: 10px; }
    .personal-section { display: flex; gap: 30px; margin-bottom: 25px; padding: 20px; background: #f9fafc; border-radius: 8px; }
    .photo-container { flex-shrink: 0; width: 120px; height: 150px; }
    .photo-container img { width: 100%; height: 100%; object-fit: cover; border: 2px solid #d0d8e3; border-radius: 4px; }
    .personal-info { flex: 1; display: grid; grid-template-columns: repeat(2, 1fr); gap: 12px 20px; }
    .personal-info p { font-size: 14px; }
    .personal-info strong { display: inline-block; width: 75px; color: #5c4db8; }
    .personal-info .wide { grid-column: 1 / -1; }
    h2 { color: #5c4db8; font-size: 18px; margin-bottom: 12px; padding-bottom: 8px; border-bottom: 2px solid #a88cff; }
    h3 { color: #5c4db8; font-size: 16px; margin: 15px 0 8px 0; }
    .section { margin-bottom: 25px; page-break-inside: avoid; }
    .resume-item { display: flex; padding: 8px 0; font-size: 14px; gap: 20px; }
    .item-date { flex-shrink: 0; width: 200px; color: #5c4db8; white-space: nowrap; }
    .item-content { flex: 1; }
    .item-description { margin-top: 6px; padding-left: 220px; font-size: 13px; color: #666; }
    .cover-letter-section { margin-top: 20px; padding: 20px; background: #f9fafc; border-radius: 8px; }
    .cover-letter-section p { white-space: pre-wrap; line-height: 1.8; margin: 10px 0; font-size: 13px; }
  </style>
</head>
<body>
  <div class="header"><h1>이력서</h1></div>
  <div class="personal-section">
    {{- if .Photo}}
    <div class="photo-container"><img src="{{.Photo}}" alt="증명사진"></div>
    {{- end}}
    <div class="personal-info">
      {{- range .Personal}}
      <p{{if .Wide}} class="wide"{{end}}><strong>{{.Label}}</strong> {{.Value}}</p>
      {{- end}}
    </div>
  </div>
  {{- range .Sections}}
  <div class="section">
    <h2>{{.Title}}</h2>
    {{- range .Items}}
    <div class="resume-item"><span class="item-date">{{.Date}}</span><span class="item-content">{{.Details}}</span></div>
    {{- if .Description}}
    <div class="item-description">{{.Description}}</div>
    {{- end}}
    {{- end}}
  </div>
  {{- end}}
  {{- if .CoverLetter}}
  <div class="cover-letter-section">
    <h2>자기소개서</h2>
    {{- range .CoverLetter}}
    <div><h3>{{.Label}}</h3><p>{{.Value}}</p></div>
    {{- end}}
  </div>
  {{- end}}
</body>
</html>
`))

// ExportHTML renders the printable résumé. Sections without content are left out.
func ExportHTML(d types.ResumeDraft, preview string) ([]byte, error) {
	view := exportView{
		Name:     firstNonEmpty(d.Name, defaultName),
		Personal: personalFields(d),
	}
	// only our own previews are trusted as image sources
	if strings.HasPrefix(preview, "data:image/") {
		view.Photo = template.URL(preview)
	}
	view.Sections = exportSections(d)
	for _, s := range CoverLetterSections {
		if text, _ := CoverLetterText(d, s.Key); text != "" {
			view.CoverLetter = append(view.CoverLetter, labeled{Label: s.Label, Value: text})
		}
	}

	var buf bytes.Buffer
	if err := exportTemplate.Execute(&buf, view); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "이력서를 생성하는 중 오류가 발생했습니다.", err)
	}
	return buf.Bytes(), nil
}

func personalFields(d types.ResumeDraft) []labeled {
	all := []labeled{
		{Label: "이름", Value: d.Name},
		{Label: "성별", Value: d.Gender},
		{Label: "생년월일", Value: d.BirthDate},
		{Label: "전화번호", Value: d.Phone},
		{Label: "이메일", Value: d.Email},
		{Label: "주소", Value: d.Address},
		{Label: "지원분야", Value: d.ApplicationField},
		{Label: "포트폴리오", Value: d.Portfolio, Wide: true},
	}
	out := all[:0]
	for _, f := range all {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

func exportSections(d types.ResumeDraft) []exportSection {
	var out []exportSection
	add := func(title string, show bool, items []exportItem) {
		if !show {
			return
		}
		kept := items[:0]
		for _, it := range items {
			if it.Date != "" || it.Details != "" || it.Description != "" {
				kept = append(kept, it)
			}
		}
		out = append(out, exportSection{Title: title, Items: kept})
	}

	var edu []exportItem
	showEdu := false
	for _, e := range d.Educations {
		showEdu = showEdu || e.School != "" || e.Major != ""
		edu = append(edu, exportItem{
			Date:    dateRange(e.StartDate, e.EndDate),
			Details: join(" | ", e.School, e.Major, e.GraduationStatus, paren(e.Location)),
		})
	}
	add("학력", showEdu, edu)

	var certs []exportItem
	showCerts := false
	for _, c := range d.Certificates {
		showCerts = showCerts || c.Name != ""
		certs = append(certs, exportItem{Date: c.Date, Details: join(" ", c.Name, paren(c.Issuer))})
	}
	add("자격증", showCerts, certs)

	var exp []exportItem
	showExp := false
	for _, e := range d.Experiences {
		showExp = showExp || e.Company != "" || e.Position != ""
		exp = append(exp, exportItem{
			Date:        dateRange(e.StartDate, e.EndDate),
			Details:     join(" | ", e.Company, e.Position, paren(e.Rank)),
			Description: e.Description,
		})
	}
	add("경력", showExp, exp)

	var tr []exportItem
	showTr := false
	for _, t := range d.Trainings {
		showTr = showTr || t.Content != "" || t.Institution != ""
		tr = append(tr, exportItem{
			Date:    dateRange(t.StartDate, t.EndDate),
			Details: join(" | ", t.Content, paren(t.Institution)),
		})
	}
	add("교육사항", showTr, tr)

	return out
}

func dateRange(start, end string) string {
	if start != "" && end != "" {
		return start + " ~ " + end
	}
	return start
}

func paren(s string) string {
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

func join(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func firstNonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

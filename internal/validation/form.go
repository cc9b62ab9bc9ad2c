package validation

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"jobprep/internal/types"
)

var (
	dateFields      = []string{"startDate", "endDate", "date"}
	dateRangeFields = []string{"startDate", "endDate"}
)

// sectionDataFields decides whether an item "has data" and its errors count.
var sectionDataFields = map[string][]string{
	types.SectionEducations:   {"school", "major", "startDate", "endDate"},
	types.SectionExperiences:  {"company", "position", "startDate", "endDate", "description"},
	types.SectionTrainings:    {"startDate", "endDate", "content", "institution"},
	types.SectionCertificates: {"name", "issuer", "date"},
}

// Form is the résumé form state: the draft plus the errors derived from it.
type Form struct {
	v     *Validator
	draft types.ResumeDraft

	emailError     string
	birthDateError string
	sectionErrors  map[string]types.FieldErrorMap
}

// NewForm wraps draft and computes its errors.
func NewForm(v *Validator, draft types.ResumeDraft) *Form {
	if v == nil {
		v = New(nil)
	}
	f := &Form{v: v, draft: draft}
	f.Revalidate()
	return f
}

// Draft returns the current draft.
func (f *Form) Draft() types.ResumeDraft {
	return f.draft
}

// EmailError returns the current email message.
func (f *Form) EmailError() string { return f.emailError }

// BirthDateError returns the current birth date message.
func (f *Form) BirthDateError() string { return f.birthDateError }

// Errors returns a copy of the error map of section.
func (f *Form) Errors(section string) types.FieldErrorMap {
	out := make(types.FieldErrorMap, len(f.sectionErrors[section]))
	for i, errs := range f.sectionErrors[section] {
		out[i] = maps.Clone(errs)
	}
	return out
}

// SetPersonal assigns a top-level field, formatting phone and birth date input.
func (f *Form) SetPersonal(field, raw string) error {
	d := &f.draft
	switch field {
	case "name":
		d.Name = raw
	case "email":
		f.SetEmail(raw)
	case "phone":
		d.Phone = FormatPhoneNumber(raw)
	case "address":
		d.Address = raw
	case "birthDate":
		f.SetBirthDate(raw)
	case "gender":
		d.Gender = raw
	case "applicationField":
		d.ApplicationField = raw
	case "portfolio":
		d.Portfolio = raw
	case "growthProcess":
		d.GrowthProcess = raw
	case "strengthsWeaknesses":
		d.StrengthsWeaknesses = raw
	case "academicLife":
		d.AcademicLife = raw
	case "motivation":
		d.Motivation = raw
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// SetEmail stores the address and validates its format.
func (f *Form) SetEmail(raw string) {
	f.draft.Email = raw
	f.emailError = ValidateEmail(raw)
}

// SetBirthDate formats the input as a full date and validates it.
func (f *Form) SetBirthDate(raw string) {
	f.draft.BirthDate = FormatDate(raw)
	f.birthDateError = f.v.ValidateBirthDate(f.draft.BirthDate)
}

// ApplyField stores a section field, formatting date input, and re-validates the item.
func (f *Form) ApplyField(section string, index int, field, raw string) (string, error) {
	value := raw
	if slices.Contains(dateFields, field) {
		if isYearMonthSection(section) && slices.Contains(dateRangeFields, field) {
			value = FormatYearMonth(raw)
		} else {
			value = FormatDate(raw)
		}
	}
	if err := f.draft.SetField(section, index, field, value); err != nil {
		return "", err
	}
	if slices.Contains(dateRangeFields, field) || (section == types.SectionCertificates && field == "date") {
		f.validateItem(section, index)
	}
	return value, nil
}

// AddItem appends an empty item to section.
func (f *Form) AddItem(section string) error {
	return f.draft.AddItem(section)
}

// RemoveItem deletes an item and re-indexes the section's errors.
func (f *Form) RemoveItem(section string, index int) error {
	if err := f.draft.RemoveItem(section, index); err != nil {
		return err
	}
	if m, ok := f.sectionErrors[section]; ok {
		f.sectionErrors[section] = RemoveIndex(m, index)
	}
	return nil
}

// Revalidate recomputes every derived error from the draft.
func (f *Form) Revalidate() {
	f.emailError = ValidateEmail(f.draft.Email)
	f.birthDateError = f.v.ValidateBirthDate(f.draft.BirthDate)
	f.sectionErrors = make(map[string]types.FieldErrorMap, len(types.Sections))
	for _, section := range types.Sections {
		f.sectionErrors[section] = types.FieldErrorMap{}
		for i := 0; i < f.draft.SectionLen(section); i++ {
			f.validateItem(section, i)
		}
	}
}

func (f *Form) validateItem(section string, index int) {
	item, err := f.draft.Item(section, index)
	if err != nil {
		return
	}
	var errs map[string]string
	switch section {
	case types.SectionEducations:
		errs = f.v.ValidateEducationDates(item["startDate"], item["endDate"]).Map()
	case types.SectionTrainings:
		errs = f.v.ValidateTrainingDates(item["startDate"], item["endDate"]).Map()
	case types.SectionExperiences:
		errs = f.v.ValidateExperienceDates(item["startDate"], item["endDate"]).Map()
	case types.SectionCertificates:
		errs = map[string]string{"date": f.v.ValidateCertificateDate(item["date"])}
	}
	if f.sectionErrors == nil {
		f.sectionErrors = make(map[string]types.FieldErrorMap)
	}
	if f.sectionErrors[section] == nil {
		f.sectionErrors[section] = types.FieldErrorMap{}
	}
	f.sectionErrors[section][index] = errs
}

// FirstError returns the message that blocks saving, or "" when the form is valid.
func (f *Form) FirstError() string {
	d := f.draft
	switch {
	case strings.TrimSpace(d.Name) == "":
		return MsgNameRequired
	case strings.TrimSpace(d.Email) == "":
		return MsgEmailRequired
	case strings.TrimSpace(d.BirthDate) == "":
		return MsgBirthDateRequired
	}
	if f.emailError != "" || !IsValidEmail(d.Email) {
		return orDefault(f.emailError, MsgEmailFormat)
	}
	if f.birthDateError != "" {
		return f.birthDateError
	}
	for _, section := range types.Sections {
		if msg := f.firstSectionError(section); msg != "" {
			return msg
		}
	}
	return ""
}

func (f *Form) firstSectionError(section string) string {
	fields := sectionDataFields[section]
	for i := 0; i < f.draft.SectionLen(section); i++ {
		item, _ := f.draft.Item(section, i)
		if !hasData(item, fields) {
			continue
		}
		if msg := firstItemError(f.sectionErrors[section][i]); msg != "" {
			return fmt.Sprintf("%s %d번 항목: %s", SectionName(section), i+1, msg)
		}
	}
	return ""
}

func hasData(item map[string]string, fields []string) bool {
	for _, field := range fields {
		if strings.TrimSpace(item[field]) != "" {
			return true
		}
	}
	return false
}

func isYearMonthSection(section string) bool {
	return section == types.SectionEducations || section == types.SectionTrainings
}

// Report is the serializable snapshot of every error on the form.
type Report struct {
	Errors     map[string]types.FieldErrorMap `json:"errors"`
	Email      string                         `json:"email"`
	BirthDate  string                         `json:"birthDate"`
	FirstError string                         `json:"firstError"`
}

// Report snapshots the current errors.
func (f *Form) Report() Report {
	errs := make(map[string]types.FieldErrorMap, len(types.Sections))
	for _, section := range types.Sections {
		errs[section] = f.Errors(section)
	}
	return Report{
		Errors:     errs,
		Email:      f.emailError,
		BirthDate:  f.birthDateError,
		FirstError: f.FirstError(),
	}
}

package validation

// User-facing messages shown next to form fields.
const (
	MsgDateFormat          = "올바른 날짜 형식을 입력해주세요."
	MsgDateFormatYearMonth = "올바른 날짜 형식을 입력해주세요. (예: 2011.03)"
	MsgDateFormatEducation = "올바른 날짜 형식을 입력해주세요. (예: 2014.02)"
	MsgDateFormatTraining  = "올바른 날짜 형식을 입력해주세요. (예: 2025.12)"
	MsgDateFuture          = "날짜는 오늘 이전이어야 합니다."
	MsgDateTooOld          = "날짜가 너무 이전입니다."
	MsgStartDateFuture     = "시작일은 오늘 이전이어야 합니다."
	MsgEndDateFuture       = "종료일은 오늘 이전이어야 합니다."
	MsgEndBeforeStart      = "종료일은 시작일 이후여야 합니다."
	MsgBirthDateFuture     = "생년월일은 오늘 이전이어야 합니다."
	MsgBirthDateTooOld     = "생년월일은 1900년 이후여야 합니다."
	MsgCertificateFuture   = "취득일은 오늘 이전이어야 합니다."
	MsgEmailFormat         = "올바른 이메일 형식을 입력해주세요. (예: example@email.com)"
	MsgNameRequired        = "이름을 입력해주세요."
	MsgEmailRequired       = "이메일을 입력해주세요."
	MsgBirthDateRequired   = "생년월일을 입력해주세요."
)

// sectionNames are the display names used in form-level error messages.
var sectionNames = map[string]string{
	"educations":   "학력",
	"experiences":  "경력",
	"trainings":    "교육사항",
	"certificates": "자격증",
}

// SectionName returns the Korean display name of a résumé section.
func SectionName(section string) string {
	return sectionNames[section]
}

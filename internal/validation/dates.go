package validation

import (
	"regexp"
	"strconv"
	"time"
)

// Clock supplies "today" to the range checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Useful in tests.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

var (
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearMonthPattern = regexp.MustCompile(`^\d{4}\.\d{2}$`)
)

// IsValidDate reports whether s is YYYY-MM-DD naming a real calendar day.
func IsValidDate(s string) bool {
	_, ok := parseDate(s, time.UTC)
	return ok
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if len(s) != 10 || !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[5:7])
	d, _ := strconv.Atoi(s[8:])
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow, so 2023-02-30 comes back as March.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// IsValidYearMonth reports whether s is YYYY.MM with a year in 1900..2100.
func IsValidYearMonth(s string) bool {
	_, _, ok := parseYearMonth(s)
	return ok
}

func parseYearMonth(s string) (int, time.Month, bool) {
	if len(s) != 7 || !yearMonthPattern.MatchString(s) {
		return 0, 0, false
	}
	y, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[5:])
	if y < 1900 || y > 2100 || m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, time.Month(m), true
}

// endOfToday is the last instant of the clock's current day.
func endOfToday(c Clock) time.Time {
	now := c.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())
}

// RangeOptions overrides the messages and floor of a single-date check.
type RangeOptions struct {
	FutureError  string
	MinDate      time.Time // zero means no floor
	MinDateError string
}

// Validator runs the date checks against a clock.
type Validator struct {
	clock Clock
}

// New returns a Validator. A nil clock means the system clock.
func New(clock Clock) *Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Validator{clock: clock}
}

// ValidateDateRange checks format, then not after today, then not before the floor.
func (v *Validator) ValidateDateRange(s string, opts RangeOptions) string {
	if s == "" {
		return ""
	}
	loc := v.clock.Now().Location()
	date, ok := parseDate(s, loc)
	if !ok {
		return MsgDateFormat
	}
	if date.After(endOfToday(v.clock)) {
		return orDefault(opts.FutureError, MsgDateFuture)
	}
	if !opts.MinDate.IsZero() && date.Before(opts.MinDate) {
		return orDefault(opts.MinDateError, MsgDateTooOld)
	}
	return ""
}

// ValidateBirthDate applies the 1900-01-01 floor and the birth-date messages.
func (v *Validator) ValidateBirthDate(s string) string {
	loc := v.clock.Now().Location()
	return v.ValidateDateRange(s, RangeOptions{
		FutureError:  MsgBirthDateFuture,
		MinDate:      time.Date(1900, 1, 1, 0, 0, 0, 0, loc),
		MinDateError: MsgBirthDateTooOld,
	})
}

// ValidateCertificateDate checks a 취득일.
func (v *Validator) ValidateCertificateDate(s string) string {
	return v.ValidateDateRange(s, RangeOptions{FutureError: MsgCertificateFuture})
}

// ValidateYearMonthRange checks format, then that the month is not after the current month.
func (v *Validator) ValidateYearMonthRange(s, futureError string) string {
	if s == "" {
		return ""
	}
	y, m, ok := parseYearMonth(s)
	if !ok {
		return MsgDateFormatYearMonth
	}
	now := v.clock.Now()
	if y > now.Year() || (y == now.Year() && m > now.Month()) {
		return orDefault(futureError, MsgDateFuture)
	}
	return ""
}

// DateRangeErrors holds the per-field result of a start/end check.
type DateRangeErrors struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Map returns the errors keyed by field name.
func (e DateRangeErrors) Map() map[string]string {
	return map[string]string{"startDate": e.StartDate, "endDate": e.EndDate}
}

// ValidateYearMonthDates checks a YYYY.MM start/end pair. formatError replaces the
// generic format message on the end field.
func (v *Validator) ValidateYearMonthDates(start, end, formatError string) DateRangeErrors {
	var errs DateRangeErrors
	if start != "" {
		errs.StartDate = v.ValidateYearMonthRange(start, MsgStartDateFuture)
	}
	if end == "" {
		return errs
	}
	if endErr := v.ValidateYearMonthRange(end, MsgEndDateFuture); endErr != "" {
		if endErr == MsgDateFormatYearMonth {
			endErr = orDefault(formatError, MsgDateFormatYearMonth)
		}
		errs.EndDate = endErr
		return errs
	}
	sy, sm, okStart := parseYearMonth(start)
	ey, em, _ := parseYearMonth(end)
	if okStart && errs.StartDate == "" && (ey < sy || (ey == sy && em < sm)) {
		errs.EndDate = MsgEndBeforeStart
	}
	return errs
}

// ValidateEducationDates checks a 학력 period.
func (v *Validator) ValidateEducationDates(start, end string) DateRangeErrors {
	return v.ValidateYearMonthDates(start, end, MsgDateFormatEducation)
}

// ValidateTrainingDates checks a 교육사항 period.
func (v *Validator) ValidateTrainingDates(start, end string) DateRangeErrors {
	return v.ValidateYearMonthDates(start, end, MsgDateFormatTraining)
}

// ValidateExperienceDates checks a 경력 period of full dates.
func (v *Validator) ValidateExperienceDates(start, end string) DateRangeErrors {
	var errs DateRangeErrors
	if start != "" {
		errs.StartDate = v.ValidateDateRange(start, RangeOptions{FutureError: MsgStartDateFuture})
	}
	if end == "" {
		return errs
	}
	if endErr := v.ValidateDateRange(end, RangeOptions{FutureError: MsgEndDateFuture}); endErr != "" {
		errs.EndDate = endErr
		return errs
	}
	if errs.StartDate != "" {
		return errs
	}
	if s, ok := parseDate(start, time.UTC); ok {
		e, _ := parseDate(end, time.UTC)
		if e.Before(s) {
			errs.EndDate = MsgEndBeforeStart
		}
	}
	return errs
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

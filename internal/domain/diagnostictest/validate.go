package diagnostictest

import (
	"fmt"
	"strings"
	"time"
)

// testDateLayouts are tried in order. Layouts without a zone are read as UTC.
// Besides ISO 8601 they cover the strings browsers produce for dates:
// Date.toUTCString, Date.toString and the common US spellings.
var testDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"2006/1/2",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
}

// Years a DATETIME column can hold.
const (
	minTestDateYear = 1000
	maxTestDateYear = 9999
)

// ParseTestDate parses s as a calendar date or date-time and returns it in UTC.
// Surrounding whitespace is ignored, as is the parenthesized zone name that
// Date.toString appends.
func ParseTestDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}
	for _, layout := range testDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = t.UTC()
		if y := t.Year(); y < minTestDateYear || y > maxTestDateYear {
			return time.Time{}, fmt.Errorf("date %q is outside years %d-%d", s, minTestDateYear, maxTestDateYear)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// fieldCheck inspects one input field. present is false when the key is
// missing from the payload. A passing check stores the normalized value on c.
type fieldCheck struct {
	field string
	check func(value any, present bool, c *Candidate) *FieldError
}

var checks = []fieldCheck{
	{field: "patientName", check: requiredText("patientName", "Patient name", func(c *Candidate, s string) { c.PatientName = s })},
	{field: "testType", check: requiredText("testType", "Test type", func(c *Candidate, s string) { c.TestType = s })},
	{field: "result", check: requiredText("result", "Test result", func(c *Candidate, s string) { c.Result = s })},
	{field: "testDate", check: optionalDate("testDate", func(c *Candidate, t time.Time) { c.TestDate = &t })},
	{field: "notes", check: optionalText("notes", func(c *Candidate, s string) { c.Notes = &s })},
}

func requiredText(field, label string, set func(*Candidate, string)) func(any, bool, *Candidate) *FieldError {
	return func(value any, present bool, c *Candidate) *FieldError {
		if !present || value == nil {
			fe := requiredFieldMissing(field, label)
			return &fe
		}
		s, ok := value.(string)
		if !ok {
			fe := invalidFieldType(field)
			return &fe
		}
		if s == "" {
			fe := requiredFieldMissing(field, label)
			return &fe
		}
		set(c, s)
		return nil
	}
}

func optionalDate(field string, set func(*Candidate, time.Time)) func(any, bool, *Candidate) *FieldError {
	return func(value any, present bool, c *Candidate) *FieldError {
		if !present || value == nil {
			return nil
		}
		s, ok := value.(string)
		if !ok {
			fe := invalidDateFormat(field)
			return &fe
		}
		if s == "" {
			return nil
		}
		t, err := ParseTestDate(s)
		if err != nil {
			fe := invalidDateFormat(field)
			return &fe
		}
		set(c, t)
		return nil
	}
}

func optionalText(field string, set func(*Candidate, string)) func(any, bool, *Candidate) *FieldError {
	return func(value any, present bool, c *Candidate) *FieldError {
		if !present || value == nil {
			return nil
		}
		s, ok := value.(string)
		if !ok {
			fe := invalidFieldType(field)
			return &fe
		}
		set(c, s)
		return nil
	}
}

// Validate checks a raw decoded payload against the record schema. It runs
// every check and returns either a candidate or all failures, never both.
// Anything other than a JSON object is treated as an empty object.
func Validate(raw any) (*Candidate, ValidationErrors) {
	obj, _ := raw.(map[string]any)

	var (
		c    Candidate
		errs ValidationErrors
	)
	for _, fc := range checks {
		value, present := obj[fc.field]
		if fe := fc.check(value, present, &c); fe != nil {
			errs = append(errs, *fe)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &c, nil
}

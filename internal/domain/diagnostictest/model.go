package diagnostictest

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TableName is the relational table that backs the record collection.
const TableName = "diagnostic_test"

// DiagnosticTest maps to the diagnostic_test table. It is the only entity the
// service persists: one test result for one patient.
type DiagnosticTest struct {
	ID          uuid.UUID `db:"id" gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	PatientName string    `db:"patient_name" gorm:"column:patient_name" json:"patientName"`
	TestType    string    `db:"test_type" gorm:"column:test_type" json:"testType"`
	Result      string    `db:"result" gorm:"column:result" json:"result"`
	TestDate    time.Time `db:"test_date" gorm:"column:test_date;type:datetime(6)" json:"testDate"`
	Notes       *string   `db:"notes" gorm:"column:notes" json:"notes"`
}

// TableName tells gorm which table to use.
func (DiagnosticTest) TableName() string { return TableName }

// Candidate is a validated, normalized record that has not been assigned an
// id yet. A nil TestDate means the caller did not supply one.
type Candidate struct {
	PatientName string
	TestType    string
	Result      string
	TestDate    *time.Time
	Notes       *string
}

// ListOptions controls List. When OrderByTestDateDesc is false the order is
// whatever the storage engine returns.
type ListOptions struct {
	OrderByTestDateDesc bool
}

// KnownTestTypes are the values the entry form offers. Seeding reports other
// values and exports offer them as a drop-down, but the service does not
// enforce them; testType is free text.
var KnownTestTypes = []string{
	"Blood Test",
	"X-Ray",
	"MRI",
	"CT Scan",
	"Urinalysis",
	"ECG",
}

// IsKnownTestType reports whether s is one of KnownTestTypes, ignoring case.
func IsKnownTestType(s string) bool {
	for _, k := range KnownTestTypes {
		if strings.EqualFold(k, s) {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers never share a mutable alias with a
// repository.
func (d *DiagnosticTest) clone() *DiagnosticTest {
	if d == nil {
		return nil
	}
	out := *d
	if d.Notes != nil {
		n := *d.Notes
		out.Notes = &n
	}
	return &out
}

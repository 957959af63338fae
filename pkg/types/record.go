// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the results-sync pipeline:
// raw and canonical exam result records, per-record outcomes, batch
// summaries, and configuration.
package types

// RawRecord is an untyped exam result record as read from a JSON source file.
// Any key may be absent. Numbers are kept as json.Number so they reach the
// remote service unchanged.
type RawRecord map[string]any

// Raw record keys.
const (
	KeyRollNumber      = "roll_number"
	KeyResultSemester  = "result_semester"
	KeyInstituteCode   = "institute_code"
	KeyInstituteName   = "institute_name"
	KeyDistrict        = "district"
	KeyResultDate      = "result_date"
	KeyRegulation      = "regulation"
	KeyTrade           = "trade"
	KeyExaminationHeld = "examination_held"
	KeyResult          = "result"
	KeyStatus          = "status"
	KeyGPA             = "GPA"
	KeyFailedSubjects  = "failed_subjects"
)

// Result statuses with GPA policy attached.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// GPANull is the sentinel GPA submitted for failed results. It is the
// literal string "null", distinct from a JSON null.
const GPANull = "null"

// Result returns the nested "result" mapping, or nil when it is absent or
// not an object.
func (r RawRecord) Result() map[string]any {
	m, _ := r[KeyResult].(map[string]any)
	return m
}

// CanonicalRecord is the normalized record submitted to the results API.
// Pass-through fields keep whatever JSON value the raw record carried and
// marshal as null when absent.
type CanonicalRecord struct {
	RollNumber      any `json:"roll_number" yaml:"roll_number"`
	Status          any `json:"status" yaml:"status"`
	GPA             any `json:"GPA" yaml:"GPA"`
	FailedSubjects  any `json:"failed_subjects" yaml:"failed_subjects"`
	InstituteCode   any `json:"institute_code" yaml:"institute_code"`
	InstituteName   any `json:"institute_name" yaml:"institute_name"`
	District        any `json:"district" yaml:"district"`
	ResultDate      any `json:"result_date" yaml:"result_date"`
	ResultSemester  any `json:"result_semester" yaml:"result_semester"`
	Regulation      any `json:"regulation" yaml:"regulation"`
	Trade           any `json:"trade" yaml:"trade"`
	ExaminationHeld any `json:"examination_held" yaml:"examination_held"`
}

// Identity is the (roll_number, semester) pair that decides insert versus
// update. No other field participates.
type Identity struct {
	RollNumber string `json:"roll_number" yaml:"roll_number"`
	Semester   string `json:"semester" yaml:"semester"`
}

// String renders the identity for log lines.
func (id Identity) String() string {
	return id.RollNumber + "/" + id.Semester
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize validates raw exam result records and maps them into
// the canonical shape submitted to the results API.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/results-sync/pkg/types"
)

var (
	// ErrMissingIdentity is returned when roll_number or result_semester is
	// absent or empty.
	ErrMissingIdentity = errors.New("missing identity field")

	// ErrGPARequired is returned for passed results that carry no GPA.
	ErrGPARequired = errors.New("GPA required for passed status")
)

// Validate confirms that both identity fields are present and non-empty.
// It never panics on malformed input.
func Validate(raw types.RawRecord) error {
	var missing []string
	if !present(raw[types.KeyRollNumber]) {
		missing = append(missing, types.KeyRollNumber)
	}
	if !present(raw[types.KeyResultSemester]) {
		missing = append(missing, types.KeyResultSemester)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingIdentity, strings.Join(missing, ", "))
	}
	return nil
}

// Normalize validates raw and builds its canonical record, applying the
// GPA policy: failed results get the "null" sentinel, passed results
// without a GPA are rejected, anything else passes the GPA through.
func Normalize(raw types.RawRecord) (types.CanonicalRecord, error) {
	if err := Validate(raw); err != nil {
		return types.CanonicalRecord{}, err
	}

	result := raw.Result()
	status := result[types.KeyStatus]
	gpa := result[types.KeyGPA]

	switch {
	case status == types.StatusFailed:
		gpa = types.GPANull
	case status == types.StatusPassed && gpa == nil:
		return types.CanonicalRecord{}, ErrGPARequired
	}

	return types.CanonicalRecord{
		RollNumber:      raw[types.KeyRollNumber],
		Status:          status,
		GPA:             gpa,
		FailedSubjects:  result[types.KeyFailedSubjects],
		InstituteCode:   raw[types.KeyInstituteCode],
		InstituteName:   raw[types.KeyInstituteName],
		District:        raw[types.KeyDistrict],
		ResultDate:      raw[types.KeyResultDate],
		ResultSemester:  raw[types.KeyResultSemester],
		Regulation:      raw[types.KeyRegulation],
		Trade:           raw[types.KeyTrade],
		ExaminationHeld: raw[types.KeyExaminationHeld],
	}, nil
}

// IdentityOf extracts the identity pair from a raw record. Missing fields
// yield empty strings, so it is safe to call on records that fail Validate.
func IdentityOf(raw types.RawRecord) types.Identity {
	return types.Identity{
		RollNumber: text(raw[types.KeyRollNumber]),
		Semester:   text(raw[types.KeyResultSemester]),
	}
}

// present reports whether v counts as a value: absent, null, "", false,
// zero numbers and empty collections all count as missing.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case int:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// text renders an identity value as the string sent in lookup queries.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MissingInputError reports that the input gate did not pass. It is the one
// expected condition: callers prompt for the missing files instead of failing.
type MissingInputError struct {
	Missing []Role
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s", joinRoles(e.Missing))
}

// IsMissingInput reports whether err is (or wraps) a MissingInputError.
func IsMissingInput(err error) bool {
	var mi *MissingInputError
	return errors.As(err, &mi)
}

// SchemaError names the role and column that failed extraction. Row is the
// 1-based data row, or 0 when the column itself is absent.
type SchemaError struct {
	Role   Role
	Column string
	Row    int
	Value  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("schema: %s input is missing required column %q", e.Role, e.Column)
	}
	if e.Value == "" {
		return fmt.Sprintf("schema: %s input row %d: column %q: %s", e.Role, e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema: %s input row %d: column %q: %s (%q)", e.Role, e.Row, e.Column, e.Reason, e.Value)
}

// JoinEmptyError reports a master table with no rows. Keys holds the number
// of distinct Project_ID values each side contributed.
type JoinEmptyError struct {
	Keys map[string]int
}

func (e *JoinEmptyError) Error() string {
	names := make([]string, 0, len(e.Keys))
	for k := range e.Keys {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%d", k, e.Keys[k])
	}
	return fmt.Sprintf("join produced no rows: no %s common to all sources (distinct keys: %s)",
		ColProjectID, strings.Join(parts, " "))
}

// DuplicateKeyError is returned under DuplicateKeysFail when a per-project
// table repeats a Project_ID.
type DuplicateKeyError struct {
	Role      Role
	ProjectID string
	Count     int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s input has %d rows for %s %q", e.Role, e.Count, ColProjectID, e.ProjectID)
}

// DivisionByZeroWarning flags a log row whose Available_Hours is zero.
// Under ZeroHoursFail it aborts the run; under ZeroHoursSkip it is recorded
// as a warning and the row is left out of the project's mean.
type DivisionByZeroWarning struct {
	Role      Role
	Row       int
	ProjectID string
}

func (e *DivisionByZeroWarning) Error() string {
	return fmt.Sprintf("%s input row %d (%s %q): %s is zero, utilisation is undefined",
		e.Role, e.Row, ColProjectID, e.ProjectID, ColAvailableHours)
}

// ErrorKind classifies err for reporting. Analysis failures report the kind
// of the underlying statistics error (see AnalysisError.Kind); anything
// unrecognised is "internal".
func ErrorKind(err error) string {
	var (
		mi  *MissingInputError
		se  *SchemaError
		je  *JoinEmptyError
		de  *DuplicateKeyError
		dz  *DivisionByZeroWarning
		ae  *AnalysisError
		inv *InputError
	)
	switch {
	case errors.As(err, &mi):
		return "missing_input"
	case errors.As(err, &se):
		return "schema"
	case errors.As(err, &je):
		return "join_empty"
	case errors.As(err, &de):
		return "duplicate_key"
	case errors.As(err, &dz):
		return "division_by_zero"
	case errors.As(err, &ae):
		return ae.Kind()
	case errors.As(err, &inv):
		return "input"
	default:
		return "internal"
	}
}

// InputError wraps a failure to read or parse one input.
type InputError struct {
	Role Role
	Name string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read %s input %s: %v", e.Role, e.Name, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

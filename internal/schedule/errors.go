// Package schedule implements the schedule resolution engine: it turns a
// validated configuration snapshot and a reference date into the ordered
// list of concrete event instances for the calendar feed.
package schedule

import "errors"

// Configuration errors. All of them abort a resolution run; the engine
// never skips an offending entry and continues. Callers classify with
// errors.Is.
var (
	// ErrUnknownPeriod marks a reference to a period ID absent from the
	// period registry.
	ErrUnknownPeriod = errors.New("unknown period")

	// ErrUnknownSubject marks a reference to a subject ID absent from the
	// subject registry.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrAmbiguousOverride marks an override carrying both a use_weekday
	// substitution and a per-period patch list.
	ErrAmbiguousOverride = errors.New("ambiguous override")

	// ErrInvalidDate marks a malformed or out-of-range date, weekday or
	// period value.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidVisibilityPolicy marks a structurally invalid visibility
	// policy (negative week or day counts).
	ErrInvalidVisibilityPolicy = errors.New("invalid visibility policy")
)

package outcome

import (
	"fmt"
)

// Status classifies the result of running a step or a scenario.
//
// Values are declared in severity order, least severe first. Comparing two
// statuses with < or > compares their severity.
//
// INVARIANT: a new status must be given an explicit position in this order.
// Aggregation is max-severity, so the position decides which status wins.
type Status int

const (
	// StatusPassed indicates the action ran and returned no error.
	StatusPassed Status = iota + 1
	// StatusSkipped indicates the action was dry-run because an earlier step
	// did not pass (or the whole run is a dry-run).
	StatusSkipped
	// StatusUndefined indicates no action could be bound to the step.
	StatusUndefined
	// StatusPending indicates the action raised the pending marker.
	StatusPending
	// StatusFailed indicates the action returned any other error.
	StatusFailed
)

// statusNames maps each valid status to its wire code.
var statusNames = map[Status]string{
	StatusPassed:    "passed",
	StatusSkipped:   "skipped",
	StatusUndefined: "undefined",
	StatusPending:   "pending",
	StatusFailed:    "failed",
}

// AllStatuses lists every valid status in severity order.
var AllStatuses = []Status{
	StatusPassed,
	StatusSkipped,
	StatusUndefined,
	StatusPending,
	StatusFailed,
}

// UnknownStatusError is returned when a status code is not one of the
// codes this version knows about.
//
// Reporters must surface it instead of falling back to a default; an unknown
// code means the producer and the consumer disagree on the status set.
type UnknownStatusError struct {
	Code string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown outcome status %q", e.Code)
}

// ParseStatus converts a wire code ("passed", "failed", ...) into a Status.
// Returns *UnknownStatusError for anything else, including the empty string.
func ParseStatus(code string) (Status, error) {
	for s, name := range statusNames {
		if name == code {
			return s, nil
		}
	}
	return 0, &UnknownStatusError{Code: code}
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// String returns the wire code. Invalid values render as "Status(n)".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
// Invalid statuses fail to marshal rather than producing a code nobody can parse.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, &UnknownStatusError{Code: s.String()}
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MoreSevereThan reports whether s outranks other in the severity order.
func (s Status) MoreSevereThan(other Status) bool {
	return s > other
}

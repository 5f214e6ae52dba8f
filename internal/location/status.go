package location

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the device's location authorization state as reported by the client.
type Status string

const (
	StatusNotDetermined Status = "not_determined"
	StatusAuthorized    Status = "authorized"
	StatusDenied        Status = "denied"
	StatusRestricted    Status = "restricted"
)

// PermissionError carries the alert shown to the user when location use is blocked.
type PermissionError struct {
	Status  Status
	Title   string
	Message string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("location %s: %s", e.Status, e.Title)
}

func (e *PermissionError) Is(target error) bool {
	t, ok := target.(*PermissionError)
	return ok && t.Status == e.Status
}

var (
	ErrNotDetermined = &PermissionError{
		Status:  StatusNotDetermined,
		Title:   "Location permission not requested",
		Message: "Allow location access when prompted to look up your current place.",
	}
	ErrDenied = &PermissionError{
		Status:  StatusDenied,
		Title:   "User has not authorized location services",
		Message: "Please go into 'Settings' and enable location services for this app.",
	}
	ErrRestricted = &PermissionError{
		Status:  StatusRestricted,
		Title:   "Location services denied",
		Message: "It may be that parental controls are restricting location use in this app.",
	}
	ErrUnknownStatus = errors.New("unknown location authorization status")
)

// ParseStatus reads a client-supplied status. Empty means authorized: the
// client only sends a coordinate once it has one.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAuthorized, "authorized_always", "authorized_when_in_use":
		return StatusAuthorized, nil
	case StatusNotDetermined:
		return StatusNotDetermined, nil
	case StatusDenied:
		return StatusDenied, nil
	case StatusRestricted:
		return StatusRestricted, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// CheckStatus returns nil when a location may be used, otherwise the
// matching permission error.
func CheckStatus(s Status) error {
	switch s {
	case StatusAuthorized:
		return nil
	case StatusNotDetermined:
		return ErrNotDetermined
	case StatusDenied:
		return ErrDenied
	case StatusRestricted:
		return ErrRestricted
	}
	return fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

package bundle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNetwork marks a failure to obtain a usable answer from the minifier.
var ErrNetwork = errors.New("minifier request failed")

// MinifierError describes a failed minifier request.
type MinifierError struct {
	URL string

	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int

	// ServerErrors are service-level errors reported in the response body.
	ServerErrors []string

	Err error
}

func (e *MinifierError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "minifier %s", e.URL)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if len(e.ServerErrors) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.ServerErrors, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MinifierError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Err}
}

// Severity of a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a compiler message about the combined source.
type Diagnostic struct {
	File     string
	Line     int
	Column   int
	Severity Severity
	Message  string
}

// String formats d as "file:line:col: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
}

package manifest

import (
	"errors"
	"fmt"
)

// ErrIO marks a manifest read or write failure. Such failures abort the
// operation and never leave a partial manifest behind.
var ErrIO = errors.New("manifest I/O error")

// DirectiveWarning reports a directive line that could not be interpreted.
// The line is still carried through regeneration verbatim.
type DirectiveWarning struct {
	Line   string
	Reason string
}

func (w *DirectiveWarning) Error() string {
	return fmt.Sprintf("directive %q: %s", w.Line, w.Reason)
}

func ioError(op, path string, err error) error {
	return fmt.Errorf("%w: failed to %s %s: %w", ErrIO, op, path, err)
}

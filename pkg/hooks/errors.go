package hooks

import (
	"fmt"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

// Hook errors. Execution, script and load failures reuse the shared
// sentinels so callers can match them without importing this package.
var (
	// ErrHookTypeEmpty is returned when a hook type is empty.
	ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

	ErrHookExecution = errors.ErrHookExecution
	ErrHookScript    = errors.ErrHookScript
	ErrHookLoad      = errors.ErrHookLoad
)

// ErrUnsupportedHookEvent is returned when an unsupported hook event is used.
func ErrUnsupportedHookEvent(event string) error {
	return errors.Wrapf(ErrHookLoad, "unsupported hook event: %s", event)
}

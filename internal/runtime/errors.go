package runtime

import (
	"fmt"

	"github.com/aretw0/boto/pkg/domain"
)

// TransitionError reports a trigger that no rule accepts in the current state.
type TransitionError struct {
	From    domain.State
	Trigger domain.Trigger
	// Guarded is set when a rule matched but its guard failed with no fallback.
	Guarded bool
}

func (e *TransitionError) Error() string {
	if e.Guarded {
		return fmt.Sprintf("trigger %s rejected by guard in state %s", e.Trigger, e.From)
	}
	return fmt.Sprintf("trigger %s not allowed in state %s", e.Trigger, e.From)
}

func (e *TransitionError) Unwrap() error {
	return domain.ErrTransitionRejected
}

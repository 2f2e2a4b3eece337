package agent

import "fmt"

// ProcessError is returned when a turn fails. It unwraps to the cause so
// callers can still match provider sentinels such as llm.ErrRateLimit.
type ProcessError struct {
	Agent Type
	Err   error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("failed to process message: %v", e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

package sandbox

import "errors"

var (
	// ErrEmptyCommand is returned when the command string is empty.
	ErrEmptyCommand = errors.New("command is empty")

	// ErrExecutionTimeout is returned when execution exceeds its time budget.
	ErrExecutionTimeout = errors.New("execution timed out")
)

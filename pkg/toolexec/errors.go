package toolexec

import "errors"

var (
	// ErrPermissionDenied is returned when a shell command matches no
	// allowlist rule.
	ErrPermissionDenied = errors.New("command is not allowlisted")

	// ErrUnknownTool is returned when a call names an unregistered tool.
	ErrUnknownTool = errors.New("unknown tool")
)

// Reason classifies a failed tool invocation for the model and the user.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonPathViolation    Reason = "path_violation"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonTimeout          Reason = "execution_timeout"
	ReasonInvalidArgs      Reason = "invalid_arguments"
	ReasonUnknownTool      Reason = "unknown_tool"
	ReasonExecError        Reason = "execution_error"
)

package agent

import (
	"errors"
	"fmt"
	"net"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	openai "github.com/openai/openai-go"
)

// ProtocolError marks a malformed or unschematized backend reply. It is never
// retried; the runner surfaces it immediately instead of coercing it to text.
type ProtocolError struct {
	Provider string
	Detail   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error from %s: %s: %v", e.Provider, e.Detail, e.Err)
	}
	return fmt.Sprintf("protocol error from %s: %s", e.Provider, e.Detail)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTransient reports whether a provider call failure is worth retrying.
// Rate limits, server-side errors, and network failures are transient;
// protocol errors and client-side rejections are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsProtocolError(err) {
		return false
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return retryableStatus(oaiErr.StatusCode)
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return retryableStatus(antErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"connection refused", "connection reset", "EOF", "no such host"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

package types

import "fmt"

// The translation layer never returns partial results: a malformed tool call
// silently passed upstream could trigger incorrect tool execution, so every
// structural problem surfaces as one of the typed errors below and
// propagates to the caller unmodified.

// UnsupportedInputError reports canonical input the proxy deliberately does
// not handle, such as multi-part/multimodal message content.
type UnsupportedInputError struct {
	Reason string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported input: %s", e.Reason)
}

// ProtocolViolationError reports a Gemini payload that breaks the expected
// wire contract: an unexpected role, a function call missing the inner
// thoughts argument, or an unrecognized finish reason.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}

// UsageUnavailableError reports that usage could not be reconciled: the
// response carried no usageMetadata and no input contents were supplied for
// estimation.
type UsageUnavailableError struct {
	Reason string
}

func (e *UsageUnavailableError) Error() string {
	return fmt.Sprintf("usage unavailable: %s", e.Reason)
}

// TransportError wraps a failure from the network layer. The underlying
// error is preserved and re-surfaced unchanged after logging.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

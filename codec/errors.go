package codec

import "fmt"

// ValidationError reports a request that fails the local protocol
// limits (method name rule, parameter count, nesting depth). It is
// always raised before any XML is produced and before any network
// work.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "xmlrpc: invalid request: " + e.Reason
}

// FormatError reports wire text that is not well-formed XML, violates
// a hard security limit (document size, entity expansion, decode
// depth), or carries a malformed scalar literal. Fragment holds the
// offending literal when one exists.
type FormatError struct {
	Reason   string
	Fragment string
}

func (e *FormatError) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("xmlrpc: malformed wire text: %s: %q", e.Reason, e.Fragment)
	}
	return "xmlrpc: malformed wire text: " + e.Reason
}

// ProtocolError reports well-formed XML that violates the protocol
// shape: an unsupported value tag, a wrong root element, a missing
// envelope child. Never raised for remote faults — those decode into
// message.Fault.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "xmlrpc: protocol violation: " + e.Reason
}

// Package message defines the XML-RPC call structures exchanged between
// client and server.
//
// Request is the "envelope" for one method call. It gets serialized by
// the codec layer into a <methodCall> document for transmission over
// the transport. Response is the decoded form of a <methodResponse>
// document: either a list of result values or a remote Fault, never
// both.
package message

import (
	"fmt"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// Request carries the data for a single method call.
//
// Instances are transient: built per call, consumed once by the
// encoder, never persisted. The codec validates Method and Params
// before producing any output (see codec.EncodeRequest).
type Request struct {
	Method string        // e.g. "examples.getStateName"
	Params []value.Value // ordered, at most MaxParams entries
}

// Hard protocol limits the encoder enforces on every Request.
const (
	MaxParams       = 100  // parameter count cap
	MaxMethodLen    = 1000 // method name length cap
	MaxNestingDepth = 10   // array/struct nesting cap, encode and decode
)

// Fault is a remote-reported application-level failure, decoded from a
// <fault> envelope. It is distinct from local protocol or transport
// errors: a Fault means the server understood the call and rejected it.
//
// Fault implements error so callers can branch with errors.As:
//
//	var fault *message.Fault
//	if errors.As(err, &fault) { ... business logic ... }
type Fault struct {
	Code    int32
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("xmlrpc: fault %d: %s", f.Code, f.Message)
}

// Response is the decoded methodResponse. Exactly one arm is
// populated: Fault for a <fault> envelope, Values for <params>.
type Response struct {
	Values []value.Value // result values, document order
	Fault  *Fault        // non-nil iff the server returned a fault
}

// Err returns the fault as an error, or nil for a successful response.
func (r *Response) Err() error {
	if r.Fault != nil {
		return r.Fault
	}
	return nil
}

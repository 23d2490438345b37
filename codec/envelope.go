package codec

import (
	"encoding/xml"
	"fmt"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// DecodeResponse parses a complete <methodResponse> document.
//
// The root must be <methodResponse> and its sole child exactly one of
// <fault> or <params>; anything else is a protocol violation. A fault
// decodes into message.Fault — a first-class result discriminant,
// never conflated with a malformed document.
func DecodeResponse(data []byte) (*message.Response, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}

	root, _, err := nextStart(d)
	if err != nil {
		return nil, err
	}
	if root.Name.Local != "methodResponse" {
		return nil, &ProtocolError{Reason: fmt.Sprintf("root element is <%s>, want <methodResponse>", root.Name.Local)}
	}

	arm, done, err := nextStart(d)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, &ProtocolError{Reason: "methodResponse has neither <fault> nor <params>"}
	}

	var resp *message.Response
	switch arm.Name.Local {
	case "fault":
		fault, err := parseFault(d)
		if err != nil {
			return nil, err
		}
		resp = &message.Response{Fault: fault}
	case "params":
		values, err := parseParams(d)
		if err != nil {
			return nil, err
		}
		resp = &message.Response{Values: values}
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unrecognized methodResponse child <%s>", arm.Name.Local)}
	}

	// Exactly one child: a second <fault> or <params> is a violation.
	if _, done, err = nextStart(d); err != nil {
		return nil, err
	}
	if !done {
		return nil, &ProtocolError{Reason: "methodResponse has more than one child"}
	}
	return resp, nil
}

// parseFault reads the single <value> of a <fault>, which must hold a
// struct. The read is permissive, mirrored from the source format:
// faultCode and faultString are picked out if present and of the right
// variant, a missing member leaves its zero value, and any extra
// member is ignored.
func parseFault(d *xml.Decoder) (*message.Fault, error) {
	start, done, err := nextStart(d)
	if err != nil {
		return nil, err
	}
	if done || start.Name.Local != "value" {
		return nil, &ProtocolError{Reason: "fault must contain a single <value>"}
	}
	v, err := parseValue(d, 1)
	if err != nil {
		return nil, err
	}
	if v.Kind() != value.Struct {
		return nil, &ProtocolError{Reason: fmt.Sprintf("fault value is %s, want struct", v.Kind())}
	}

	fault := &message.Fault{}
	if code, ok := v.Get("faultCode"); ok {
		if n, ok := code.Int(); ok {
			fault.Code = n
		}
	}
	if msg, ok := v.Get("faultString"); ok {
		if s, ok := msg.String(); ok {
			fault.Message = s
		}
	}

	// Consume the closing </fault>.
	if _, done, err = nextStart(d); err != nil {
		return nil, err
	}
	if !done {
		return nil, &ProtocolError{Reason: "fault has more than one <value>"}
	}
	return fault, nil
}

// parseParams reads zero or more <param> children, each wrapping
// exactly one <value>. Whether a successful call should carry exactly
// one result is the calling layer's contract, not the codec's — every
// well-formed count decodes here.
func parseParams(d *xml.Decoder) ([]value.Value, error) {
	values := make([]value.Value, 0, 1)
	for {
		start, done, err := nextStart(d)
		if err != nil {
			return nil, err
		}
		if done {
			return values, nil
		}
		if start.Name.Local != "param" {
			return nil, &ProtocolError{Reason: fmt.Sprintf("unexpected <%s> inside <params>", start.Name.Local)}
		}

		vstart, vdone, err := nextStart(d)
		if err != nil {
			return nil, err
		}
		if vdone || vstart.Name.Local != "value" {
			return nil, &ProtocolError{Reason: "param must contain a single <value>"}
		}
		v, err := parseValue(d, 1)
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		// Consume the closing </param>.
		if _, done, err = nextStart(d); err != nil {
			return nil, err
		}
		if !done {
			return nil, &ProtocolError{Reason: "param has more than one <value>"}
		}
	}
}

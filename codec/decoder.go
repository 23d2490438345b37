package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// Hard security limits for wire text arriving from the remote peer.
// A single hostile response must not be able to exhaust memory or
// stack, so these are checked before or during parsing, never after.
const (
	// MaxDocumentSize caps the accepted document at 1 MiB.
	MaxDocumentSize = 1 << 20
	// MaxEntityExpansion caps the characters producible via entity
	// references, defending against amplification attacks.
	MaxEntityExpansion = 1024
)

// DecodeValue parses a single <value> fragment into a Value. The same
// hardening applies as for full response documents.
func DecodeValue(data []byte) (value.Value, error) {
	d, err := newDecoder(data)
	if err != nil {
		return value.Value{}, err
	}
	start, done, err := nextStart(d)
	if err != nil {
		return value.Value{}, err
	}
	if done || start.Name.Local != "value" {
		return value.Value{}, &ProtocolError{Reason: "expected a <value> element"}
	}
	return parseValue(d, 1)
}

// newDecoder runs the pre-parse hardening checks and builds the token
// decoder.
//
// Step 1: reject oversized documents before any structural work.
// Step 2: cap entity expansion. encoding/xml only ever expands the
// five predefined entities and numeric character references — one
// character each — so counting reference starts bounds the expansion.
// Step 3: no custom entity map is installed and every DTD directive is
// rejected in nextToken, so external entities cannot be resolved at all.
func newDecoder(data []byte) (*xml.Decoder, error) {
	if len(data) > MaxDocumentSize {
		return nil, &FormatError{Reason: fmt.Sprintf("document size %d exceeds the %d byte limit", len(data), MaxDocumentSize)}
	}
	if n := bytes.Count(data, []byte{'&'}); n > MaxEntityExpansion {
		return nil, &FormatError{Reason: fmt.Sprintf("%d entity references exceed the expansion limit of %d characters", n, MaxEntityExpansion)}
	}
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true
	return d, nil
}

// nextToken returns the next structural token, skipping comments and
// processing instructions. Any markup declaration (<!DOCTYPE …>,
// <!ENTITY …>) is rejected outright — DTD processing is prohibited.
func nextToken(d *xml.Decoder) (xml.Token, error) {
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, &FormatError{Reason: "not well-formed XML: " + err.Error()}
		}
		switch tok.(type) {
		case xml.Comment, xml.ProcInst:
			continue
		case xml.Directive:
			return nil, &FormatError{Reason: "DTD processing is prohibited"}
		default:
			return tok, nil
		}
	}
}

// nextStart advances to the next child element. done reports that the
// enclosing element ended instead. Character data between elements is
// skipped — at every position where nextStart is used, raw text
// carries no meaning (the untyped-value convention is handled by the
// caller seeing done without a start).
func nextStart(d *xml.Decoder) (start xml.StartElement, done bool, err error) {
	for {
		tok, err := nextToken(d)
		if err == io.EOF {
			return xml.StartElement{}, false, &FormatError{Reason: "unexpected end of document"}
		}
		if err != nil {
			return xml.StartElement{}, false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, false, nil
		case xml.EndElement:
			return xml.StartElement{}, true, nil
		}
	}
}

// elementText collects the character data of a scalar element up to
// its end tag. A nested element inside a scalar is a shape violation.
func elementText(d *xml.Decoder, tag string) (string, error) {
	var sb strings.Builder
	for {
		tok, err := nextToken(d)
		if err == io.EOF {
			return "", &FormatError{Reason: "unexpected end of document"}
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", &ProtocolError{Reason: fmt.Sprintf("unexpected <%s> element inside <%s>", t.Name.Local, tag)}
		}
	}
}

// parseValue decodes one <value> element; the decoder is positioned
// just past the start tag, and the closing tag is consumed before
// returning. depth counts nesting levels starting from 1 — the decode
// side enforces the same limit as the encoder, as a resource bound
// against hostile deeply-nested responses.
func parseValue(d *xml.Decoder, depth int) (value.Value, error) {
	if depth > message.MaxNestingDepth {
		return value.Value{}, &FormatError{Reason: fmt.Sprintf("nesting exceeds the limit of %d levels", message.MaxNestingDepth)}
	}

	start, done, err := nextStart(d)
	if err != nil {
		return value.Value{}, err
	}
	if done {
		// Untyped, childless <value> — decodes as the empty string.
		// A protocol quirk preserved deliberately; not extended to any
		// other ambiguous shape.
		return value.NewString(""), nil
	}

	v, err := parseTyped(d, start, depth)
	if err != nil {
		return value.Value{}, err
	}

	// Only the closing </value> may follow the type element.
	if _, done, err = nextStart(d); err != nil {
		return value.Value{}, err
	}
	if !done {
		return value.Value{}, &ProtocolError{Reason: "multiple type elements inside <value>"}
	}
	return v, nil
}

// parseTyped dispatches on the type tag immediately under <value>.
// The variant set is closed: any tag outside the eight kinds is a
// protocol violation, never coerced to a default.
func parseTyped(d *xml.Decoder, start xml.StartElement, depth int) (value.Value, error) {
	switch start.Name.Local {
	case "i4", "int": // synonyms on input; the encoder emits <i4>
		text, err := elementText(d, start.Name.Local)
		if err != nil {
			return value.Value{}, err
		}
		n, perr := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if perr != nil {
			return value.Value{}, &FormatError{Reason: "invalid integer literal", Fragment: text}
		}
		return value.NewInt(int32(n)), nil

	case "boolean":
		text, err := elementText(d, "boolean")
		if err != nil {
			return value.Value{}, err
		}
		// Lenient by protocol convention: "1" is true, anything else
		// (including malformed input) is false, never an error.
		return value.NewBool(strings.TrimSpace(text) == "1"), nil

	case "string":
		text, err := elementText(d, "string")
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(text), nil

	case "double":
		text, err := elementText(d, "double")
		if err != nil {
			return value.Value{}, err
		}
		f, perr := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if perr != nil {
			return value.Value{}, &FormatError{Reason: "invalid double literal", Fragment: text}
		}
		return value.NewDouble(f), nil

	case "dateTime.iso8601":
		text, err := elementText(d, "dateTime.iso8601")
		if err != nil {
			return value.Value{}, err
		}
		t, perr := time.Parse(TimeLayout, strings.TrimSpace(text))
		if perr != nil {
			return value.Value{}, &FormatError{Reason: "invalid dateTime literal", Fragment: text}
		}
		return value.NewDateTime(t), nil

	case "base64":
		text, err := elementText(d, "base64")
		if err != nil {
			return value.Value{}, err
		}
		b, perr := base64.StdEncoding.DecodeString(text)
		if perr != nil {
			return value.Value{}, &FormatError{Reason: "invalid base64 text", Fragment: text}
		}
		return value.NewBase64(b), nil

	case "struct":
		return parseStruct(d, depth)

	case "array":
		return parseArray(d, depth)
	}

	return value.Value{}, &ProtocolError{Reason: fmt.Sprintf("unsupported value type <%s>", start.Name.Local)}
}

// parseStruct reads <member> children until </struct>. Duplicate
// member names resolve last-write-wins via Value.Set.
func parseStruct(d *xml.Decoder, depth int) (value.Value, error) {
	s := value.NewStruct()
	for {
		start, done, err := nextStart(d)
		if err != nil {
			return value.Value{}, err
		}
		if done {
			return s, nil
		}
		if start.Name.Local != "member" {
			return value.Value{}, &ProtocolError{Reason: fmt.Sprintf("unexpected <%s> inside <struct>", start.Name.Local)}
		}
		name, member, err := parseMember(d, depth)
		if err != nil {
			return value.Value{}, err
		}
		s.Set(name, member)
	}
}

// parseMember reads one <member>, requiring exactly one <name> and one
// <value> child in either order.
func parseMember(d *xml.Decoder, depth int) (string, value.Value, error) {
	var (
		name     string
		member   value.Value
		hasName  bool
		hasValue bool
	)
	for {
		start, done, err := nextStart(d)
		if err != nil {
			return "", value.Value{}, err
		}
		if done {
			if !hasName || !hasValue {
				return "", value.Value{}, &ProtocolError{Reason: "struct member missing <name> or <value>"}
			}
			return name, member, nil
		}
		switch start.Name.Local {
		case "name":
			if name, err = elementText(d, "name"); err != nil {
				return "", value.Value{}, err
			}
			hasName = true
		case "value":
			if member, err = parseValue(d, depth+1); err != nil {
				return "", value.Value{}, err
			}
			hasValue = true
		default:
			return "", value.Value{}, &ProtocolError{Reason: fmt.Sprintf("unexpected <%s> inside <member>", start.Name.Local)}
		}
	}
}

// parseArray reads the optional <data> child of an <array>. A missing
// <data> yields an empty array.
func parseArray(d *xml.Decoder, depth int) (value.Value, error) {
	start, done, err := nextStart(d)
	if err != nil {
		return value.Value{}, err
	}
	if done {
		return value.NewArray(), nil
	}
	if start.Name.Local != "data" {
		return value.Value{}, &ProtocolError{Reason: fmt.Sprintf("unexpected <%s> inside <array>", start.Name.Local)}
	}

	var elems []value.Value
	for {
		start, done, err := nextStart(d)
		if err != nil {
			return value.Value{}, err
		}
		if done {
			break
		}
		if start.Name.Local != "value" {
			return value.Value{}, &ProtocolError{Reason: fmt.Sprintf("unexpected <%s> inside <data>", start.Name.Local)}
		}
		e, err := parseValue(d, depth+1)
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, e)
	}

	// Consume the closing </array>.
	if _, done, err = nextStart(d); err != nil {
		return value.Value{}, err
	}
	if !done {
		return value.Value{}, &ProtocolError{Reason: "unexpected element after <data> inside <array>"}
	}
	return value.NewArray(elems...), nil
}

// Package codec implements the XML-RPC wire codec: the encoder that
// turns a Request into a <methodCall> document, and the hardened
// decoder that turns a <methodResponse> document from an untrusted
// peer back into values.
//
// The codec is the sole input-validation boundary of the client. All
// limits are static and enforced here:
//
//	encode:  method name ^[A-Za-z0-9_.]{1,1000}$, ≤100 params, nesting ≤10
//	decode:  document ≤1 MiB, entity expansion ≤1024 chars, nesting ≤10,
//	         no DTD, no external entities
//
// Encoding and decoding are synchronous and reentrant — no shared
// mutable state, safe for concurrent use without locking.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// TimeLayout is the exact wire pattern for dateTime.iso8601 values:
// no timezone, no fractional seconds. Both directions use it
// verbatim; anything else is a format error, never a truncation.
const TimeLayout = "20060102T15:04:05"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// methodNameRe is the closed charset/length rule for method names.
var methodNameRe = regexp.MustCompile(`^[A-Za-z0-9_.]{1,1000}$`)

// escaper replaces the five XML-special characters with their entity
// references. Applied uniformly to every text node and struct member
// name — never to a subset.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EncodeRequest serializes a Request into a complete <methodCall>
// document.
//
// Validation runs in full before a single byte is produced, so a
// rejected request never leaves a partial document behind:
//  1. method name must match the charset/length rule
//  2. parameter count ≤ message.MaxParams
//  3. nesting depth of every parameter ≤ message.MaxNestingDepth
//
// The <params> element is omitted entirely for a zero-parameter call.
func EncodeRequest(req *message.Request) ([]byte, error) {
	if !methodNameRe.MatchString(req.Method) {
		return nil, &ValidationError{Reason: fmt.Sprintf("method name %q does not match ^[A-Za-z0-9_.]{1,1000}$", req.Method)}
	}
	if len(req.Params) > message.MaxParams {
		return nil, &ValidationError{Reason: fmt.Sprintf("%d parameters exceeds the limit of %d", len(req.Params), message.MaxParams)}
	}
	for i, p := range req.Params {
		if d := p.Depth(); d > message.MaxNestingDepth {
			return nil, &ValidationError{Reason: fmt.Sprintf("parameter %d nests %d levels deep, limit is %d", i, d, message.MaxNestingDepth)}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodCall><methodName>")
	buf.WriteString(req.Method) // charset already excludes every escapable character
	buf.WriteString("</methodName>")
	if len(req.Params) > 0 {
		buf.WriteString("<params>")
		for _, p := range req.Params {
			buf.WriteString("<param>")
			writeValue(&buf, p)
			buf.WriteString("</param>")
		}
		buf.WriteString("</params>")
	}
	buf.WriteString("</methodCall>")
	return buf.Bytes(), nil
}

// EncodeValue serializes a single value into a <value> fragment. The
// same depth limit applies as for request parameters.
func EncodeValue(v value.Value) ([]byte, error) {
	if d := v.Depth(); d > message.MaxNestingDepth {
		return nil, &ValidationError{Reason: fmt.Sprintf("value nests %d levels deep, limit is %d", d, message.MaxNestingDepth)}
	}
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes(), nil
}

// writeValue emits <value><TAG>…</TAG></value>. Depth was validated up
// front, so the recursion here is bounded.
//
// The encoder commits to <i4> for integers on output; the decoder
// accepts both <i4> and <int>.
func writeValue(buf *bytes.Buffer, v value.Value) {
	buf.WriteString("<value>")
	switch v.Kind() {
	case value.Int:
		n, _ := v.Int()
		buf.WriteString("<i4>")
		buf.WriteString(strconv.FormatInt(int64(n), 10))
		buf.WriteString("</i4>")
	case value.Bool:
		b, _ := v.Bool()
		if b {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case value.String:
		s, _ := v.String()
		buf.WriteString("<string>")
		buf.WriteString(escaper.Replace(s))
		buf.WriteString("</string>")
	case value.Double:
		f, _ := v.Double()
		buf.WriteString("<double>")
		// Shortest representation that round-trips through ParseFloat.
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		buf.WriteString("</double>")
	case value.DateTime:
		t, _ := v.DateTime()
		buf.WriteString("<dateTime.iso8601>")
		buf.WriteString(t.Format(TimeLayout))
		buf.WriteString("</dateTime.iso8601>")
	case value.Base64:
		b, _ := v.Base64()
		buf.WriteString("<base64>")
		buf.WriteString(base64.StdEncoding.EncodeToString(b))
		buf.WriteString("</base64>")
	case value.Array:
		elems, _ := v.Array()
		buf.WriteString("<array><data>")
		for _, e := range elems {
			writeValue(buf, e)
		}
		buf.WriteString("</data></array>")
	case value.Struct:
		members, _ := v.Members()
		buf.WriteString("<struct>")
		for _, m := range members {
			buf.WriteString("<member><name>")
			buf.WriteString(escaper.Replace(m.Name))
			buf.WriteString("</name>")
			writeValue(buf, m.Value)
			buf.WriteString("</member>")
		}
		buf.WriteString("</struct>")
	}
	buf.WriteString("</value>")
}

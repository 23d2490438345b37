// Package value defines the closed set of XML-RPC wire value variants.
//
// The protocol knows exactly eight kinds of value — four scalars
// (i4/int, boolean, string, double), two binary-ish scalars
// (dateTime.iso8601, base64) and two containers (array, struct).
// Value is a tagged union over those kinds: one struct, one Kind
// discriminant, and per-kind payload fields. Decoders must reject any
// wire tag outside this set — the variant set is closed, there is no
// "unknown" kind.
package value

import (
	"bytes"
	"fmt"
	"time"
)

// Kind identifies which of the eight wire variants a Value holds.
type Kind int

const (
	Int      Kind = iota // 32-bit signed integer (<i4> / <int>)
	Bool                 // <boolean>
	String               // <string>, UTF-8, empty by default
	Double               // <double>, 64-bit float
	DateTime             // <dateTime.iso8601>, second precision, no timezone
	Base64               // <base64>, arbitrary bytes
	Array                // <array>, ordered sequence of Value
	Struct               // <struct>, ordered string-keyed members
)

// String returns the wire tag spelling for the kind, which doubles as
// a readable name in error messages.
func (k Kind) String() string {
	switch k {
	case Int:
		return "i4"
	case Bool:
		return "boolean"
	case String:
		return "string"
	case Double:
		return "double"
	case DateTime:
		return "dateTime.iso8601"
	case Base64:
		return "base64"
	case Array:
		return "array"
	case Struct:
		return "struct"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Member is one name/value pair of a Struct, in insertion order.
type Member struct {
	Name  string
	Value Value
}

// Value is the closed tagged union. The zero Value is an empty String,
// matching the protocol convention that an untyped <value/> means "".
type Value struct {
	kind Kind

	i       int32
	b       bool
	s       string
	f       float64
	t       time.Time
	bin     []byte
	arr     []Value
	members []Member
}

// Constructors — one per variant, so a Value can only ever be built in
// a well-formed state.

func NewInt(v int32) Value          { return Value{kind: Int, i: v} }
func NewBool(v bool) Value          { return Value{kind: Bool, b: v} }
func NewString(v string) Value      { return Value{kind: String, s: v} }
func NewDouble(v float64) Value     { return Value{kind: Double, f: v} }
func NewDateTime(v time.Time) Value { return Value{kind: DateTime, t: v} }
func NewBase64(v []byte) Value      { return Value{kind: Base64, bin: v} }
func NewArray(elems ...Value) Value { return Value{kind: Array, arr: elems} }

// NewStruct returns an empty Struct value. Members are added with Set,
// which preserves insertion order and resolves duplicates last-write-wins.
func NewStruct() Value { return Value{kind: Struct} }

// Set adds or replaces a struct member. On a duplicate name the value
// is overwritten in place so the member keeps its original position —
// last write wins, insertion order preserved for deterministic
// re-serialization.
func (v *Value) Set(name string, member Value) {
	if v.kind != Struct {
		panic(fmt.Sprintf("value: Set on %s value", v.kind))
	}
	for i := range v.members {
		if v.members[i].Name == name {
			v.members[i].Value = member
			return
		}
	}
	v.members = append(v.members, Member{Name: name, Value: member})
}

// Kind returns the variant discriminant.
func (v Value) Kind() Kind { return v.kind }

// Checked accessors. The bool result reports whether the Value
// actually holds that variant; callers switch on Kind first in the hot
// paths and use the two-result form at API boundaries.

func (v Value) Int() (int32, bool)          { return v.i, v.kind == Int }
func (v Value) Bool() (bool, bool)          { return v.b, v.kind == Bool }
func (v Value) String() (string, bool)      { return v.s, v.kind == String }
func (v Value) Double() (float64, bool)     { return v.f, v.kind == Double }
func (v Value) DateTime() (time.Time, bool) { return v.t, v.kind == DateTime }
func (v Value) Base64() ([]byte, bool)      { return v.bin, v.kind == Base64 }
func (v Value) Array() ([]Value, bool)      { return v.arr, v.kind == Array }
func (v Value) Members() ([]Member, bool)   { return v.members, v.kind == Struct }

// Get looks up a struct member by name. The second result is false if
// the value is not a Struct or the member is absent.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != Struct {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Len returns the element count of an Array or member count of a
// Struct, and 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Struct:
		return len(v.members)
	}
	return 0
}

// Equal reports deep equality: same kind, same payload, containers
// compared element by element in order. DateTimes compare with
// time.Time.Equal so location representation does not matter.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Int:
		return v.i == other.i
	case Bool:
		return v.b == other.b
	case String:
		return v.s == other.s
	case Double:
		return v.f == other.f
	case DateTime:
		return v.t.Equal(other.t)
	case Base64:
		return bytes.Equal(v.bin, other.bin)
	case Array:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case Struct:
		if len(v.members) != len(other.members) {
			return false
		}
		for i := range v.members {
			if v.members[i].Name != other.members[i].Name {
				return false
			}
			if !v.members[i].Value.Equal(other.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// GoString renders a debug form like i4(23) or struct{a: i4(1)}.
// Error messages and test failures use it; it is not the wire format.
func (v Value) GoString() string {
	switch v.kind {
	case Int:
		return fmt.Sprintf("i4(%d)", v.i)
	case Bool:
		return fmt.Sprintf("boolean(%t)", v.b)
	case String:
		return fmt.Sprintf("string(%q)", v.s)
	case Double:
		return fmt.Sprintf("double(%g)", v.f)
	case DateTime:
		return fmt.Sprintf("dateTime(%s)", v.t.Format("20060102T15:04:05"))
	case Base64:
		return fmt.Sprintf("base64(%d bytes)", len(v.bin))
	case Array:
		var buf bytes.Buffer
		buf.WriteString("array[")
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(e.GoString())
		}
		buf.WriteString("]")
		return buf.String()
	case Struct:
		var buf bytes.Buffer
		buf.WriteString("struct{")
		for i, m := range v.members {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%s: %s", m.Name, m.Value.GoString())
		}
		buf.WriteString("}")
		return buf.String()
	}
	return "value(?)"
}

// Depth returns the maximum nesting depth of the value: scalars are 1,
// a container adds one level per nesting. The codec enforces a depth
// limit on both encode and decode, so this walk mirrors the decoder's
// recursion exactly.
func (v Value) Depth() int {
	switch v.kind {
	case Array:
		max := 0
		for _, e := range v.arr {
			if d := e.Depth(); d > max {
				max = d
			}
		}
		return max + 1
	case Struct:
		max := 0
		for _, m := range v.members {
			if d := m.Value.Depth(); d > max {
				max = d
			}
		}
		return max + 1
	}
	return 1
}

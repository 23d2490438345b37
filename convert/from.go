package convert

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// FromValue fills dest, which must be a non-nil pointer, from a wire
// value.
//
// Resolution order mirrors ToValue: custom converter first, then the
// exact scalar paths, then the reflective container paths. A variant
// mismatch is always a ConversionError carrying both sides — never a
// silent coercion.
//
// A pointer-typed destination (**T through the outer pointer) is the
// optional form: an empty string value decodes as nil, anything else
// allocates and decodes into the pointee.
func (r *Registry) FromValue(v value.Value, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &ConversionError{
			From: v.Kind().String(), To: fmt.Sprintf("%T", dest),
			Reason: "destination must be a non-nil pointer",
		}
	}

	if fn, ok := r.fromValue[rv.Type().Elem()]; ok {
		return fn(v, dest)
	}

	switch d := dest.(type) {
	case *value.Value:
		*d = v
		return nil
	case *any:
		*d = r.toNative(v)
		return nil
	case *bool:
		b, ok := v.Bool()
		if !ok {
			return mismatch(v, dest)
		}
		*d = b
		return nil
	case *int32:
		n, ok := v.Int()
		if !ok {
			return mismatch(v, dest)
		}
		*d = n
		return nil
	case *int:
		n, ok := v.Int()
		if !ok {
			return mismatch(v, dest)
		}
		*d = int(n)
		return nil
	case *int64:
		n, ok := v.Int()
		if !ok {
			return mismatch(v, dest)
		}
		*d = int64(n)
		return nil
	case *string:
		s, ok := v.String()
		if !ok {
			return mismatch(v, dest)
		}
		*d = s
		return nil
	case *float64:
		f, ok := v.Double()
		if !ok {
			return mismatch(v, dest)
		}
		*d = f
		return nil
	case *float32:
		f, ok := v.Double()
		if !ok {
			return mismatch(v, dest)
		}
		if f > math.MaxFloat32 || f < -math.MaxFloat32 {
			return &ConversionError{From: "double", To: "*float32", Reason: fmt.Sprintf("%g overflows float32", f)}
		}
		*d = float32(f)
		return nil
	case *time.Time:
		t, ok := v.DateTime()
		if !ok {
			return mismatch(v, dest)
		}
		*d = t
		return nil
	case *[]byte:
		b, ok := v.Base64()
		if !ok {
			return mismatch(v, dest)
		}
		*d = b
		return nil
	case *[]value.Value:
		elems, ok := v.Array()
		if !ok {
			return mismatch(v, dest)
		}
		*d = elems
		return nil
	case *map[string]value.Value:
		members, ok := v.Members()
		if !ok {
			return mismatch(v, dest)
		}
		m := make(map[string]value.Value, len(members))
		for _, member := range members {
			m[member.Name] = member.Value
		}
		*d = m
		return nil
	case *map[string]any:
		members, ok := v.Members()
		if !ok {
			return mismatch(v, dest)
		}
		m := make(map[string]any, len(members))
		for _, member := range members {
			m[member.Name] = r.toNative(member.Value)
		}
		*d = m
		return nil
	}

	return r.fromValueReflect(v, rv.Elem())
}

// fromValueReflect covers the destinations the type switch cannot
// enumerate: optional pointers, typed slices, and fixed-size arrays.
func (r *Registry) fromValueReflect(v value.Value, elem reflect.Value) error {
	switch elem.Kind() {
	case reflect.Pointer:
		// Optional: empty string means absent.
		if s, ok := v.String(); ok && s == "" {
			elem.Set(reflect.Zero(elem.Type()))
			return nil
		}
		p := reflect.New(elem.Type().Elem())
		if err := r.FromValue(v, p.Interface()); err != nil {
			return err
		}
		elem.Set(p)
		return nil

	case reflect.Slice:
		elems, ok := v.Array()
		if !ok {
			return &ConversionError{From: v.Kind().String(), To: elem.Type().String(), Reason: "array value required"}
		}
		out := reflect.MakeSlice(elem.Type(), len(elems), len(elems))
		for i, e := range elems {
			if err := r.FromValue(e, out.Index(i).Addr().Interface()); err != nil {
				return err
			}
		}
		elem.Set(out)
		return nil

	case reflect.Array:
		// Fixed arity: the element count must match exactly and every
		// element's variant must satisfy the element type.
		elems, ok := v.Array()
		if !ok {
			return &ConversionError{From: v.Kind().String(), To: elem.Type().String(), Reason: "array value required"}
		}
		if len(elems) != elem.Len() {
			return &ConversionError{
				From: "array", To: elem.Type().String(),
				Reason: fmt.Sprintf("element count %d does not match arity %d", len(elems), elem.Len()),
			}
		}
		for i, e := range elems {
			if err := r.FromValue(e, elem.Index(i).Addr().Interface()); err != nil {
				return err
			}
		}
		return nil
	}

	return &ConversionError{
		From: v.Kind().String(), To: "*" + elem.Type().String(),
		Reason: "no conversion registered",
	}
}

// toNative produces the idiomatic Go representation of a value for an
// `any` destination: scalars as their exact native types, arrays as
// []any, structs as map[string]any (duplicate keys were already
// resolved last-write-wins by the decoder).
func (r *Registry) toNative(v value.Value) any {
	switch v.Kind() {
	case value.Int:
		n, _ := v.Int()
		return n
	case value.Bool:
		b, _ := v.Bool()
		return b
	case value.String:
		s, _ := v.String()
		return s
	case value.Double:
		f, _ := v.Double()
		return f
	case value.DateTime:
		t, _ := v.DateTime()
		return t
	case value.Base64:
		b, _ := v.Base64()
		return b
	case value.Array:
		elems, _ := v.Array()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = r.toNative(e)
		}
		return out
	case value.Struct:
		members, _ := v.Members()
		out := make(map[string]any, len(members))
		for _, m := range members {
			out[m.Name] = r.toNative(m.Value)
		}
		return out
	}
	return nil
}

func mismatch(v value.Value, dest any) *ConversionError {
	return &ConversionError{
		From: v.Kind().String(), To: fmt.Sprintf("%T", dest),
		Reason: "wire variant does not satisfy the destination type",
	}
}

// Package convert maps native Go types to and from the wire value
// variants.
//
// The mapping lives in a Registry built once at startup. Registration
// is append-only and must finish before the registry is shared across
// goroutines; after that every operation is a read, so concurrent
// encode/decode calls need no locking. The registry is passed into the
// client explicitly — it is never reached through package-level state.
//
// Container support is capability-based, not type-based: anything
// implementing StructMapper serializes as a struct, anything
// implementing ArrayLister as an array, on top of the native map and
// slice paths.
package convert

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

// ConversionError reports that a native value could not be mapped to a
// wire variant, or a wire variant could not satisfy a requested native
// type.
type ConversionError struct {
	From   string // source description, e.g. "int64" or "string"
	To     string // target description, e.g. "i4" or "*int32"
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("xmlrpc: cannot convert %s to %s: %s", e.From, e.To, e.Reason)
}

// Enumer is the encode-side capability for enumerated constants: the
// value serializes as its symbolic name (a string variant).
type Enumer interface {
	EnumName() string
}

// StructMapper is the capability interface for "anything string-keyed
// and enumerable". Implementors control their own key order, which the
// encoder preserves.
type StructMapper interface {
	StructKeys() []string
	StructValue(name string) any
}

// ArrayLister is the capability interface for "anything enumerable in
// order".
type ArrayLister interface {
	ArrayLen() int
	ArrayElem(i int) any
}

// ToValueFunc converts one native type to a wire value.
type ToValueFunc func(native any) (value.Value, error)

// FromValueFunc fills one native destination from a wire value. dest
// is the same pointer passed to Registry.FromValue.
type FromValueFunc func(v value.Value, dest any) error

// Registry holds the native↔value conversion table.
//
// The zero Registry is not usable; call NewRegistry. Custom converters
// registered with Register take precedence over the built-in scalar
// paths, so callers can override as well as extend.
type Registry struct {
	toValue   map[reflect.Type]ToValueFunc
	fromValue map[reflect.Type]FromValueFunc

	// OnFallback, when set, is invoked each time ToValue falls back to
	// plain stringification for an unmapped native type. The fallback
	// itself is deliberate (forward compatibility with servers that
	// only care about the text), but it can mask a missing converter,
	// so the client wires a log event here.
	OnFallback func(native any)
}

// NewRegistry returns a registry with the built-in scalar mappings
// installed. Register any custom converters before first use; the
// registry must be treated as read-only once concurrent calls begin.
func NewRegistry() *Registry {
	return &Registry{
		toValue:   make(map[reflect.Type]ToValueFunc),
		fromValue: make(map[reflect.Type]FromValueFunc),
	}
}

// Register installs a converter pair for one native type. Either
// function may be nil to register a single direction. sample is any
// value of the native type (only its type is inspected).
func (r *Registry) Register(sample any, to ToValueFunc, from FromValueFunc) {
	t := reflect.TypeOf(sample)
	if to != nil {
		r.toValue[t] = to
	}
	if from != nil {
		r.fromValue[t] = from
	}
}

// RegisterEnum installs both directions for an enumerated type: the
// constant serializes as its symbolic name, and decoding requires an
// exact name match. names maps symbolic name to the typed constant;
// every constant must appear exactly once.
func (r *Registry) RegisterEnum(names map[string]any) {
	if len(names) == 0 {
		return
	}
	var t reflect.Type
	byValue := make(map[any]string, len(names))
	for name, c := range names {
		if t == nil {
			t = reflect.TypeOf(c)
		}
		byValue[c] = name
	}
	typeName := t.String()

	r.toValue[t] = func(native any) (value.Value, error) {
		name, ok := byValue[native]
		if !ok {
			return value.Value{}, &ConversionError{
				From: typeName, To: "string",
				Reason: fmt.Sprintf("constant %v has no registered name", native),
			}
		}
		return value.NewString(name), nil
	}
	r.fromValue[t] = func(v value.Value, dest any) error {
		s, ok := v.String()
		if !ok {
			return &ConversionError{From: v.Kind().String(), To: typeName, Reason: "enum requires a string value"}
		}
		c, ok := names[s]
		if !ok {
			return &ConversionError{From: "string", To: typeName, Reason: fmt.Sprintf("no enum constant named %q", s)}
		}
		reflect.ValueOf(dest).Elem().Set(reflect.ValueOf(c))
		return nil
	}
}

// ToValue converts a native value to its wire variant.
//
// Resolution order: custom converter, exact scalar paths, capability
// interfaces, reflective map/slice paths, then the stringification
// fallback. The fallback never fails: an unmapped type encodes as its
// fmt.Sprint text, preserving compatibility with callers that pass
// exotic types servers only read as text.
func (r *Registry) ToValue(native any) (value.Value, error) {
	if native == nil {
		// Absent optional — the protocol has no null, the convention
		// is an empty string.
		return value.NewString(""), nil
	}
	if fn, ok := r.toValue[reflect.TypeOf(native)]; ok {
		return fn(native)
	}

	switch n := native.(type) {
	case value.Value:
		return n, nil
	case bool:
		return value.NewBool(n), nil
	case int32:
		return value.NewInt(n), nil
	case int:
		return intValue(int64(n))
	case int8:
		return value.NewInt(int32(n)), nil
	case int16:
		return value.NewInt(int32(n)), nil
	case int64:
		return intValue(n)
	case uint:
		return uintValue(uint64(n))
	case uint8:
		return value.NewInt(int32(n)), nil
	case uint16:
		return value.NewInt(int32(n)), nil
	case uint32:
		return uintValue(uint64(n))
	case uint64:
		return uintValue(n)
	case string:
		return value.NewString(n), nil
	case float64:
		return value.NewDouble(n), nil
	case float32:
		return value.NewDouble(float64(n)), nil
	case []byte:
		return value.NewBase64(n), nil
	case time.Time:
		return value.NewDateTime(n), nil
	case Enumer:
		return value.NewString(n.EnumName()), nil
	case StructMapper:
		return r.structFromMapper(n)
	case ArrayLister:
		return r.arrayFromLister(n)
	}

	rv := reflect.ValueOf(native)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return r.structFromMap(rv)
		}
	case reflect.Slice, reflect.Array:
		return r.arrayFromSlice(rv)
	}

	// Unmapped type: encode the textual representation. Deliberate
	// catch-all — see Registry.OnFallback for the diagnostic hook.
	if r.OnFallback != nil {
		r.OnFallback(native)
	}
	return value.NewString(fmt.Sprint(native)), nil
}

// intValue range-checks a signed integer into the 32-bit wire variant.
func intValue(n int64) (value.Value, error) {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return value.Value{}, &ConversionError{
			From: "int64", To: "i4",
			Reason: fmt.Sprintf("%d overflows the 32-bit wire integer", n),
		}
	}
	return value.NewInt(int32(n)), nil
}

func uintValue(n uint64) (value.Value, error) {
	if n > math.MaxInt32 {
		return value.Value{}, &ConversionError{
			From: "uint64", To: "i4",
			Reason: fmt.Sprintf("%d overflows the 32-bit wire integer", n),
		}
	}
	return value.NewInt(int32(n)), nil
}

func (r *Registry) structFromMapper(m StructMapper) (value.Value, error) {
	s := value.NewStruct()
	for _, key := range m.StructKeys() {
		member, err := r.ToValue(m.StructValue(key))
		if err != nil {
			return value.Value{}, err
		}
		s.Set(key, member)
	}
	return s, nil
}

func (r *Registry) arrayFromLister(l ArrayLister) (value.Value, error) {
	elems := make([]value.Value, 0, l.ArrayLen())
	for i := 0; i < l.ArrayLen(); i++ {
		e, err := r.ToValue(l.ArrayElem(i))
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, e)
	}
	return value.NewArray(elems...), nil
}

// structFromMap serializes a native string-keyed map. Go map iteration
// order is randomized, so keys are sorted to keep re-serialization
// deterministic; StructMapper implementors control their own order.
func (r *Registry) structFromMap(rv reflect.Value) (value.Value, error) {
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	s := value.NewStruct()
	for _, key := range keys {
		member, err := r.ToValue(rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())).Interface())
		if err != nil {
			return value.Value{}, err
		}
		s.Set(key, member)
	}
	return s, nil
}

func (r *Registry) arrayFromSlice(rv reflect.Value) (value.Value, error) {
	elems := make([]value.Value, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e, err := r.ToValue(rv.Index(i).Interface())
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, e)
	}
	return value.NewArray(elems...), nil
}

// Package jsonrpc implements the JSON-RPC 1.0 envelope over HTTP
// described in spec.md §4.4/§6: a small JSON value tree (borrowing
// string slices from the input buffer rather than copying), a
// recursive-descent parser/writer pair, and the request/response
// message types that ride on top of httpmsg.
package jsonrpc

import "fmt"

// Kind discriminates a Value the way original_source's JSONValue::Type
// enum does (TYPE_ARRAY, TYPE_FALSE, TYPE_NULL, TYPE_NUMBER,
// TYPE_OBJECT, TYPE_STRING, TYPE_TRUE).
type Kind int

const (
	KindNull Kind = iota
	KindTrue
	KindFalse
	KindNumber
	KindString
	KindArray
	KindObject
)

// Member is one key/value pair inside an Object, order-preserving the
// way original_source's JSONObject (a vector<pair<JSONString*,
// JSONValue*>>, not a map) is.
type Member struct {
	Key   string
	Value *Value
}

// Value is the JSON DOM node type. Exactly one of the fields matching
// Kind is meaningful; String borrows its bytes from the buffer the
// Parser was given wherever possible, avoiding a copy per string
// token.
type Value struct {
	Kind    Kind
	Number  float64
	Str     string
	Array   []*Value
	Object  []Member
}

// Null, True and False are shared immutable singletons, mirroring
// original_source's JSONParser caching JSONtrue/JSONfalse/JSONnull
// instances rather than allocating one per occurrence.
var (
	Null  = &Value{Kind: KindNull}
	True  = &Value{Kind: KindTrue}
	False = &Value{Kind: KindFalse}
)

// NewNumber wraps a float64 as a Value.
func NewNumber(n float64) *Value { return &Value{Kind: KindNumber, Number: n} }

// NewString wraps s as a Value.
func NewString(s string) *Value { return &Value{Kind: KindString, Str: s} }

// NewArray wraps elems as a Value.
func NewArray(elems ...*Value) *Value { return &Value{Kind: KindArray, Array: elems} }

// NewObject builds an Object from key/value pairs in the given order.
func NewObject(members ...Member) *Value { return &Value{Kind: KindObject, Object: members} }

// Get returns the value of the first member named key, or nil if
// absent or v is not an Object — the Go analogue of
// original_source's JSONObject::operator[].
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != KindObject {
		return nil
	}
	for _, m := range v.Object {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Bool reports whether v is the True singleton.
func (v *Value) Bool() bool { return v != nil && v.Kind == KindTrue }

// IsNull reports whether v is nil or the Null singleton.
func (v *Value) IsNull() bool { return v == nil || v.Kind == KindNull }

func (v *Value) String() string {
	if v == nil {
		return "null"
	}
	switch v.Kind {
	case KindNull:
		return "null"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindNumber:
		return fmt.Sprintf("%g", v.Number)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindArray:
		return fmt.Sprintf("%v", v.Array)
	case KindObject:
		return fmt.Sprintf("%v", v.Object)
	default:
		return "?"
	}
}

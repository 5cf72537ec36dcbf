package sidecar

import (
	"bytes"
	"encoding/json"
)

// CallMethod identifies one callable method of one pallet.
type CallMethod struct {
	Pallet string `json:"pallet"`
	Method string `json:"method"`
}

// Call is a single decoded pallet call as the node reports it: a method
// identity plus the declared arguments in declaration order. Argument
// names carry whatever casing the runtime metadata used; see DecodedCall
// for the normalized form.
type Call struct {
	Method CallMethod
	Args   []CallArg
	Docs   []string
}

type CallArg struct {
	Name  string
	Value CallValue
}

// CallValue is the value of one call argument. Exactly one of the Is*
// fields is set: a nested call, an ordered sequence of calls, or a plain
// value (numbers, strings, byte blobs, booleans, composites).
//
// IsCall with a nil AsCall is a placeholder: the upstream decoder could
// not produce the nested call body. Decoding treats it as malformed.
type CallValue struct {
	IsCall  bool
	AsCall  *Call
	IsCalls bool
	AsCalls []*Call
	IsValue bool
	AsValue interface{}
}

func NewCallValue(value interface{}) CallValue {
	return CallValue{IsValue: true, AsValue: value}
}

func NewNestedCall(call *Call) CallValue {
	return CallValue{IsCall: true, AsCall: call}
}

func NewNestedCalls(calls []*Call) CallValue {
	return CallValue{IsCalls: true, AsCalls: calls}
}

func (v CallValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.IsCall:
		return json.Marshal(v.AsCall)
	case v.IsCalls:
		return json.Marshal(v.AsCalls)
	default:
		return json.Marshal(v.AsValue)
	}
}

var _ json.Marshaler = &Call{}

func (c *Call) MarshalJSON() ([]byte, error) {
	return marshalCallJSON(c.Method, len(c.Args), func(i int) (string, interface{}) {
		return c.Args[i].Name, c.Args[i].Value
	}, c.Docs)
}

// ArgsJSON renders just the args object, in declaration order.
func (c *Call) ArgsJSON() (json.RawMessage, error) {
	return marshalArgsJSON(len(c.Args), func(i int) (string, interface{}) {
		return c.Args[i].Name, c.Args[i].Value
	})
}

// DecodedCall is the fully expanded form of a Call: every argument name
// rewritten to snake_case and every nested call recursively decoded.
type DecodedCall struct {
	Method CallMethod
	Args   []DecodedArg
	Docs   []string
}

type DecodedArg struct {
	Name  string
	Value DecodedValue
}

// DecodedValue mirrors CallValue over decoded calls.
type DecodedValue struct {
	IsCall  bool
	AsCall  *DecodedCall
	IsCalls bool
	AsCalls []*DecodedCall
	IsValue bool
	AsValue interface{}
}

func NewDecodedValue(value interface{}) DecodedValue {
	return DecodedValue{IsValue: true, AsValue: value}
}

func NewDecodedCallValue(call *DecodedCall) DecodedValue {
	return DecodedValue{IsCall: true, AsCall: call}
}

func NewDecodedCallsValue(calls []*DecodedCall) DecodedValue {
	return DecodedValue{IsCalls: true, AsCalls: calls}
}

func (v DecodedValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.IsCall:
		return json.Marshal(v.AsCall)
	case v.IsCalls:
		return json.Marshal(v.AsCalls)
	default:
		return json.Marshal(v.AsValue)
	}
}

var _ json.Marshaler = &DecodedCall{}

func (c *DecodedCall) MarshalJSON() ([]byte, error) {
	return marshalCallJSON(c.Method, len(c.Args), func(i int) (string, interface{}) {
		return c.Args[i].Name, c.Args[i].Value
	}, c.Docs)
}

// ArgsJSON renders just the args object, in declaration order.
func (c *DecodedCall) ArgsJSON() (json.RawMessage, error) {
	return marshalArgsJSON(len(c.Args), func(i int) (string, interface{}) {
		return c.Args[i].Name, c.Args[i].Value
	})
}

func marshalCallJSON(method CallMethod, argCount int, arg func(int) (string, interface{}), docs []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"method":`)
	methodBz, err := json.Marshal(method)
	if err != nil {
		return nil, err
	}
	buf.Write(methodBz)
	buf.WriteString(`,"args":`)
	argsBz, err := marshalArgsJSON(argCount, arg)
	if err != nil {
		return nil, err
	}
	buf.Write(argsBz)
	if len(docs) > 0 {
		docsBz, err := json.Marshal(docs)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"docs":`)
		buf.Write(docsBz)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Args render as a JSON object in declaration order, which encoding/json
// does not do for maps.
func marshalArgsJSON(argCount int, arg func(int) (string, interface{})) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < argCount; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, value := arg(i)
		nameBz, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(nameBz)
		buf.WriteByte(':')
		valueBz, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBz)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

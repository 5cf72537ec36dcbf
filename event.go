package sidecar

import (
	"encoding/json"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// Event is one runtime event with its decoded field values. Fields keep
// their declared order and names; the JSON form renders values
// positionally under "data", the way the chain presents event payloads.
type Event struct {
	Method CallMethod
	Fields []EventField
	Docs   []string
}

type EventField struct {
	Name  string
	Value interface{}
}

// Field returns the value of the named field.
func (e *Event) Field(name string) (interface{}, bool) {
	for _, field := range e.Fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// FieldAt returns the value at a field position, for events whose fields
// carry no names.
func (e *Event) FieldAt(index int) (interface{}, bool) {
	if index < 0 || index >= len(e.Fields) {
		return nil, false
	}
	return e.Fields[index].Value, true
}

var _ json.Marshaler = Event{}

func (e Event) MarshalJSON() ([]byte, error) {
	data := make([]interface{}, 0, len(e.Fields))
	for _, field := range e.Fields {
		data = append(data, field.Value)
	}
	view := struct {
		Method CallMethod    `json:"method"`
		Data   []interface{} `json:"data"`
		Docs   []string      `json:"docs,omitempty"`
	}{
		Method: e.Method,
		Data:   data,
		Docs:   e.Docs,
	}
	return json.Marshal(view)
}

// BlockEvent is an event as retrieved for a whole block, still carrying
// the execution phase that ties it to an extrinsic position (or to the
// block's initialization/finalization phase).
type BlockEvent struct {
	Event
	Phase *types.Phase
}

// AppliesTo reports whether the event was emitted while applying the
// extrinsic at the given position.
func (e *BlockEvent) AppliesTo(extrinsicIndex int) bool {
	return e.Phase != nil && e.Phase.IsApplyExtrinsic &&
		e.Phase.AsApplyExtrinsic == uint32(extrinsicIndex)
}

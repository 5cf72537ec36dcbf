package gateway

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/parser"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/blocks"
	"github.com/sirupsen/logrus"
	"github.com/vedhavyas/go-subkey/v2"
)

// eventRenderer maps parsed runtime events onto the sidecar event
// model, rendering field values with the same conventions the call
// walker uses and attaching the runtime's per-event docs.
type eventRenderer struct {
	walker *Walker
	docs   map[string][]string
}

func (r *eventRenderer) render(parsed []*parser.Event) []sidecar.BlockEvent {
	events := make([]sidecar.BlockEvent, 0, len(parsed))
	for _, raw := range parsed {
		if raw == nil {
			continue
		}
		events = append(events, sidecar.BlockEvent{
			Event: sidecar.Event{
				Method: splitEventName(raw.Name),
				Fields: r.renderFields(raw.Fields),
				Docs:   r.docs[raw.Name],
			},
			Phase: raw.Phase,
		})
	}
	return events
}

// An event name is "<pallet>.<method>".
func splitEventName(name string) sidecar.CallMethod {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return sidecar.CallMethod{Method: name}
	}
	return sidecar.CallMethod{Pallet: parts[0], Method: parts[1]}
}

func (r *eventRenderer) renderFields(fields registry.DecodedFields) []sidecar.EventField {
	rendered := make([]sidecar.EventField, 0, len(fields))
	for i, field := range fields {
		if field == nil {
			continue
		}
		rendered = append(rendered, sidecar.EventField{
			Name:  eventFieldName(field.Name, i),
			Value: r.renderValue(field.Value, field.LookupIndex),
		})
	}
	return rendered
}

func eventFieldName(name string, position int) string {
	if name == "" {
		return fmt.Sprintf("param%d", position)
	}
	return blocks.ToSnakeCase(name)
}

// renderValue unwraps whatever container the event decoder used and
// converts scalars to the walker's conventions. Values it cannot place
// degrade to their string form with a warning rather than failing the
// whole block.
func (r *eventRenderer) renderValue(value interface{}, lookupIndex int64) interface{} {
	if account, ok := r.renderAccountID(value, lookupIndex); ok {
		return account
	}
	switch value := value.(type) {
	case nil:
		return nil
	case registry.DecodedFields:
		return r.renderDecodedFields(value)
	case *registry.DecodedField:
		if value == nil {
			return nil
		}
		return r.renderValue(value.Value, value.LookupIndex)
	case registry.DecodedField:
		return r.renderValue(value.Value, value.LookupIndex)
	case []interface{}:
		return r.renderSlice(value)
	case types.U8:
		return uint64(value)
	case types.U16:
		return uint64(value)
	case types.U32:
		return uint64(value)
	case types.U64:
		return uint64(value)
	case types.U128:
		return sidecar.NewAmountFromBigInt(value.Int)
	case types.U256:
		return sidecar.NewAmountFromBigInt(value.Int)
	case types.I8:
		return int64(value)
	case types.I16:
		return int64(value)
	case types.I32:
		return int64(value)
	case types.I64:
		return int64(value)
	case types.I128:
		return sidecar.NewAmountFromBigInt(value.Int)
	case types.I256:
		return sidecar.NewAmountFromBigInt(value.Int)
	case types.UCompact:
		compact := big.Int(value)
		if compact.IsUint64() {
			return compact.Uint64()
		}
		return sidecar.NewAmountFromBigInt(&compact)
	case types.Bool:
		return bool(value)
	case types.Text:
		return string(value)
	case types.Hash:
		return value.Hex()
	case types.H256:
		return value.Hex()
	case types.H160:
		return value.Hex()
	case types.Bytes:
		return codec.HexEncodeToString(value)
	case []byte:
		return codec.HexEncodeToString(value)
	case uint8:
		return uint64(value)
	case uint16:
		return uint64(value)
	case uint32:
		return uint64(value)
	case uint64:
		return value
	case int8:
		return int64(value)
	case int16:
		return int64(value)
	case int32:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	case bool:
		return value
	case string:
		return value
	case *big.Int:
		return sidecar.NewAmountFromBigInt(value)
	default:
		logrus.WithField("type", fmt.Sprintf("%T", value)).Warn("could not render event value")
		return fmt.Sprint(value)
	}
}

func (r *eventRenderer) renderDecodedFields(fields registry.DecodedFields) interface{} {
	// An extra wrapper dimension turns up sometimes; flatten it.
	if len(fields) == 1 && fields[0] != nil && fields[0].Name == "" {
		return r.renderValue(fields[0].Value, fields[0].LookupIndex)
	}
	named := len(fields) > 0
	for _, field := range fields {
		if field == nil || field.Name == "" {
			named = false
			break
		}
	}
	if named {
		out := make(map[string]interface{}, len(fields))
		for _, field := range fields {
			out[blocks.ToSnakeCase(field.Name)] = r.renderValue(field.Value, field.LookupIndex)
		}
		return out
	}
	out := make([]interface{}, 0, len(fields))
	for _, field := range fields {
		if field == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, r.renderValue(field.Value, field.LookupIndex))
	}
	return out
}

func (r *eventRenderer) renderSlice(values []interface{}) interface{} {
	if len(values) == 0 {
		return values
	}
	switch values[0].(type) {
	case types.U8, uint8:
		if raw, ok := collectBytes(values); ok {
			return codec.HexEncodeToString(raw)
		}
	}
	out := make([]interface{}, 0, len(values))
	for _, element := range values {
		out = append(out, r.renderValue(element, -1))
	}
	return out
}

// renderAccountID resolves values whose type is the runtime's
// AccountId32 into SS58 form, whatever container the event decoder put
// the key bytes in.
func (r *eventRenderer) renderAccountID(value interface{}, lookupIndex int64) (string, bool) {
	if r.walker == nil || lookupIndex < 0 {
		return "", false
	}
	def, ok := r.walker.lookup[lookupIndex]
	if !ok || !isAccountID(def) {
		return "", false
	}
	raw, ok := collectBytes(value)
	if !ok || len(raw) != 32 {
		return "", false
	}
	return subkey.SS58Encode(raw, r.walker.ss58Prefix), true
}

func collectBytes(value interface{}) ([]byte, bool) {
	switch value := value.(type) {
	case []interface{}:
		out := make([]byte, 0, len(value))
		for _, element := range value {
			switch b := element.(type) {
			case types.U8:
				out = append(out, byte(b))
			case uint8:
				out = append(out, b)
			default:
				return nil, false
			}
		}
		return out, true
	case registry.DecodedFields:
		if len(value) == 1 && value[0] != nil {
			return collectBytes(value[0].Value)
		}
	case *registry.DecodedField:
		if value != nil {
			return collectBytes(value.Value)
		}
	case types.Bytes:
		return value, true
	case []byte:
		return value, true
	}
	return nil, false
}

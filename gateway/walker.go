package gateway

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/blocks"
	"github.com/cordialsys/substrate-sidecar/errors"
	"github.com/vedhavyas/go-subkey/v2"
)

// maxSequenceLen bounds decoded vector and bit-vector lengths. A length
// prefix past this is corrupt data, not a value a runtime would emit.
const maxSequenceLen = 1 << 20

// decodeStream couples a byte reader with a SCALE decoder over it. The
// decoder is unbuffered, so raw reads through the reader and decoded
// reads through the decoder interleave without losing position.
type decodeStream struct {
	r   *bytes.Reader
	dec *scale.Decoder
}

func newDecodeStream(raw []byte) *decodeStream {
	r := bytes.NewReader(raw)
	return &decodeStream{r: r, dec: scale.NewDecoder(r)}
}

func (s *decodeStream) remaining() int {
	return s.r.Len()
}

// Walker decodes SCALE-encoded call and constant payloads by walking
// the V14 type graph of the runtime that produced them. A walker is
// immutable once built and safe to share across fetches.
type Walker struct {
	meta       *types.Metadata
	lookup     map[int64]*types.Si1Type
	ss58Prefix uint16

	// type ids of the outer call enum and its per-pallet inner enums,
	// computed up front so nested-call detection is a map hit
	callEnums map[int64]bool
}

// NewWalker builds a walker over V14 metadata. Earlier metadata
// versions carry no type graph and cannot be walked.
func NewWalker(meta *types.Metadata, ss58Prefix uint16) (*Walker, error) {
	if !meta.IsMetadataV14 {
		return nil, errors.Unknownf("metadata version %d carries no type graph", meta.Version)
	}
	walker := &Walker{
		meta:       meta,
		lookup:     meta.AsMetadataV14.EfficientLookup,
		ss58Prefix: ss58Prefix,
		callEnums:  map[int64]bool{},
	}
	for id := range walker.lookup {
		if walker.checkCallEnum(id) {
			walker.callEnums[id] = true
		}
	}
	return walker, nil
}

// DecodeCallData decodes one complete encoded call, index bytes
// included, and rejects trailing bytes: a correct decode consumes the
// payload exactly.
func (w *Walker) DecodeCallData(raw []byte) (*sidecar.Call, error) {
	s := newDecodeStream(raw)
	call, err := w.decodeCall(s)
	if err != nil {
		return nil, err
	}
	if s.remaining() != 0 {
		return nil, errors.MalformedCallf(
			"%d trailing bytes after %s.%s", s.remaining(), call.Method.Pallet, call.Method.Method)
	}
	return call, nil
}

// DecodeConstant renders one runtime constant payload.
func (w *Walker) DecodeConstant(typeID int64, raw []byte) (interface{}, error) {
	return w.decodeValue(typeID, newDecodeStream(raw))
}

// decodeCall decodes a call from its two index bytes: the pallet index
// selects the pallet, the call index selects the variant of the
// pallet's call enum, and the variant fields are the arguments. Nested
// calls in batches reenter here on the same stream.
func (w *Walker) decodeCall(s *decodeStream) (*sidecar.Call, error) {
	palletIndex, err := s.dec.ReadOneByte()
	if err != nil {
		return nil, errors.MalformedCallf("call data ended before the pallet index")
	}
	pallet := w.palletByIndex(palletIndex)
	if pallet == nil || !pallet.HasCalls {
		return nil, errors.MalformedCallf("no dispatchable pallet at index %d", palletIndex)
	}
	callType, ok := w.lookup[pallet.Calls.Type.Int64()]
	if !ok || !callType.Def.IsVariant {
		return nil, errors.MalformedCallf("pallet %s has a malformed call enum", pallet.Name)
	}
	methodIndex, err := s.dec.ReadOneByte()
	if err != nil {
		return nil, errors.MalformedCallf("call data ended before the call index of pallet %s", pallet.Name)
	}
	variant := variantByIndex(callType.Def.Variant.Variants, methodIndex)
	if variant == nil {
		return nil, errors.MalformedCallf("pallet %s has no call at index %d", pallet.Name, methodIndex)
	}

	call := &sidecar.Call{
		Method: sidecar.CallMethod{Pallet: string(pallet.Name), Method: string(variant.Name)},
		Args:   make([]sidecar.CallArg, 0, len(variant.Fields)),
		Docs:   textLines(variant.Docs),
	}
	for i := range variant.Fields {
		field := &variant.Fields[i]
		value, err := w.decodeCallValue(field.Type.Int64(), s)
		if err != nil {
			return nil, fmt.Errorf("%s.%s argument %d: %w", call.Method.Pallet, call.Method.Method, i, err)
		}
		call.Args = append(call.Args, sidecar.CallArg{Name: argName(field, i), Value: value})
	}
	return call, nil
}

// decodeCallValue decodes one call argument, keeping nested calls as
// calls. Bare calls, Vec<Call>, and Option<Call> are the wrapper shapes
// dispatchers use; everything else is a plain value.
func (w *Walker) decodeCallValue(id int64, s *decodeStream) (sidecar.CallValue, error) {
	if w.callEnums[id] {
		nested, err := w.decodeCall(s)
		if err != nil {
			return sidecar.CallValue{}, err
		}
		return sidecar.NewNestedCall(nested), nil
	}
	if def, ok := w.lookup[id]; ok {
		switch {
		case def.Def.IsSequence && w.callEnums[def.Def.Sequence.Type.Int64()]:
			length, err := s.dec.DecodeUintCompact()
			if err != nil {
				return sidecar.CallValue{}, errors.MalformedCallf("call list length: %v", err)
			}
			if !length.IsUint64() || length.Uint64() > maxSequenceLen {
				return sidecar.CallValue{}, errors.MalformedCallf("call list length %s is not plausible", length)
			}
			var calls []*sidecar.Call
			for i := uint64(0); i < length.Uint64(); i++ {
				nested, err := w.decodeCall(s)
				if err != nil {
					return sidecar.CallValue{}, err
				}
				calls = append(calls, nested)
			}
			return sidecar.NewNestedCalls(calls), nil

		case isOption(def) && w.callEnums[optionSomeType(def)]:
			flag, err := s.dec.ReadOneByte()
			if err != nil {
				return sidecar.CallValue{}, errors.MalformedCallf("optional call flag: %v", err)
			}
			if flag == 0 {
				return sidecar.NewCallValue(nil), nil
			}
			nested, err := w.decodeCall(s)
			if err != nil {
				return sidecar.CallValue{}, err
			}
			return sidecar.NewNestedCall(nested), nil
		}
	}
	value, err := w.decodeValue(id, s)
	if err != nil {
		return sidecar.CallValue{}, err
	}
	return sidecar.NewCallValue(value), nil
}

// decodeValue decodes one SCALE value of the given type id into its
// rendered form: unsigned integers up to 64 bits become uint64, 128 and
// 256 bit integers become Amounts, byte blobs become hex strings,
// composites become maps, and account ids become SS58 addresses.
func (w *Walker) decodeValue(id int64, s *decodeStream) (interface{}, error) {
	def, ok := w.lookup[id]
	if !ok {
		return nil, errors.MalformedCallf("call data references unknown type %d", id)
	}
	switch {
	case def.Def.IsPrimitive:
		return w.decodePrimitive(def.Def.Primitive.Si0TypeDefPrimitive, s)
	case def.Def.IsCompact:
		return w.decodeCompact(def.Def.Compact.Type.Int64(), s)
	case def.Def.IsComposite:
		if isAccountID(def) {
			return w.decodeAccountID(s)
		}
		return w.decodeFields(def.Def.Composite.Fields, s)
	case def.Def.IsVariant:
		return w.decodeVariant(def, s)
	case def.Def.IsSequence:
		return w.decodeSequence(def.Def.Sequence.Type.Int64(), s)
	case def.Def.IsArray:
		return w.decodeArray(uint64(def.Def.Array.Len), def.Def.Array.Type.Int64(), s)
	case def.Def.IsTuple:
		return w.decodeTuple(def.Def.Tuple, s)
	case def.Def.IsBitSequence:
		return w.decodeBitSequence(s)
	case def.Def.IsHistoricMetaCompat:
		return nil, errors.MalformedCallf("type %d only has a pre-V14 compatibility definition", id)
	default:
		return nil, errors.MalformedCallf("type %d has an unsupported definition", id)
	}
}

func (w *Walker) decodePrimitive(kind types.Si0TypeDefPrimitive, s *decodeStream) (interface{}, error) {
	switch kind {
	case types.IsBool:
		var v bool
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("bool value: %v", err)
		}
		return v, nil
	case types.IsChar:
		var v uint32
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("char value: %v", err)
		}
		return uint64(v), nil
	case types.IsStr:
		var v string
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("string value: %v", err)
		}
		return v, nil
	case types.IsU8:
		var v uint8
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("u8 value: %v", err)
		}
		return uint64(v), nil
	case types.IsU16:
		var v uint16
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("u16 value: %v", err)
		}
		return uint64(v), nil
	case types.IsU32:
		var v uint32
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("u32 value: %v", err)
		}
		return uint64(v), nil
	case types.IsU64:
		var v uint64
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("u64 value: %v", err)
		}
		return v, nil
	case types.IsU128:
		var v types.U128
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("u128 value: %v", err)
		}
		return sidecar.NewAmountFromBigInt(v.Int), nil
	case types.IsU256:
		var v types.U256
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("u256 value: %v", err)
		}
		return sidecar.NewAmountFromBigInt(v.Int), nil
	case types.IsI8:
		var v int8
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("i8 value: %v", err)
		}
		return int64(v), nil
	case types.IsI16:
		var v int16
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("i16 value: %v", err)
		}
		return int64(v), nil
	case types.IsI32:
		var v int32
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("i32 value: %v", err)
		}
		return int64(v), nil
	case types.IsI64:
		var v int64
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("i64 value: %v", err)
		}
		return v, nil
	case types.IsI128:
		var v types.I128
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("i128 value: %v", err)
		}
		return sidecar.NewAmountFromBigInt(v.Int), nil
	case types.IsI256:
		var v types.I256
		if err := s.dec.Decode(&v); err != nil {
			return nil, errors.MalformedCallf("i256 value: %v", err)
		}
		return sidecar.NewAmountFromBigInt(v.Int), nil
	default:
		return nil, errors.MalformedCallf("unknown primitive kind %v", kind)
	}
}

func (w *Walker) decodeCompact(innerID int64, s *decodeStream) (interface{}, error) {
	value, err := s.dec.DecodeUintCompact()
	if err != nil {
		return nil, errors.MalformedCallf("compact value: %v", err)
	}
	// Compact balances stay big; everything else fits a uint64.
	if inner, ok := w.lookup[innerID]; ok && inner.Def.IsPrimitive {
		switch inner.Def.Primitive.Si0TypeDefPrimitive {
		case types.IsU128, types.IsU256:
			return sidecar.NewAmountFromBigInt(value), nil
		}
	}
	if value.IsUint64() {
		return value.Uint64(), nil
	}
	return sidecar.NewAmountFromBigInt(value), nil
}

func (w *Walker) decodeFields(fields []types.Si1Field, s *decodeStream) (interface{}, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	// Single-element wrappers add no structure of their own.
	if len(fields) == 1 && !fields[0].HasName {
		return w.decodeValue(fields[0].Type.Int64(), s)
	}
	named := true
	for i := range fields {
		if !fields[i].HasName {
			named = false
			break
		}
	}
	if named {
		out := make(map[string]interface{}, len(fields))
		for i := range fields {
			value, err := w.decodeValue(fields[i].Type.Int64(), s)
			if err != nil {
				return nil, err
			}
			out[blocks.ToSnakeCase(string(fields[i].Name))] = value
		}
		return out, nil
	}
	out := make([]interface{}, 0, len(fields))
	for i := range fields {
		value, err := w.decodeValue(fields[i].Type.Int64(), s)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func (w *Walker) decodeVariant(def *types.Si1Type, s *decodeStream) (interface{}, error) {
	index, err := s.dec.ReadOneByte()
	if err != nil {
		return nil, errors.MalformedCallf("variant tag of %s: %v", typeName(def), err)
	}
	variant := variantByIndex(def.Def.Variant.Variants, index)
	if variant == nil {
		return nil, errors.MalformedCallf("%s has no variant at index %d", typeName(def), index)
	}
	if isOption(def) {
		if len(variant.Fields) == 0 {
			return nil, nil
		}
		return w.decodeValue(variant.Fields[0].Type.Int64(), s)
	}
	if pathTail(def.Path) == "MultiAddress" && string(variant.Name) == "Id" {
		return w.decodeAccountID(s)
	}
	if len(variant.Fields) == 0 {
		return string(variant.Name), nil
	}
	inner, err := w.decodeFields(variant.Fields, s)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{string(variant.Name): inner}, nil
}

func (w *Walker) decodeSequence(elemID int64, s *decodeStream) (interface{}, error) {
	length, err := s.dec.DecodeUintCompact()
	if err != nil {
		return nil, errors.MalformedCallf("sequence length: %v", err)
	}
	if !length.IsUint64() || length.Uint64() > maxSequenceLen {
		return nil, errors.MalformedCallf("sequence length %s is not plausible", length)
	}
	n := length.Uint64()
	if w.isByte(elemID) {
		raw := make([]byte, n)
		if _, err := io.ReadFull(s.r, raw); err != nil {
			return nil, errors.MalformedCallf("byte sequence of length %d: %v", n, err)
		}
		return codec.HexEncodeToString(raw), nil
	}
	out := make([]interface{}, 0, n)
	for i := uint64(0); i < n; i++ {
		value, err := w.decodeValue(elemID, s)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func (w *Walker) decodeArray(length uint64, elemID int64, s *decodeStream) (interface{}, error) {
	if length > maxSequenceLen {
		return nil, errors.MalformedCallf("array length %d is not plausible", length)
	}
	if w.isByte(elemID) {
		raw := make([]byte, length)
		if _, err := io.ReadFull(s.r, raw); err != nil {
			return nil, errors.MalformedCallf("byte array of length %d: %v", length, err)
		}
		return codec.HexEncodeToString(raw), nil
	}
	out := make([]interface{}, 0, length)
	for i := uint64(0); i < length; i++ {
		value, err := w.decodeValue(elemID, s)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func (w *Walker) decodeTuple(tuple types.Si1TypeDefTuple, s *decodeStream) (interface{}, error) {
	if len(tuple) == 0 {
		return nil, nil
	}
	out := make([]interface{}, 0, len(tuple))
	for _, id := range tuple {
		value, err := w.decodeValue(id.Int64(), s)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// decodeBitSequence renders a bit vector as the hex of its packed
// bytes; the runtime-side bit order is not worth reproducing.
func (w *Walker) decodeBitSequence(s *decodeStream) (interface{}, error) {
	bits, err := s.dec.DecodeUintCompact()
	if err != nil {
		return nil, errors.MalformedCallf("bit sequence length: %v", err)
	}
	if !bits.IsUint64() || bits.Uint64() > maxSequenceLen*8 {
		return nil, errors.MalformedCallf("bit sequence length %s is not plausible", bits)
	}
	raw := make([]byte, (bits.Uint64()+7)/8)
	if _, err := io.ReadFull(s.r, raw); err != nil {
		return nil, errors.MalformedCallf("bit sequence: %v", err)
	}
	return codec.HexEncodeToString(raw), nil
}

func (w *Walker) decodeAccountID(s *decodeStream) (interface{}, error) {
	var raw [32]byte
	if _, err := io.ReadFull(s.r, raw[:]); err != nil {
		return nil, errors.MalformedCallf("account id: %v", err)
	}
	return subkey.SS58Encode(raw[:], w.ss58Prefix), nil
}

// checkCallEnum reports whether a type id names a runtime call enum: a
// variant type whose path ends in RuntimeCall or Call and whose every
// member wraps exactly one inner variant type. The structural check
// matters more than the path: pallets also name their argument structs
// Call-adjacent things.
func (w *Walker) checkCallEnum(id int64) bool {
	def, ok := w.lookup[id]
	if !ok || !def.Def.IsVariant {
		return false
	}
	tail := pathTail(def.Path)
	if tail != "RuntimeCall" && tail != "Call" {
		return false
	}
	variants := def.Def.Variant.Variants
	if len(variants) == 0 {
		return false
	}
	for i := range variants {
		if len(variants[i].Fields) != 1 {
			return false
		}
		inner, ok := w.lookup[variants[i].Fields[0].Type.Int64()]
		if !ok || !inner.Def.IsVariant {
			return false
		}
	}
	return true
}

func (w *Walker) palletByIndex(index byte) *types.PalletMetadataV14 {
	pallets := w.meta.AsMetadataV14.Pallets
	for i := range pallets {
		if uint8(pallets[i].Index) == index {
			return &pallets[i]
		}
	}
	return nil
}

func (w *Walker) isByte(id int64) bool {
	def, ok := w.lookup[id]
	return ok && def.Def.IsPrimitive && def.Def.Primitive.Si0TypeDefPrimitive == types.IsU8
}

func variantByIndex(variants []types.Si1Variant, index byte) *types.Si1Variant {
	for i := range variants {
		if uint8(variants[i].Index) == index {
			return &variants[i]
		}
	}
	return nil
}

func isOption(def *types.Si1Type) bool {
	return def.Def.IsVariant && pathTail(def.Path) == "Option"
}

func optionSomeType(def *types.Si1Type) int64 {
	for i := range def.Def.Variant.Variants {
		variant := &def.Def.Variant.Variants[i]
		if string(variant.Name) == "Some" && len(variant.Fields) == 1 {
			return variant.Fields[0].Type.Int64()
		}
	}
	return -1
}

func isAccountID(def *types.Si1Type) bool {
	return pathTail(def.Path) == "AccountId32"
}

func pathTail(path types.Si1Path) string {
	if len(path) == 0 {
		return ""
	}
	return string(path[len(path)-1])
}

func typeName(def *types.Si1Type) string {
	if name := pathTail(def.Path); name != "" {
		return name
	}
	return "anonymous type"
}

// argName keeps the metadata's own casing; the call decoder downstream
// owns name normalization.
func argName(field *types.Si1Field, position int) string {
	if field.HasName {
		return string(field.Name)
	}
	return fmt.Sprintf("param%d", position)
}

func textLines(docs []types.Text) []string {
	if len(docs) == 0 {
		return nil
	}
	lines := make([]string, len(docs))
	for i, doc := range docs {
		lines[i] = strings.TrimSpace(string(doc))
	}
	return lines
}

package sidecar

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// RawBlock is a block as the gateway hands it to assembly: header fields
// still in node types, digest logs already rendered, and one slot per
// on-chain extrinsic. A nil extrinsic slot means the node returned a body
// the gateway could not decode; assembly treats that as a data-integrity
// failure rather than skipping the slot.
type RawBlock struct {
	Hash           types.Hash
	Number         uint64
	ParentHash     types.Hash
	StateRoot      types.Hash
	ExtrinsicsRoot types.Hash
	Logs           []DigestLog
	Extrinsics     []*RawExtrinsic
}

// Header renders the header view of the raw block.
func (b *RawBlock) Header() BlockHeader {
	logs := b.Logs
	if logs == nil {
		logs = make([]DigestLog, 0)
	}
	return BlockHeader{
		Number:         b.Number,
		Hash:           b.Hash.Hex(),
		ParentHash:     b.ParentHash.Hex(),
		StateRoot:      b.StateRoot.Hex(),
		ExtrinsicsRoot: b.ExtrinsicsRoot.Hex(),
		Logs:           logs,
	}
}

// RawExtrinsic is one undecorated extrinsic: the call tree as declared by
// the runtime metadata (names not yet normalized), the blake2b hash and
// encoded length, and the signature fields for signed extrinsics.
type RawExtrinsic struct {
	Call      *Call
	Hash      types.Hash
	Length    int
	Signature *SignaturePayload
	Era       Era
	Nonce     uint64
	Tip       *Amount
}

// Signed reports whether the extrinsic carried a signature payload.
func (e *RawExtrinsic) Signed() bool {
	return e.Signature != nil
}

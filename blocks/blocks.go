// Package blocks assembles decoded, fee-annotated, finality-aware block
// views from the raw data a Substrate node serves over RPC. It holds the
// four algorithms the sidecar is built around: the call decoder, the fee
// model, the finality checker, and the block assembler with its extrinsic
// indexer. All node access goes through the Gateway interface; the
// package itself keeps no state between fetches.
package blocks

import (
	"context"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
)

// Gateway is the node-RPC collaborator the assembler consumes. Fetches
// that fail at the transport are surfaced as errors, never retried here;
// retry policy belongs behind this interface.
type Gateway interface {
	// GetBlock returns the raw block at hash with one slot per on-chain
	// extrinsic. A slot the gateway could not decode is nil.
	GetBlock(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error)

	// GetHeader returns the rendered header of the block at hash.
	GetHeader(ctx context.Context, hash types.Hash) (*sidecar.BlockHeader, error)

	// GetBlockHash returns the canonical hash at a height.
	GetBlockHash(ctx context.Context, height uint64) (types.Hash, error)

	// FinalizedHead returns the hash of the last finalized block. With
	// requery set the node is always asked; otherwise the gateway may
	// serve a cached head it knows to be current.
	FinalizedHead(ctx context.Context, requery bool) (types.Hash, error)

	// LatestHash returns the hash of the current best block.
	LatestHash(ctx context.Context) (types.Hash, error)

	// GetEvents returns every event of the block at hash, each carrying
	// the execution phase used to pair it with an extrinsic position.
	GetEvents(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error)

	// RuntimeConstant reads a pallet constant from the runtime active at
	// the given block. Absent constants report ok=false without error;
	// errors are reserved for transport failures.
	RuntimeConstant(ctx context.Context, pallet string, name string, at types.Hash) (interface{}, bool, error)

	// FeeMultiplier reads the fee multiplier stored at the given block,
	// in fixed-point parts per 10^18. Chains without one report ok=false.
	FeeMultiplier(ctx context.Context, at types.Hash) (*sidecar.Amount, bool, error)
}

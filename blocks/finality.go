package blocks

import (
	"bytes"
	"context"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// FinalityChecker decides whether a block is finalized and canonical.
// Each check is independent and caches nothing; for a fixed chain state
// the same inputs always produce the same verdict.
type FinalityChecker struct {
	gateway Gateway
}

func NewFinalityChecker(gateway Gateway) *FinalityChecker {
	return &FinalityChecker{gateway: gateway}
}

// IsFinalized reports whether the candidate block is finalized.
//
// Above the finalized head nothing is finalized except, trivially, the
// head itself, so the hashes are compared directly. At or below the head
// the candidate may still sit on a pruned fork, so the canonical hash
// recorded at its height is fetched and compared byte for byte. The
// canonical lookup is the only network read and happens lazily, only on
// the at-or-below path.
func (c *FinalityChecker) IsFinalized(
	ctx context.Context,
	candidateNumber uint64,
	candidateHash types.Hash,
	finalizedHead types.Hash,
	belowFinalizedHead bool,
) (bool, error) {
	if sameHash(candidateHash, finalizedHead) {
		return true, nil
	}
	if !belowFinalizedHead {
		return false, nil
	}
	canonical, err := c.gateway.GetBlockHash(ctx, candidateNumber)
	if err != nil {
		return false, err
	}
	return sameHash(candidateHash, canonical), nil
}

func sameHash(a, b types.Hash) bool {
	return bytes.Equal(a[:], b[:])
}

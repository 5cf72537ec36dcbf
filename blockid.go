package sidecar

import (
	"strconv"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/cordialsys/substrate-sidecar/errors"
)

// BlockID identifies a block either by its hash or by its height on the
// canonical chain. Exactly one of IsHash/IsHeight is set.
type BlockID struct {
	IsHash   bool
	AsHash   types.Hash
	IsHeight bool
	AsHeight uint64
}

func NewHashID(hash types.Hash) BlockID {
	return BlockID{IsHash: true, AsHash: hash}
}

func NewHeightID(height uint64) BlockID {
	return BlockID{IsHeight: true, AsHeight: height}
}

// ParseBlockID accepts a decimal height or a 0x-prefixed 32-byte hash.
func ParseBlockID(raw string) (BlockID, error) {
	if strings.HasPrefix(raw, "0x") {
		hash, err := types.NewHashFromHexString(raw)
		if err != nil {
			return BlockID{}, errors.InvalidBlockIDf("blockId path param is not a valid block hash: %v", err)
		}
		return NewHashID(hash), nil
	}
	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return BlockID{}, errors.InvalidBlockIDf("blockId path param is not a number or a block hash")
	}
	return NewHeightID(height), nil
}

func (id BlockID) String() string {
	if id.IsHash {
		return id.AsHash.Hex()
	}
	return strconv.FormatUint(id.AsHeight, 10)
}

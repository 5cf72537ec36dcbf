package blocks

import (
	"strconv"

	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/errors"
)

// BlockIdentifiers names the block an extrinsic was looked up in.
type BlockIdentifiers struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height,string"`
}

// ExtrinsicView is the point-lookup result of one extrinsic, wrapped
// with the identity of its block.
type ExtrinsicView struct {
	At        BlockIdentifiers   `json:"at"`
	Extrinsic *sidecar.Extrinsic `json:"extrinsics"`
}

// ParseExtrinsicIndex validates a caller-supplied textual extrinsic
// index. Anything that is not a non-negative integer is rejected before
// the indexer runs; field names the path parameter in the message.
func ParseExtrinsicIndex(field, raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, errors.InvalidIndexFormatf("%s path param is not a number", field)
	}
	return index, nil
}

// ExtrinsicAt returns the extrinsic at a position within an assembled
// block, with the events already paired to it. Out-of-range positions
// are a client error, not an integrity failure.
func ExtrinsicAt(block *sidecar.Block, index int) (*ExtrinsicView, error) {
	if index < 0 || index >= len(block.Extrinsics) {
		return nil, errors.IndexOutOfRangef(
			"requested extrinsic index %d, but block %d only has %d extrinsics",
			index, block.Number, len(block.Extrinsics))
	}
	return &ExtrinsicView{
		At: BlockIdentifiers{
			Hash:   block.Hash,
			Height: block.Number,
		},
		Extrinsic: block.Extrinsics[index],
	}, nil
}

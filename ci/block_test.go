//go:build ci

package ci

import (
	"context"
	"flag"
	"testing"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/blocks"
	"github.com/cordialsys/substrate-sidecar/gateway"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFetchBlock(t *testing.T) {
	ctx := context.Background()
	flag.Parse()
	validateCLIInputs(t)

	client, err := gateway.NewClient(rpc, addressPrefix)
	require.NoError(t, err, "Failed dialing node")
	service := blocks.NewService(client)

	opts := sidecar.FetchOptions{
		CheckFinalized:   finalizes,
		OmitFinalizedTag: !finalizes,
	}

	// get latest (attempt multiple times, as head of chain can be flakey)
	var latest *sidecar.Block
	for range 8 {
		var head types.Hash
		head, err = service.HeadHash(ctx, false)
		if err == nil {
			latest, err = service.FetchBlock(ctx, sidecar.NewHashID(head), opts)
		}
		if err != nil {
			logrus.WithError(err).Warn("could not fetch latest block, retrying...")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	require.NoError(t, err, "could not fetch latest block")
	require.NotEmpty(t, latest.Hash, "empty block hash from latest block")

	// get by specific height
	block, err := service.FetchBlock(ctx, sidecar.NewHeightID(latest.Number), opts)
	require.NoError(t, err, "could not fetch specific block")

	require.NotEqualValues(t, 0, block.Number)
	require.Equal(t, latest.Number, block.Number)
	require.Equal(t, latest.Hash, block.Hash)

	// the header view must agree with the assembled block
	header, err := service.FetchBlockHeader(ctx, sidecar.NewHeightID(latest.Number))
	require.NoError(t, err, "could not fetch header")
	require.Equal(t, block.Hash, header.Hash)
	require.Equal(t, block.ParentHash, header.ParentHash)

	// every block carries at least its inherents, fully decoded
	require.NotEmpty(t, block.Extrinsics)
	byHash, err := sidecar.ParseBlockID(block.Hash)
	require.NoError(t, err)
	first, err := service.FetchExtrinsic(ctx, byHash, 0, opts)
	require.NoError(t, err, "could not fetch extrinsic")
	require.NotNil(t, first.Extrinsic.Call)
	require.NotEmpty(t, first.Extrinsic.Call.Method.Pallet)
	require.Equal(t, block.Number, first.At.Height)
}

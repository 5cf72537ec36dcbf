package blocks_test

import (
	"context"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/blocks"
	"github.com/cordialsys/substrate-sidecar/errors"
	"github.com/cordialsys/substrate-sidecar/testutil"
	"github.com/stretchr/testify/require"
)

var _ blocks.Gateway = (*testutil.Gateway)(nil)

func TestFetchBlock(t *testing.T) {
	ctx := context.Background()
	blockID := sidecar.NewHeightID(testutil.GenericHeight)

	t.Run("baseline", func(t *testing.T) {
		require := require.New(t)
		service := blocks.NewService(testutil.BaselineGateway(t))

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{CheckFinalized: true})
		require.NoError(err)

		require.Equal(testutil.GenericHeight, block.Number)
		require.Equal(testutil.GenericHash(0x2a).Hex(), block.Hash)
		require.Equal(testutil.GenericHash(0x29).Hex(), block.ParentHash)
		require.Equal(testutil.GenericHash(0x51).Hex(), block.StateRoot)
		require.Equal(testutil.GenericHash(0x52).Hex(), block.ExtrinsicsRoot)
		require.Len(block.Logs, 1)
		require.Equal("PreRuntime", block.Logs[0].Type)

		require.Len(block.OnInitialize.Events, 1)
		require.Equal("Deposit", block.OnInitialize.Events[0].Method.Method)
		require.Empty(block.OnFinalize.Events)
		require.NotNil(block.OnFinalize.Events)

		require.Len(block.Extrinsics, 2)
		for i, ext := range block.Extrinsics {
			require.Equal("Balances", ext.Call.Method.Pallet)
			require.Equal("transfer_keep_alive", ext.Call.Method.Method)
			require.NotNil(ext.Signature)
			require.Equal(testutil.GenericSigner, ext.Signature.Signer)
			require.NotNil(ext.Nonce)
			require.Equal(uint64(i), ext.Nonce.Uint64())
			require.NotNil(ext.Tip)
			require.True(ext.Era.IsMortal)
			require.Equal(uint64(64), ext.Era.Period)
			require.True(ext.Success)
			require.True(ext.PaysFee)

			require.Len(ext.Events, 2)
			require.Equal("Transfer", ext.Events[0].Method.Method)
			require.Equal("ExtrinsicSuccess", ext.Events[1].Method.Method)
			// Docs are stripped unless requested.
			require.Nil(ext.Events[0].Docs)
			require.Nil(ext.Call.Docs)

			require.NotNil(ext.Info)
			require.Equal("Normal", ext.Info.Class)
			require.NotNil(ext.Info.Weight)
			require.Equal(testutil.GenericWeight, ext.Info.Weight.Uint64())
			require.NotNil(ext.Info.PartialFee)
			require.Equal("150000000", ext.Info.PartialFee.String())
			require.Empty(ext.Info.Error)
		}

		require.NotNil(block.Finalized)
		require.True(*block.Finalized)
	})

	t.Run("docs kept on request", func(t *testing.T) {
		require := require.New(t)
		service := blocks.NewService(testutil.BaselineGateway(t))

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{
			EventDocs:     true,
			ExtrinsicDocs: true,
		})
		require.NoError(err)
		require.NotEmpty(block.OnInitialize.Events[0].Docs)
		require.NotEmpty(block.Extrinsics[0].Events[0].Docs)
		require.NotEmpty(block.Extrinsics[0].Call.Docs)
	})

	t.Run("fetch by hash skips height resolution", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetBlockHashFunc = func(ctx context.Context, height uint64) (types.Hash, error) {
			t.Error("unexpected height resolution for a hash identifier")
			return types.Hash{}, nil
		}
		service := blocks.NewService(gw)

		_, err := service.FetchBlock(ctx, sidecar.NewHashID(testutil.GenericHash(0x2a)), sidecar.FetchOptions{})
		require.NoError(err)
	})

	t.Run("no finality check by default", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.FinalizedHeadFunc = func(ctx context.Context, requery bool) (types.Hash, error) {
			t.Error("unexpected finalized-head lookup without checkFinalized")
			return types.Hash{}, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.NoError(err)
		require.Nil(block.Finalized)
	})

	t.Run("omitted tag wins over the check", func(t *testing.T) {
		require := require.New(t)
		service := blocks.NewService(testutil.BaselineGateway(t))

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{
			CheckFinalized:   true,
			OmitFinalizedTag: true,
		})
		require.NoError(err)
		require.Nil(block.Finalized)
	})

	t.Run("requery flag reaches the gateway", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.FinalizedHeadFunc = func(ctx context.Context, requery bool) (types.Hash, error) {
			require.True(requery)
			return testutil.GenericHash(0x2a), nil
		}
		service := blocks.NewService(gw)

		_, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{
			CheckFinalized:     true,
			QueryFinalizedHead: true,
		})
		require.NoError(err)
	})

	t.Run("canonical block below the head is finalized", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.FinalizedHeadFunc = func(ctx context.Context, requery bool) (types.Hash, error) {
			return testutil.GenericHash(0x77), nil
		}
		gw.GetHeaderFunc = func(ctx context.Context, hash types.Hash) (*sidecar.BlockHeader, error) {
			return &sidecar.BlockHeader{Number: testutil.GenericHeight + 58, Hash: hash.Hex()}, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{CheckFinalized: true})
		require.NoError(err)
		require.NotNil(block.Finalized)
		require.True(*block.Finalized)
	})

	t.Run("forked block below the head is not finalized", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.FinalizedHeadFunc = func(ctx context.Context, requery bool) (types.Hash, error) {
			return testutil.GenericHash(0x77), nil
		}
		gw.GetHeaderFunc = func(ctx context.Context, hash types.Hash) (*sidecar.BlockHeader, error) {
			return &sidecar.BlockHeader{Number: testutil.GenericHeight + 58, Hash: hash.Hex()}, nil
		}
		gw.GetBlockHashFunc = func(ctx context.Context, height uint64) (types.Hash, error) {
			return testutil.GenericHash(0x14), nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, sidecar.NewHashID(testutil.GenericHash(0x2a)), sidecar.FetchOptions{CheckFinalized: true})
		require.NoError(err)
		require.NotNil(block.Finalized)
		require.False(*block.Finalized)
	})

	t.Run("absent extrinsic slot aborts the fetch", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetBlockFunc = func(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
			raw := testutil.GenericRawBlock(2)
			raw.Extrinsics[1] = nil
			return raw, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.Error(err)
		require.Nil(block)
		require.Equal(errors.MalformedExtrinsic, errors.StatusOf(err))
	})

	t.Run("malformed call aborts the fetch", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetBlockFunc = func(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
			raw := testutil.GenericRawBlock(1)
			raw.Extrinsics[0].Call = &sidecar.Call{}
			return raw, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.Error(err)
		require.Nil(block)
		require.Equal(errors.MalformedCall, errors.StatusOf(err))
	})

	t.Run("degraded fees mark every extrinsic", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.RuntimeConstantFunc = func(ctx context.Context, pallet, name string, at types.Hash) (interface{}, bool, error) {
			return nil, false, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.NoError(err)
		for _, ext := range block.Extrinsics {
			require.NotNil(ext.Info)
			require.Nil(ext.Info.PartialFee)
			require.Equal(blocks.FeeUnsupportedMarker, ext.Info.Error)
		}
	})

	t.Run("noFees skips the fee model entirely", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.RuntimeConstantFunc = func(ctx context.Context, pallet, name string, at types.Hash) (interface{}, bool, error) {
			t.Error("unexpected constant lookup with fees disabled")
			return nil, false, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{NoFees: true})
		require.NoError(err)
		for _, ext := range block.Extrinsics {
			require.NotNil(ext.Info)
			require.NotNil(ext.Info.Weight)
			require.Nil(ext.Info.PartialFee)
			require.Empty(ext.Info.Error)
		}
	})

	t.Run("unsigned extrinsics carry no fee", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetBlockFunc = func(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
			raw := testutil.GenericRawBlock(1)
			raw.Extrinsics[0].Signature = nil
			raw.Extrinsics[0].Tip = nil
			return raw, nil
		}
		gw.GetEventsFunc = func(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
			return testutil.GenericBlockEvents(1), nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.NoError(err)
		ext := block.Extrinsics[0]
		require.Nil(ext.Signature)
		require.Nil(ext.Nonce)
		require.Nil(ext.Tip)
		require.NotNil(ext.Info)
		require.NotNil(ext.Info.Weight)
		require.Nil(ext.Info.PartialFee)
		require.Empty(ext.Info.Error)
	})

	t.Run("runtime fee exemption is honored", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetBlockFunc = func(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
			return testutil.GenericRawBlock(1), nil
		}
		gw.GetEventsFunc = func(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
			event := testutil.GenericSuccessEvent(0, testutil.GenericWeight)
			event.Fields[0].Value = testutil.GenericDispatchInfo(testutil.GenericWeight, "No")
			return []sidecar.BlockEvent{event}, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.NoError(err)
		ext := block.Extrinsics[0]
		require.False(ext.PaysFee)
		require.Nil(ext.Info.PartialFee)
		require.Empty(ext.Info.Error)
	})

	t.Run("failed extrinsics still pay", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetBlockFunc = func(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
			return testutil.GenericRawBlock(1), nil
		}
		gw.GetEventsFunc = func(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
			return []sidecar.BlockEvent{testutil.GenericFailedEvent(0, testutil.GenericWeight)}, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.NoError(err)
		ext := block.Extrinsics[0]
		require.False(ext.Success)
		require.True(ext.PaysFee)
		require.NotNil(ext.Info.PartialFee)
		require.Equal("150000000", ext.Info.PartialFee.String())
	})

	t.Run("events pair by extrinsic position", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetEventsFunc = func(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
			return []sidecar.BlockEvent{
				testutil.GenericTransferEvent(0),
				testutil.GenericSuccessEvent(0, testutil.GenericWeight),
			}, nil
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.NoError(err)
		require.Len(block.Extrinsics[0].Events, 2)
		require.Empty(block.Extrinsics[1].Events)
		// Without a dispatch event there is no info to report.
		require.Nil(block.Extrinsics[1].Info)
	})

	t.Run("gateway failures surface", func(t *testing.T) {
		require := require.New(t)
		gw := testutil.BaselineGateway(t)
		gw.GetEventsFunc = func(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
			return nil, errors.NetworkErrorf("node unreachable")
		}
		service := blocks.NewService(gw)

		block, err := service.FetchBlock(ctx, blockID, sidecar.FetchOptions{})
		require.Error(err)
		require.Nil(block)
		require.Equal(errors.NetworkError, errors.StatusOf(err))
	})
}

func TestFetchBlockHeader(t *testing.T) {
	require := require.New(t)
	service := blocks.NewService(testutil.BaselineGateway(t))

	header, err := service.FetchBlockHeader(context.Background(), sidecar.NewHeightID(testutil.GenericHeight))
	require.NoError(err)
	require.Equal(testutil.GenericHeight, header.Number)
	require.Equal(testutil.GenericHash(0x2a).Hex(), header.Hash)
}

func TestFetchExtrinsic(t *testing.T) {
	ctx := context.Background()
	blockID := sidecar.NewHeightID(testutil.GenericHeight)

	t.Run("point lookup", func(t *testing.T) {
		require := require.New(t)
		service := blocks.NewService(testutil.BaselineGateway(t))

		view, err := service.FetchExtrinsic(ctx, blockID, 1, sidecar.FetchOptions{})
		require.NoError(err)
		require.Equal(testutil.GenericHeight, view.At.Height)
		require.Equal(testutil.GenericHash(0x2a).Hex(), view.At.Hash)
		require.Equal(uint64(1), view.Extrinsic.Nonce.Uint64())
	})

	t.Run("index past the end", func(t *testing.T) {
		require := require.New(t)
		service := blocks.NewService(testutil.BaselineGateway(t))

		view, err := service.FetchExtrinsic(ctx, blockID, 2, sidecar.FetchOptions{})
		require.Error(err)
		require.Nil(view)
		require.Equal(errors.IndexOutOfRange, errors.StatusOf(err))
	})
}

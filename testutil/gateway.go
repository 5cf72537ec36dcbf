package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
)

// Generic fixture values shared by gateway-driven tests. The fee
// constants reproduce a chain whose base weight costs 10000000 and whose
// polynomial is the single linear term 0.08.
const (
	GenericHeight     = uint64(42)
	GenericPerByteFee = uint64(1000000)
	GenericBaseWeight = uint64(125000000)
	GenericMultiplier = uint64(1000000000)
	GenericWeight     = uint64(399480000)
	GenericSigner     = "1a1LcBX6hGPKg5aQ6DXZpAHCCzWjckhea4sz3P1PvL3oc4F"
)

// GenericHash returns a hash filled with the seed byte.
func GenericHash(seed byte) types.Hash {
	var hash types.Hash
	for i := range hash {
		hash[i] = seed
	}
	return hash
}

// GenericRawBlock builds a raw block with the given number of signed
// transfer extrinsics.
func GenericRawBlock(extrinsics int) *sidecar.RawBlock {
	raw := &sidecar.RawBlock{
		Hash:           GenericHash(0x2a),
		Number:         GenericHeight,
		ParentHash:     GenericHash(0x29),
		StateRoot:      GenericHash(0x51),
		ExtrinsicsRoot: GenericHash(0x52),
		Logs: []sidecar.DigestLog{
			{Type: "PreRuntime", Index: 6, Value: []string{"0x42414245", "0x02"}},
		},
		Extrinsics: make([]*sidecar.RawExtrinsic, 0, extrinsics),
	}
	for i := 0; i < extrinsics; i++ {
		raw.Extrinsics = append(raw.Extrinsics, GenericRawExtrinsic(i))
	}
	return raw
}

// GenericRawExtrinsic builds one signed balance transfer at the given
// extrinsic position.
func GenericRawExtrinsic(index int) *sidecar.RawExtrinsic {
	tip := sidecar.NewAmountFromUint64(0)
	return &sidecar.RawExtrinsic{
		Call: &sidecar.Call{
			Method: sidecar.CallMethod{Pallet: "Balances", Method: "transfer_keep_alive"},
			Args: []sidecar.CallArg{
				{Name: "dest", Value: sidecar.NewCallValue(GenericSigner)},
				{Name: "value", Value: sidecar.NewCallValue(sidecar.NewAmountFromUint64(12345))},
			},
			Docs: []string{"Transfer some liquid free balance to another account."},
		},
		Hash:   GenericHash(byte(0x60 + index)),
		Length: 140,
		Signature: &sidecar.SignaturePayload{
			Signer:    GenericSigner,
			Signature: "0x" + strings.Repeat("01", 64),
		},
		Era:   sidecar.Era{IsMortal: true, Period: 64, Phase: 5},
		Nonce: uint64(index),
		Tip:   &tip,
	}
}

// GenericBlockEvents builds the event set of a block with the given
// number of extrinsics: one initialization event plus, per extrinsic, a
// transfer event and its ExtrinsicSuccess.
func GenericBlockEvents(extrinsics int) []sidecar.BlockEvent {
	events := []sidecar.BlockEvent{
		{
			Event: sidecar.Event{
				Method: sidecar.CallMethod{Pallet: "Balances", Method: "Deposit"},
				Fields: []sidecar.EventField{
					{Name: "who", Value: GenericSigner},
					{Name: "amount", Value: sidecar.NewAmountFromUint64(333)},
				},
				Docs: []string{"Some amount was deposited."},
			},
			Phase: &types.Phase{IsInitialization: true},
		},
	}
	for i := 0; i < extrinsics; i++ {
		events = append(events, GenericTransferEvent(i), GenericSuccessEvent(i, GenericWeight))
	}
	return events
}

// GenericSuccessEvent builds the System.ExtrinsicSuccess event of the
// extrinsic at index, reporting the given ref-time weight.
func GenericSuccessEvent(index int, weight uint64) sidecar.BlockEvent {
	return sidecar.BlockEvent{
		Event: sidecar.Event{
			Method: sidecar.CallMethod{Pallet: "System", Method: "ExtrinsicSuccess"},
			Fields: []sidecar.EventField{
				{Name: "dispatch_info", Value: GenericDispatchInfo(weight, "Yes")},
			},
			Docs: []string{"An extrinsic completed successfully."},
		},
		Phase: &types.Phase{IsApplyExtrinsic: true, AsApplyExtrinsic: uint32(index)},
	}
}

// GenericFailedEvent builds the System.ExtrinsicFailed event of the
// extrinsic at index.
func GenericFailedEvent(index int, weight uint64) sidecar.BlockEvent {
	return sidecar.BlockEvent{
		Event: sidecar.Event{
			Method: sidecar.CallMethod{Pallet: "System", Method: "ExtrinsicFailed"},
			Fields: []sidecar.EventField{
				{Name: "dispatch_error", Value: map[string]interface{}{"Module": map[string]interface{}{"index": uint64(5), "error": "0x01000000"}}},
				{Name: "dispatch_info", Value: GenericDispatchInfo(weight, "Yes")},
			},
			Docs: []string{"An extrinsic failed."},
		},
		Phase: &types.Phase{IsApplyExtrinsic: true, AsApplyExtrinsic: uint32(index)},
	}
}

func GenericDispatchInfo(weight uint64, paysFee string) map[string]interface{} {
	return map[string]interface{}{
		"weight":   map[string]interface{}{"ref_time": weight, "proof_size": uint64(0)},
		"class":    "Normal",
		"pays_fee": paysFee,
	}
}

func GenericTransferEvent(index int) sidecar.BlockEvent {
	return sidecar.BlockEvent{
		Event: sidecar.Event{
			Method: sidecar.CallMethod{Pallet: "Balances", Method: "Transfer"},
			Fields: []sidecar.EventField{
				{Name: "from", Value: GenericSigner},
				{Name: "to", Value: GenericSigner},
				{Name: "amount", Value: sidecar.NewAmountFromUint64(12345)},
			},
			Docs: []string{"Transfer succeeded."},
		},
		Phase: &types.Phase{IsApplyExtrinsic: true, AsApplyExtrinsic: uint32(index)},
	}
}

// GenericWeightToFee returns the rendered WeightToFee constant: the
// single linear coefficient 0.08.
func GenericWeightToFee() []interface{} {
	return []interface{}{
		map[string]interface{}{
			"coeff_integer": sidecar.NewAmountFromUint64(0),
			"coeff_frac":    uint64(80000000),
			"negative":      false,
			"degree":        uint64(1),
		},
	}
}

// Gateway is a configurable mock of the block assembler's node gateway.
type Gateway struct {
	GetBlockFunc        func(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error)
	GetHeaderFunc       func(ctx context.Context, hash types.Hash) (*sidecar.BlockHeader, error)
	GetBlockHashFunc    func(ctx context.Context, height uint64) (types.Hash, error)
	FinalizedHeadFunc   func(ctx context.Context, requery bool) (types.Hash, error)
	LatestHashFunc      func(ctx context.Context) (types.Hash, error)
	GetEventsFunc       func(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error)
	RuntimeConstantFunc func(ctx context.Context, pallet string, name string, at types.Hash) (interface{}, bool, error)
	FeeMultiplierFunc   func(ctx context.Context, at types.Hash) (*sidecar.Amount, bool, error)
}

// BaselineGateway returns a gateway serving a consistent two-extrinsic
// block at the finalized head, with the generic fee constants exposed.
// Tests override individual functions to steer scenarios.
func BaselineGateway(t *testing.T) *Gateway {
	t.Helper()

	gw := Gateway{
		GetBlockFunc: func(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
			return GenericRawBlock(2), nil
		},
		GetHeaderFunc: func(ctx context.Context, hash types.Hash) (*sidecar.BlockHeader, error) {
			header := GenericRawBlock(0).Header()
			header.Hash = hash.Hex()
			return &header, nil
		},
		GetBlockHashFunc: func(ctx context.Context, height uint64) (types.Hash, error) {
			return GenericHash(0x2a), nil
		},
		FinalizedHeadFunc: func(ctx context.Context, requery bool) (types.Hash, error) {
			return GenericHash(0x2a), nil
		},
		LatestHashFunc: func(ctx context.Context) (types.Hash, error) {
			return GenericHash(0x2a), nil
		},
		GetEventsFunc: func(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
			return GenericBlockEvents(2), nil
		},
		RuntimeConstantFunc: func(ctx context.Context, pallet string, name string, at types.Hash) (interface{}, bool, error) {
			switch pallet + "." + name {
			case "TransactionPayment.TransactionByteFee":
				return sidecar.NewAmountFromUint64(GenericPerByteFee), true, nil
			case "System.ExtrinsicBaseWeight":
				return GenericBaseWeight, true, nil
			case "TransactionPayment.WeightToFee":
				return GenericWeightToFee(), true, nil
			default:
				return nil, false, nil
			}
		},
		FeeMultiplierFunc: func(ctx context.Context, at types.Hash) (*sidecar.Amount, bool, error) {
			multiplier := sidecar.NewAmountFromUint64(GenericMultiplier)
			return &multiplier, true, nil
		},
	}

	return &gw
}

func (g *Gateway) GetBlock(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
	return g.GetBlockFunc(ctx, hash)
}

func (g *Gateway) GetHeader(ctx context.Context, hash types.Hash) (*sidecar.BlockHeader, error) {
	return g.GetHeaderFunc(ctx, hash)
}

func (g *Gateway) GetBlockHash(ctx context.Context, height uint64) (types.Hash, error) {
	return g.GetBlockHashFunc(ctx, height)
}

func (g *Gateway) FinalizedHead(ctx context.Context, requery bool) (types.Hash, error) {
	return g.FinalizedHeadFunc(ctx, requery)
}

func (g *Gateway) LatestHash(ctx context.Context) (types.Hash, error) {
	return g.LatestHashFunc(ctx)
}

func (g *Gateway) GetEvents(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
	return g.GetEventsFunc(ctx, hash)
}

func (g *Gateway) RuntimeConstant(ctx context.Context, pallet string, name string, at types.Hash) (interface{}, bool, error) {
	return g.RuntimeConstantFunc(ctx, pallet, name, at)
}

func (g *Gateway) FeeMultiplier(ctx context.Context, at types.Hash) (*sidecar.Amount, bool, error) {
	return g.FeeMultiplierFunc(ctx, at)
}

package blocks

import (
	"context"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/errors"
	"golang.org/x/sync/errgroup"
)

// Service is the block assembler. Every fetch is an independent,
// stateless pipeline over the gateway; concurrent fetches share nothing
// but the gateway itself.
type Service struct {
	gateway  Gateway
	finality *FinalityChecker
}

func NewService(gateway Gateway) *Service {
	return &Service{
		gateway:  gateway,
		finality: NewFinalityChecker(gateway),
	}
}

// ResolveHash maps a block identifier onto its hash, asking the chain
// for the canonical hash when the identifier is a height.
func (s *Service) ResolveHash(ctx context.Context, id sidecar.BlockID) (types.Hash, error) {
	if id.IsHash {
		return id.AsHash, nil
	}
	return s.gateway.GetBlockHash(ctx, id.AsHeight)
}

// HeadHash resolves the hash of the chain head: the finalized head for
// finalizing chains, the best block otherwise.
func (s *Service) HeadHash(ctx context.Context, finalized bool) (types.Hash, error) {
	if finalized {
		return s.gateway.FinalizedHead(ctx, true)
	}
	return s.gateway.LatestHash(ctx)
}

// FetchBlock assembles the full view of one block: decoded calls, paired
// events, per-extrinsic fees, and the finality tag when requested.
//
// The event set, the fee model, and the finality inputs are independent
// reads and are fetched concurrently once the raw block is in hand. A
// structurally absent extrinsic slot aborts the whole fetch; no partial
// block is ever returned.
func (s *Service) FetchBlock(ctx context.Context, id sidecar.BlockID, opts sidecar.FetchOptions) (*sidecar.Block, error) {
	hash, err := s.ResolveHash(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := s.gateway.GetBlock(ctx, hash)
	if err != nil {
		return nil, err
	}

	// Fee constants are read at the parent: they describe the runtime
	// that executed this block. Genesis is its own parent here.
	feeContext := raw.ParentHash
	if raw.Number == 0 {
		feeContext = raw.Hash
	}

	var (
		events  []sidecar.BlockEvent
		fees    *FeeModel
		verdict *sidecar.FinalityVerdict
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		events, err = s.gateway.GetEvents(groupCtx, hash)
		return err
	})
	if !opts.NoFees {
		group.Go(func() error {
			var err error
			fees, err = BuildFeeModel(groupCtx, s.gateway, feeContext)
			return err
		})
	}
	if opts.CheckFinalized && !opts.OmitFinalizedTag {
		group.Go(func() error {
			var err error
			verdict, err = s.finalityVerdict(groupCtx, raw, opts.QueryFinalizedHead)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	block := &sidecar.Block{
		BlockHeader:  raw.Header(),
		OnInitialize: sidecar.EventGroup{Events: make([]sidecar.Event, 0)},
		OnFinalize:   sidecar.EventGroup{Events: make([]sidecar.Event, 0)},
		Extrinsics:   make([]*sidecar.Extrinsic, 0, len(raw.Extrinsics)),
	}
	perExtrinsic := groupEvents(block, events, opts.EventDocs)

	for i, rawExt := range raw.Extrinsics {
		if rawExt == nil {
			return nil, errors.MalformedExtrinsicf(
				"block %d: extrinsic %d is structurally absent", raw.Number, i)
		}
		ext, err := s.assembleExtrinsic(rawExt, perExtrinsic[i], fees, opts)
		if err != nil {
			return nil, fmt.Errorf("block %d: extrinsic %d: %w", raw.Number, i, err)
		}
		block.Extrinsics = append(block.Extrinsics, ext)
	}

	if verdict != nil {
		finalized := verdict.Finalized
		block.Finalized = &finalized
	}
	blocksAssembledTotal.Inc()
	return block, nil
}

// FetchBlockHeader renders just the header of one block.
func (s *Service) FetchBlockHeader(ctx context.Context, id sidecar.BlockID) (*sidecar.BlockHeader, error) {
	hash, err := s.ResolveHash(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.gateway.GetHeader(ctx, hash)
}

// FetchExtrinsic assembles a block and returns the extrinsic at index,
// wrapped with the block identifiers it came from.
func (s *Service) FetchExtrinsic(ctx context.Context, id sidecar.BlockID, index int, opts sidecar.FetchOptions) (*ExtrinsicView, error) {
	block, err := s.FetchBlock(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	return ExtrinsicAt(block, index)
}

// finalityVerdict runs the finality check for one raw block: resolve the
// finalized head, decide whether the candidate sits at or below it, and
// hand both to the checker.
func (s *Service) finalityVerdict(ctx context.Context, raw *sidecar.RawBlock, requery bool) (*sidecar.FinalityVerdict, error) {
	head, err := s.gateway.FinalizedHead(ctx, requery)
	if err != nil {
		return nil, err
	}
	headHeader, err := s.gateway.GetHeader(ctx, head)
	if err != nil {
		return nil, err
	}
	below := raw.Number <= headHeader.Number
	finalized, err := s.finality.IsFinalized(ctx, raw.Number, raw.Hash, head, below)
	if err != nil {
		return nil, err
	}
	return &sidecar.FinalityVerdict{Finalized: finalized, FinalizedHead: head}, nil
}

// groupEvents splits a block's events into the two runtime-phase groups
// on the block and a per-extrinsic index, stripping docs unless asked
// to keep them.
func groupEvents(block *sidecar.Block, events []sidecar.BlockEvent, keepDocs bool) map[int][]sidecar.Event {
	perExtrinsic := make(map[int][]sidecar.Event)
	for _, event := range events {
		rendered := event.Event
		if !keepDocs {
			rendered.Docs = nil
		}
		switch {
		case event.Phase == nil:
			continue
		case event.Phase.IsInitialization:
			block.OnInitialize.Events = append(block.OnInitialize.Events, rendered)
		case event.Phase.IsFinalization:
			block.OnFinalize.Events = append(block.OnFinalize.Events, rendered)
		case event.Phase.IsApplyExtrinsic:
			index := int(event.Phase.AsApplyExtrinsic)
			perExtrinsic[index] = append(perExtrinsic[index], rendered)
		}
	}
	return perExtrinsic
}

func (s *Service) assembleExtrinsic(raw *sidecar.RawExtrinsic, events []sidecar.Event, fees *FeeModel, opts sidecar.FetchOptions) (*sidecar.Extrinsic, error) {
	decoded, err := DecodeCall(raw.Call)
	if err != nil {
		return nil, err
	}
	if !opts.ExtrinsicDocs {
		stripCallDocs(decoded)
	}
	if events == nil {
		events = make([]sidecar.Event, 0)
	}

	outcome := dispatchOutcomeOf(events)
	ext := &sidecar.Extrinsic{
		Call:      decoded,
		Signature: raw.Signature,
		Hash:      raw.Hash.Hex(),
		Era:       raw.Era,
		Events:    events,
		Success:   outcome.success,
		PaysFee:   outcome.paysFee,
	}
	if raw.Signed() {
		nonce := sidecar.NewAmountFromUint64(raw.Nonce)
		ext.Nonce = &nonce
		ext.Tip = raw.Tip
	}
	ext.Info = extrinsicInfo(raw, outcome, fees, opts)
	return ext, nil
}

// extrinsicInfo renders the dispatch and fee information of one
// extrinsic. Fees are skipped for weightless extrinsics (inherents),
// unsigned extrinsics, extrinsics the runtime exempted, and fetches that
// disabled them; a degraded fee model marks the fee unsupported instead
// of failing assembly, so sibling extrinsics are unaffected.
func extrinsicInfo(raw *sidecar.RawExtrinsic, outcome dispatchOutcome, fees *FeeModel, opts sidecar.FetchOptions) *sidecar.ExtrinsicInfo {
	if !outcome.found {
		return nil
	}
	info := &sidecar.ExtrinsicInfo{Class: outcome.class}
	if outcome.weight != nil {
		weight := sidecar.NewAmountFromBigInt(outcome.weight)
		info.Weight = &weight
	}
	if opts.NoFees || !raw.Signed() || outcome.weight == nil || !outcome.paysFee {
		return info
	}
	fee, err := fees.PartialFee(outcome.weight, uint64(raw.Length))
	if err != nil {
		feeDegradedTotal.Inc()
		info.Error = FeeUnsupportedMarker
		return info
	}
	info.PartialFee = &fee
	return info
}

// stripCallDocs clears the documentation of a decoded call tree, again
// with an explicit stack to keep deep batches off the goroutine stack.
func stripCallDocs(call *sidecar.DecodedCall) {
	stack := []*sidecar.DecodedCall{call}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == nil {
			continue
		}
		current.Docs = nil
		for i := range current.Args {
			value := current.Args[i].Value
			switch {
			case value.IsCall:
				stack = append(stack, value.AsCall)
			case value.IsCalls:
				stack = append(stack, value.AsCalls...)
			}
		}
	}
}

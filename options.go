package sidecar

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// FetchOptions control how one block fetch assembles its view. The zero
// value fetches the plain block: no docs, no finality tag, fees computed.
type FetchOptions struct {
	// EventDocs keeps the runtime documentation attached to each event.
	EventDocs bool
	// ExtrinsicDocs keeps the runtime documentation attached to each
	// decoded call.
	ExtrinsicDocs bool
	// CheckFinalized computes and attaches the finality tag.
	CheckFinalized bool
	// QueryFinalizedHead re-resolves the finalized head from the node
	// instead of reusing the gateway's cached value.
	QueryFinalizedHead bool
	// OmitFinalizedTag leaves the finality tag absent regardless of
	// CheckFinalized. Set for chains that do not finalize.
	OmitFinalizedTag bool
	// NoFees skips partial-fee computation for the whole fetch.
	NoFees bool
}

// FinalityVerdict is the outcome of one finality check, carrying the
// finalized head hash it was computed against.
type FinalityVerdict struct {
	Finalized     bool
	FinalizedHead types.Hash
}

// Package api serves the sidecar's HTTP surface. Handlers translate
// path and query parameters into block-service calls and render the
// service's views as JSON; every failure is mapped onto the shared
// error envelope.
package api

import (
	"context"
	"net/http"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/blocks"
	"github.com/labstack/echo/v4"
)

// BlockFetcher is the slice of the block service the handlers consume.
type BlockFetcher interface {
	FetchBlock(ctx context.Context, id sidecar.BlockID, opts sidecar.FetchOptions) (*sidecar.Block, error)
	FetchBlockHeader(ctx context.Context, id sidecar.BlockID) (*sidecar.BlockHeader, error)
	FetchExtrinsic(ctx context.Context, id sidecar.BlockID, index int, opts sidecar.FetchOptions) (*blocks.ExtrinsicView, error)
	HeadHash(ctx context.Context, finalized bool) (types.Hash, error)
}

// Blocks answers the block endpoints. The fetch defaults carry the
// chain profile (whether it finalizes, how the finalized head is
// resolved); each request may override the documented subset through
// query parameters.
type Blocks struct {
	fetch    BlockFetcher
	defaults sidecar.FetchOptions
}

func NewBlocks(fetch BlockFetcher, defaults sidecar.FetchOptions) *Blocks {
	return &Blocks{
		fetch:    fetch,
		defaults: defaults,
	}
}

// Block renders the fully assembled block named by the blockId path
// param.
func (b *Blocks) Block(ctx echo.Context) error {
	id, err := sidecar.ParseBlockID(ctx.Param("blockId"))
	if err != nil {
		return renderError(ctx, err)
	}
	return b.renderBlock(ctx, id)
}

// Head renders the fully assembled block at the chain head. The head is
// the finalized head unless the chain does not finalize or the request
// set finalized=false, in which case it is the best block.
func (b *Blocks) Head(ctx echo.Context) error {
	id, err := b.headID(ctx)
	if err != nil {
		return renderError(ctx, err)
	}
	return b.renderBlock(ctx, id)
}

// BlockHeader renders just the header of the block named by the blockId
// path param.
func (b *Blocks) BlockHeader(ctx echo.Context) error {
	id, err := sidecar.ParseBlockID(ctx.Param("blockId"))
	if err != nil {
		return renderError(ctx, err)
	}
	return b.renderHeader(ctx, id)
}

// HeadHeader renders just the header of the block at the chain head.
func (b *Blocks) HeadHeader(ctx echo.Context) error {
	id, err := b.headID(ctx)
	if err != nil {
		return renderError(ctx, err)
	}
	return b.renderHeader(ctx, id)
}

// Extrinsic renders a single extrinsic of an assembled block, wrapped
// with the identity of the block it came from.
func (b *Blocks) Extrinsic(ctx echo.Context) error {
	id, err := sidecar.ParseBlockID(ctx.Param("blockId"))
	if err != nil {
		return renderError(ctx, err)
	}
	index, err := blocks.ParseExtrinsicIndex("extrinsicIndex", ctx.Param("extrinsicIndex"))
	if err != nil {
		return renderError(ctx, err)
	}
	view, err := b.fetch.FetchExtrinsic(ctx.Request().Context(), id, index, b.requestOptions(ctx))
	if err != nil {
		return renderError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, view)
}

func (b *Blocks) renderBlock(ctx echo.Context, id sidecar.BlockID) error {
	block, err := b.fetch.FetchBlock(ctx.Request().Context(), id, b.requestOptions(ctx))
	if err != nil {
		return renderError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, block)
}

func (b *Blocks) renderHeader(ctx echo.Context, id sidecar.BlockID) error {
	header, err := b.fetch.FetchBlockHeader(ctx.Request().Context(), id)
	if err != nil {
		return renderError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, header)
}

// headID resolves the "head" pseudo-identifier into a concrete hash.
func (b *Blocks) headID(ctx echo.Context) (sidecar.BlockID, error) {
	finalized := boolParam(ctx, "finalized", true) && !b.defaults.OmitFinalizedTag
	hash, err := b.fetch.HeadHash(ctx.Request().Context(), finalized)
	if err != nil {
		return sidecar.BlockID{}, err
	}
	return sidecar.NewHashID(hash), nil
}

// requestOptions applies the per-request query parameters on top of the
// configured fetch defaults.
func (b *Blocks) requestOptions(ctx echo.Context) sidecar.FetchOptions {
	opts := b.defaults
	opts.EventDocs = boolParam(ctx, "eventDocs", opts.EventDocs)
	opts.ExtrinsicDocs = boolParam(ctx, "extrinsicDocs", opts.ExtrinsicDocs)
	opts.CheckFinalized = boolParam(ctx, "finalized", opts.CheckFinalized)
	opts.NoFees = boolParam(ctx, "noFees", opts.NoFees)
	return opts
}

// boolParam reads a boolean query parameter. Only the literal strings
// "true" and "false" flip the flag; anything else keeps the fallback.
func boolParam(ctx echo.Context, name string, fallback bool) bool {
	switch ctx.QueryParam(name) {
	case "true":
		return true
	case "false":
		return false
	default:
		return fallback
	}
}

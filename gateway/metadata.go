package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/sirupsen/logrus"
)

// metadataBundle is everything derived from one runtime version's
// metadata: the decoded metadata itself, the type walker over it, and
// the per-event doc index. Bundles are cached by spec version, so a
// long scan over historic blocks decodes each runtime's metadata once.
type metadataBundle struct {
	specVersion uint32
	meta        *types.Metadata
	walker      *Walker
	eventDocs   map[string][]string
}

func (g *Client) bundleAt(ctx context.Context, at types.Hash) (*metadataBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rv, err := g.api.RPC.State.GetRuntimeVersion(at)
	if err != nil {
		return nil, asNetworkError("runtime version", err)
	}
	specVersion := uint32(rv.SpecVersion)

	g.metaMu.Lock()
	defer g.metaMu.Unlock()
	if bundle, ok := g.metadata[specVersion]; ok {
		return bundle, nil
	}
	meta, err := g.api.RPC.State.GetMetadata(at)
	if err != nil {
		return nil, asNetworkError("metadata", err)
	}
	walker, err := NewWalker(meta, g.ss58Prefix)
	if err != nil {
		return nil, err
	}
	bundle := &metadataBundle{
		specVersion: specVersion,
		meta:        meta,
		walker:      walker,
		eventDocs:   eventDocsIndex(meta),
	}
	g.metadata[specVersion] = bundle
	logrus.WithField("specVersion", specVersion).Debug("cached runtime metadata")
	return bundle, nil
}

// RuntimeConstant reads one pallet constant from the runtime live at
// the given block, rendered through the type walker. A missing pallet
// or constant reports ok=false; the caller picks its fallback.
func (g *Client) RuntimeConstant(ctx context.Context, pallet, name string, at types.Hash) (interface{}, bool, error) {
	bundle, err := g.bundleAt(ctx, at)
	if err != nil {
		return nil, false, err
	}
	constant := bundle.findConstant(pallet, name)
	if constant == nil {
		return nil, false, nil
	}
	value, err := bundle.walker.DecodeConstant(constant.Type.Int64(), constant.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// FeeMultiplier reads TransactionPayment.NextFeeMultiplier storage as
// of the given block. Chains without the pallet report ok=false.
func (g *Client) FeeMultiplier(ctx context.Context, at types.Hash) (*sidecar.Amount, bool, error) {
	bundle, err := g.bundleAt(ctx, at)
	if err != nil {
		return nil, false, err
	}
	key, err := types.CreateStorageKey(bundle.meta, "TransactionPayment", "NextFeeMultiplier")
	if err != nil {
		// The runtime has no such storage entry.
		return nil, false, nil
	}
	var multiplier types.U128
	ok, err := g.api.RPC.State.GetStorage(key, &multiplier, at)
	if err != nil {
		return nil, false, asNetworkError("fee multiplier", err)
	}
	if !ok || multiplier.Int == nil {
		return nil, false, nil
	}
	amount := sidecar.NewAmountFromBigInt(multiplier.Int)
	return &amount, true, nil
}

func (b *metadataBundle) findConstant(pallet, name string) *types.ConstantMetadataV14 {
	for i := range b.meta.AsMetadataV14.Pallets {
		candidate := &b.meta.AsMetadataV14.Pallets[i]
		if !strings.EqualFold(string(candidate.Name), pallet) {
			continue
		}
		for j := range candidate.Constants {
			if strings.EqualFold(string(candidate.Constants[j].Name), name) {
				return &candidate.Constants[j]
			}
		}
		return nil
	}
	return nil
}

// eventDocsIndex maps "Pallet.Method" onto the doc lines of the event
// variant, for every pallet that declares events.
func eventDocsIndex(meta *types.Metadata) map[string][]string {
	docs := map[string][]string{}
	if !meta.IsMetadataV14 {
		return docs
	}
	lookup := meta.AsMetadataV14.EfficientLookup
	for i := range meta.AsMetadataV14.Pallets {
		pallet := &meta.AsMetadataV14.Pallets[i]
		if !pallet.HasEvents {
			continue
		}
		def, ok := lookup[pallet.Events.Type.Int64()]
		if !ok || !def.Def.IsVariant {
			continue
		}
		for j := range def.Def.Variant.Variants {
			variant := &def.Def.Variant.Variants[j]
			if lines := textLines(variant.Docs); lines != nil {
				docs[fmt.Sprintf("%s.%s", pallet.Name, variant.Name)] = lines
			}
		}
	}
	return docs
}

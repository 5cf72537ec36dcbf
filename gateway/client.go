// Package gateway connects the sidecar to one Substrate node. It wraps
// the node's RPC surface behind blocks.Gateway, decodes SCALE payloads
// through the runtime's own metadata, and caches the per-runtime decode
// state across fetches.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/parser"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/retriever"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/state"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/blocks"
	"github.com/cordialsys/substrate-sidecar/errors"
	"github.com/sirupsen/logrus"
)

// Client is the node-facing gateway: one Substrate RPC connection plus
// the decode state derived from it. All methods are safe for concurrent
// use.
type Client struct {
	api        *gsrpc.SubstrateAPI
	ss58Prefix uint16

	metaMu   sync.Mutex
	metadata map[uint32]*metadataBundle

	headMu        sync.RWMutex
	finalizedHead types.Hash
	headValid     bool
	watching      bool

	retrMu    sync.Mutex
	retriever retriever.EventRetriever
}

var _ blocks.Gateway = (*Client)(nil)

// NewClient dials the node websocket and returns a ready client. The
// SS58 prefix decides how account ids render throughout.
func NewClient(rpcURL string, ss58Prefix uint16) (*Client, error) {
	api, err := gsrpc.NewSubstrateAPI(rpcURL)
	if err != nil {
		return nil, errors.NetworkErrorf("connecting to %s: %v", rpcURL, err)
	}
	return &Client{
		api:        api,
		ss58Prefix: ss58Prefix,
		metadata:   map[uint32]*metadataBundle{},
	}, nil
}

// The chain_getBlock result, kept as raw hex so each extrinsic decodes
// on its own instead of the whole response failing as one unit.
type blockResult struct {
	Block struct {
		Header     headerResult `json:"header"`
		Extrinsics []string     `json:"extrinsics"`
	} `json:"block"`
}

type headerResult struct {
	ParentHash     string `json:"parentHash"`
	Number         string `json:"number"`
	StateRoot      string `json:"stateRoot"`
	ExtrinsicsRoot string `json:"extrinsicsRoot"`
	Digest         struct {
		Logs []string `json:"logs"`
	} `json:"digest"`
}

// GetBlock fetches one block and decodes everything decodable. A single
// undecodable extrinsic surfaces as an absent slot rather than poisoning
// its siblings; the assembler decides what that means.
func (g *Client) GetBlock(ctx context.Context, hash types.Hash) (*sidecar.RawBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result blockResult
	if err := g.api.Client.Call(&result, "chain_getBlock", hash.Hex()); err != nil {
		return nil, asNetworkError("block", err)
	}
	if result.Block.Header.Number == "" {
		return nil, errors.NotFoundf("no block with hash %s", hash.Hex())
	}
	bundle, err := g.bundleAt(ctx, hash)
	if err != nil {
		return nil, err
	}

	header := result.Block.Header
	number, err := parseHexNumber(header.Number)
	if err != nil {
		return nil, errors.Unknownf("block %s header: %v", hash.Hex(), err)
	}
	raw := &sidecar.RawBlock{
		Hash:   hash,
		Number: number,
		Logs:   parseDigestLogs(header.Digest.Logs),
	}
	if raw.ParentHash, err = types.NewHashFromHexString(header.ParentHash); err != nil {
		return nil, errors.Unknownf("block %s header: parent hash: %v", hash.Hex(), err)
	}
	if raw.StateRoot, err = types.NewHashFromHexString(header.StateRoot); err != nil {
		return nil, errors.Unknownf("block %s header: state root: %v", hash.Hex(), err)
	}
	if raw.ExtrinsicsRoot, err = types.NewHashFromHexString(header.ExtrinsicsRoot); err != nil {
		return nil, errors.Unknownf("block %s header: extrinsics root: %v", hash.Hex(), err)
	}
	raw.Extrinsics = make([]*sidecar.RawExtrinsic, len(result.Block.Extrinsics))
	for i, encoded := range result.Block.Extrinsics {
		raw.Extrinsics[i] = g.decodeExtrinsicSlot(bundle, number, i, encoded)
	}
	return raw, nil
}

func (g *Client) decodeExtrinsicSlot(bundle *metadataBundle, number uint64, index int, encoded string) *sidecar.RawExtrinsic {
	data, err := codec.HexDecodeString(encoded)
	if err == nil {
		var decoded *sidecar.RawExtrinsic
		decoded, err = DecodeExtrinsic(bundle.walker, data, g.ss58Prefix)
		if err == nil {
			return decoded
		}
	}
	logrus.WithFields(logrus.Fields{
		"block":     number,
		"extrinsic": index,
		"error":     err,
	}).Warn("could not decode extrinsic")
	return nil
}

// GetHeader fetches and renders one block header without its body.
func (g *Client) GetHeader(ctx context.Context, hash types.Hash) (*sidecar.BlockHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result headerResult
	if err := g.api.Client.Call(&result, "chain_getHeader", hash.Hex()); err != nil {
		return nil, asNetworkError("header", err)
	}
	if result.Number == "" {
		return nil, errors.NotFoundf("no block with hash %s", hash.Hex())
	}
	number, err := parseHexNumber(result.Number)
	if err != nil {
		return nil, errors.Unknownf("block %s header: %v", hash.Hex(), err)
	}
	return &sidecar.BlockHeader{
		Number:         number,
		Hash:           hash.Hex(),
		ParentHash:     result.ParentHash,
		StateRoot:      result.StateRoot,
		ExtrinsicsRoot: result.ExtrinsicsRoot,
		Logs:           parseDigestLogs(result.Digest.Logs),
	}, nil
}

// GetBlockHash resolves the canonical hash at a height.
func (g *Client) GetBlockHash(ctx context.Context, height uint64) (types.Hash, error) {
	if err := ctx.Err(); err != nil {
		return types.Hash{}, err
	}
	var result string
	if err := g.api.Client.Call(&result, "chain_getBlockHash", height); err != nil {
		return types.Hash{}, asNetworkError("block hash", err)
	}
	if result == "" {
		return types.Hash{}, errors.NotFoundf("no block at height %d", height)
	}
	hash, err := types.NewHashFromHexString(result)
	if err != nil {
		return types.Hash{}, errors.Unknownf("block hash at height %d: %v", height, err)
	}
	return hash, nil
}

// LatestHash resolves the hash of the best block, finalized or not.
func (g *Client) LatestHash(ctx context.Context) (types.Hash, error) {
	if err := ctx.Err(); err != nil {
		return types.Hash{}, err
	}
	hash, err := g.api.RPC.Chain.GetBlockHashLatest()
	if err != nil {
		return types.Hash{}, asNetworkError("latest block hash", err)
	}
	return hash, nil
}

// FinalizedHead resolves the finalized head hash. With an active head
// watcher the cached value is served unless the caller insists on a
// fresh query.
func (g *Client) FinalizedHead(ctx context.Context, requery bool) (types.Hash, error) {
	if !requery {
		g.headMu.RLock()
		head, valid := g.finalizedHead, g.headValid && g.watching
		g.headMu.RUnlock()
		if valid {
			return head, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return types.Hash{}, err
	}
	head, err := g.api.RPC.Chain.GetFinalizedHead()
	if err != nil {
		return types.Hash{}, asNetworkError("finalized head", err)
	}
	g.headMu.Lock()
	g.finalizedHead = head
	g.headValid = true
	g.headMu.Unlock()
	return head, nil
}

// WatchFinalizedHeads subscribes to finality announcements and keeps the
// cached head current until ctx ends. Announcements carry the header,
// not its hash, so each one triggers a head requery instead of hashing
// the header locally.
func (g *Client) WatchFinalizedHeads(ctx context.Context) error {
	sub, err := g.api.RPC.Chain.SubscribeFinalizedHeads()
	if err != nil {
		return asNetworkError("finalized head subscription", err)
	}
	defer sub.Unsubscribe()

	g.setWatching(true)
	defer g.setWatching(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-sub.Chan():
			if !ok {
				return errors.NetworkErrorf("finalized head subscription closed")
			}
			if _, err := g.FinalizedHead(ctx, true); err != nil {
				logrus.WithError(err).Warn("could not refresh finalized head")
			}
		case err := <-sub.Err():
			return asNetworkError("finalized head subscription", err)
		}
	}
}

func (g *Client) setWatching(watching bool) {
	g.headMu.Lock()
	g.watching = watching
	g.headMu.Unlock()
}

// GetEvents fetches and renders the full event set of one block.
func (g *Client) GetEvents(ctx context.Context, hash types.Hash) ([]sidecar.BlockEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bundle, err := g.bundleAt(ctx, hash)
	if err != nil {
		return nil, err
	}
	events, err := g.retrieveEvents(hash)
	if err != nil {
		return nil, asNetworkError("events", err)
	}
	renderer := &eventRenderer{walker: bundle.walker, docs: bundle.eventDocs}
	return renderer.render(events), nil
}

// retrieveEvents lazily builds the registry-backed event retriever. A
// failed retrieval rebuilds it once and retries, as the registry belongs
// to one runtime version and goes stale across upgrades.
func (g *Client) retrieveEvents(hash types.Hash) ([]*parser.Event, error) {
	g.retrMu.Lock()
	defer g.retrMu.Unlock()
	if g.retriever == nil {
		fresh, err := retriever.NewDefaultEventRetriever(state.NewEventProvider(g.api.RPC.State), g.api.RPC.State)
		if err != nil {
			return nil, err
		}
		g.retriever = fresh
	}
	events, err := g.retriever.GetEvents(hash)
	if err == nil {
		return events, nil
	}
	fresh, rebuildErr := retriever.NewDefaultEventRetriever(state.NewEventProvider(g.api.RPC.State), g.api.RPC.State)
	if rebuildErr != nil {
		return nil, err
	}
	g.retriever = fresh
	return g.retriever.GetEvents(hash)
}

func parseHexNumber(value string) (uint64, error) {
	number, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("block number %q: %v", value, err)
	}
	return number, nil
}

// Digest item indices as the runtime encodes them.
const (
	digestOther           = 0
	digestChangesTrieRoot = 2
	digestConsensus       = 4
	digestSeal            = 5
	digestPreRuntime      = 6
	digestRuntimeUpdated  = 8
)

func parseDigestLogs(encoded []string) []sidecar.DigestLog {
	logs := make([]sidecar.DigestLog, 0, len(encoded))
	for _, log := range encoded {
		logs = append(logs, parseDigestLog(log))
	}
	return logs
}

// parseDigestLog renders one digest log. Unknown or undecodable items
// keep their raw hex so nothing in the header is silently dropped.
func parseDigestLog(encoded string) sidecar.DigestLog {
	raw, err := codec.HexDecodeString(encoded)
	if err != nil || len(raw) == 0 {
		return sidecar.DigestLog{Type: "Other", Value: []string{encoded}}
	}
	log := sidecar.DigestLog{Index: raw[0]}
	body := raw[1:]
	switch log.Index {
	case digestPreRuntime, digestConsensus, digestSeal:
		log.Type = consensusDigestName(log.Index)
		engine, payload, err := splitConsensusItem(body)
		if err != nil {
			log.Value = []string{codec.HexEncodeToString(body)}
			return log
		}
		log.Value = []string{engine, payload}
	case digestOther:
		log.Type = "Other"
		payload, err := decodeByteVec(body)
		if err != nil {
			payload = codec.HexEncodeToString(body)
		}
		log.Value = []string{payload}
	case digestChangesTrieRoot:
		log.Type = "ChangesTrieRoot"
		log.Value = []string{codec.HexEncodeToString(body)}
	case digestRuntimeUpdated:
		log.Type = "RuntimeEnvironmentUpdated"
		log.Value = []string{}
	default:
		log.Type = "Other"
		log.Value = []string{encoded}
	}
	return log
}

func consensusDigestName(index uint8) string {
	switch index {
	case digestConsensus:
		return "Consensus"
	case digestSeal:
		return "Seal"
	default:
		return "PreRuntime"
	}
}

// splitConsensusItem cuts a consensus digest body into its four byte
// engine id and the length-prefixed payload.
func splitConsensusItem(body []byte) (string, string, error) {
	if len(body) < 4 {
		return "", "", fmt.Errorf("consensus item of %d bytes", len(body))
	}
	payload, err := decodeByteVec(body[4:])
	if err != nil {
		return "", "", err
	}
	return codec.HexEncodeToString(body[:4]), payload, nil
}

func decodeByteVec(raw []byte) (string, error) {
	var payload []byte
	if err := newDecodeStream(raw).dec.Decode(&payload); err != nil {
		return "", err
	}
	return codec.HexEncodeToString(payload), nil
}

// asNetworkError wraps a transport failure, surfacing the rpc error
// payload that the client's default error string drops.
func asNetworkError(what string, err error) error {
	return errors.NetworkErrorf("%s: %v", what, rpcErrorDetail(err))
}

type rpcErrorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func rpcErrorDetail(inputError error) error {
	bz, err := json.Marshal(inputError)
	if err != nil {
		return inputError
	}
	var parsed rpcErrorBody
	if err := json.Unmarshal(bz, &parsed); err != nil {
		return inputError
	}
	if parsed.Code != 0 && len(parsed.Message) > 0 {
		if parsed.Data != nil {
			return fmt.Errorf("%s: %v (%d)", parsed.Message, parsed.Data, parsed.Code)
		}
		return fmt.Errorf("%s (%d)", parsed.Message, parsed.Code)
	}
	return inputError
}

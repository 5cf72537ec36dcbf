package gateway

import (
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/errors"
	"github.com/vedhavyas/go-subkey/v2"
	"golang.org/x/crypto/blake2b"
)

// DecodeExtrinsic decodes one length-prefixed extrinsic as the node
// transmits it. The identity hash is blake2b over the complete raw
// bytes, the same bytes the length counts.
func DecodeExtrinsic(walker *Walker, raw []byte, ss58Prefix uint16) (*sidecar.RawExtrinsic, error) {
	var ext types.Extrinsic
	if err := codec.Decode(raw, &ext); err != nil {
		return nil, errors.MalformedExtrinsicf("undecodable extrinsic: %v", err)
	}

	callData := make([]byte, 0, 2+len(ext.Method.Args))
	callData = append(callData, ext.Method.CallIndex.SectionIndex, ext.Method.CallIndex.MethodIndex)
	callData = append(callData, ext.Method.Args...)
	call, err := walker.DecodeCallData(callData)
	if err != nil {
		return nil, err
	}

	decoded := &sidecar.RawExtrinsic{
		Call:   call,
		Hash:   types.Hash(blake2b.Sum256(raw)),
		Length: len(raw),
	}
	if !ext.IsSigned() {
		return decoded, nil
	}

	signer, err := renderMultiAddress(ext.Signature.Signer, ss58Prefix)
	if err != nil {
		return nil, err
	}
	decoded.Signature = &sidecar.SignaturePayload{
		Signer:    signer,
		Signature: renderMultiSignature(ext.Signature.Signature),
	}
	decoded.Era = decodeEra(ext.Signature.Era)
	decoded.Nonce = uint64(ext.Signature.Nonce.Int64())
	tip := big.Int(ext.Signature.Tip)
	tipAmount := sidecar.NewAmountFromBigInt(&tip)
	decoded.Tip = &tipAmount
	return decoded, nil
}

func renderMultiAddress(address types.MultiAddress, prefix uint16) (string, error) {
	switch {
	case address.IsID:
		return subkey.SS58Encode(address.AsID.ToBytes(), prefix), nil
	case address.IsIndex:
		return fmt.Sprintf("%d", uint32(address.AsIndex)), nil
	case address.IsRaw:
		return codec.HexEncodeToString(address.AsRaw), nil
	case address.IsAddress32:
		return codec.HexEncodeToString(address.AsAddress32[:]), nil
	case address.IsAddress20:
		return codec.HexEncodeToString(address.AsAddress20[:]), nil
	}
	return "", errors.MalformedExtrinsicf("unrecognized signer address kind")
}

func renderMultiSignature(signature types.MultiSignature) string {
	switch {
	case signature.IsEd25519:
		return codec.HexEncodeToString(signature.AsEd25519[:])
	case signature.IsSr25519:
		return codec.HexEncodeToString(signature.AsSr25519[:])
	case signature.IsEcdsa:
		return codec.HexEncodeToString(signature.AsEcdsa[:])
	}
	return ""
}

// decodeEra expands the packed two-byte mortal era into the period it
// spans and the phase offset within that period.
func decodeEra(era types.ExtrinsicEra) sidecar.Era {
	if !era.IsMortalEra {
		return sidecar.Era{IsImmortal: true}
	}
	encoded := uint64(era.AsMortalEra.First) | uint64(era.AsMortalEra.Second)<<8
	period := uint64(2) << (encoded % (1 << 4))
	quantizeFactor := period >> 12
	if quantizeFactor < 1 {
		quantizeFactor = 1
	}
	phase := (encoded >> 4) * quantizeFactor
	return sidecar.Era{IsMortal: true, Period: period, Phase: phase}
}

package gateway_test

import (
	"strings"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/cordialsys/substrate-sidecar/errors"
	"github.com/cordialsys/substrate-sidecar/gateway"
	"github.com/cordialsys/substrate-sidecar/testutil"
	"github.com/stretchr/testify/require"
)

// extrinsicBytes puts the compact length prefix in front of a payload,
// the framing the node uses on the wire.
func extrinsicBytes(t *testing.T, payloadHex string) []byte {
	t.Helper()
	payload := testutil.FromHex("0x" + payloadHex)
	prefix, err := codec.Encode(types.NewUCompactFromUInt(uint64(len(payload))))
	require.NoError(t, err)
	return append(prefix, payload...)
}

// A V4 signed transfer: Id(alice) signer, sr25519 signature, nonce 1,
// no tip, era as given.
func signedTransferPayload(eraHex string) string {
	return "84" + "00" + aliceHex + "01" + strings.Repeat("aa", 64) + eraHex + "04" + "00" +
		"0503" + "00" + aliceHex + "e5c0"
}

func TestDecodeExtrinsicUnsigned(t *testing.T) {
	require := require.New(t)
	walker := testWalker(t)

	raw := extrinsicBytes(t, "04"+"0503"+"00"+aliceHex+"e5c0")
	ext, err := gateway.DecodeExtrinsic(walker, raw, 42)
	require.NoError(err)

	require.Equal("Balances", ext.Call.Method.Pallet)
	require.Equal("transfer_keep_alive", ext.Call.Method.Method)
	require.False(ext.Signed())
	require.Nil(ext.Signature)
	require.Nil(ext.Tip)
	require.False(ext.Era.IsMortal)
	require.Equal(len(raw), ext.Length)
	require.NotEqual(types.Hash{}, ext.Hash)
}

func TestDecodeExtrinsicSigned(t *testing.T) {
	require := require.New(t)
	walker := testWalker(t)

	raw := extrinsicBytes(t, signedTransferPayload("5500"))
	ext, err := gateway.DecodeExtrinsic(walker, raw, 42)
	require.NoError(err)

	require.True(ext.Signed())
	require.Equal(aliceAddress, ext.Signature.Signer)
	require.Equal("0x"+strings.Repeat("aa", 64), ext.Signature.Signature)
	require.True(ext.Era.IsMortal)
	require.EqualValues(64, ext.Era.Period)
	require.EqualValues(5, ext.Era.Phase)
	require.EqualValues(1, ext.Nonce)
	require.NotNil(ext.Tip)
	require.EqualValues(0, ext.Tip.Uint64())
	require.Equal(len(raw), ext.Length)

	// Identity hashing is stable and covers the whole encoding.
	again, err := gateway.DecodeExtrinsic(walker, raw, 42)
	require.NoError(err)
	require.Equal(ext.Hash, again.Hash)

	unsigned, err := gateway.DecodeExtrinsic(walker, extrinsicBytes(t, "04"+"0503"+"00"+aliceHex+"e5c0"), 42)
	require.NoError(err)
	require.NotEqual(ext.Hash, unsigned.Hash)
}

func TestDecodeExtrinsicEras(t *testing.T) {
	walker := testWalker(t)

	vectors := []struct {
		name     string
		eraHex   string
		immortal bool
		period   uint64
		phase    uint64
	}{
		{name: "immortal", eraHex: "00", immortal: true},
		{name: "period 64 phase 5", eraHex: "5500", period: 64, phase: 5},
		{name: "period 4096 phase 0", eraHex: "0b00", period: 4096, phase: 0},
		{name: "quantized long period", eraHex: "4e9c", period: 32768, phase: 20000},
	}
	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			require := require.New(t)
			raw := extrinsicBytes(t, signedTransferPayload(v.eraHex))
			ext, err := gateway.DecodeExtrinsic(walker, raw, 42)
			require.NoError(err)
			if v.immortal {
				require.True(ext.Era.IsImmortal)
				require.False(ext.Era.IsMortal)
				return
			}
			require.True(ext.Era.IsMortal)
			require.Equal(v.period, ext.Era.Period)
			require.Equal(v.phase, ext.Era.Phase)
		})
	}
}

func TestDecodeExtrinsicSignerPrefix(t *testing.T) {
	require := require.New(t)
	walker := testWalker(t)

	raw := extrinsicBytes(t, signedTransferPayload("5500"))
	ext, err := gateway.DecodeExtrinsic(walker, raw, 0)
	require.NoError(err)
	// Alice under the polkadot prefix.
	require.Equal("15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5", ext.Signature.Signer)
}

func TestDecodeExtrinsicErrors(t *testing.T) {
	walker := testWalker(t)

	t.Run("garbage bytes", func(t *testing.T) {
		require := require.New(t)
		_, err := gateway.DecodeExtrinsic(walker, testutil.FromHex("0x00"), 42)
		require.Error(err)
		require.Equal(errors.MalformedExtrinsic, errors.StatusOf(err))
	})

	t.Run("well-formed frame with an unknown call", func(t *testing.T) {
		require := require.New(t)
		_, err := gateway.DecodeExtrinsic(walker, extrinsicBytes(t, "046300"), 42)
		require.Error(err)
		require.Equal(errors.MalformedCall, errors.StatusOf(err))
	})
}

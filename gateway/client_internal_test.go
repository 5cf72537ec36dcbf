package gateway

import (
	goerrors "errors"
	"strings"
	"testing"

	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/stretchr/testify/require"
)

func TestParseDigestLog(t *testing.T) {
	vectors := []struct {
		name    string
		encoded string
		want    sidecar.DigestLog
	}{
		{
			name:    "babe pre-runtime",
			encoded: "0x06424142450402",
			want:    sidecar.DigestLog{Type: "PreRuntime", Index: 6, Value: []string{"0x42414245", "0x02"}},
		},
		{
			name:    "grandpa consensus",
			encoded: "0x0446524e4b0401",
			want:    sidecar.DigestLog{Type: "Consensus", Index: 4, Value: []string{"0x46524e4b", "0x01"}},
		},
		{
			name:    "seal",
			encoded: "0x054241424510deadbeef",
			want:    sidecar.DigestLog{Type: "Seal", Index: 5, Value: []string{"0x42414245", "0xdeadbeef"}},
		},
		{
			name:    "other",
			encoded: "0x000839ff",
			want:    sidecar.DigestLog{Type: "Other", Index: 0, Value: []string{"0x39ff"}},
		},
		{
			name:    "runtime environment updated",
			encoded: "0x08",
			want:    sidecar.DigestLog{Type: "RuntimeEnvironmentUpdated", Index: 8, Value: []string{}},
		},
		{
			name:    "changes trie root",
			encoded: "0x02" + strings.Repeat("cd", 32),
			want:    sidecar.DigestLog{Type: "ChangesTrieRoot", Index: 2, Value: []string{"0x" + strings.Repeat("cd", 32)}},
		},
		{
			name:    "unknown variant keeps the raw log",
			encoded: "0x2a0102",
			want:    sidecar.DigestLog{Type: "Other", Index: 0x2a, Value: []string{"0x2a0102"}},
		},
		{
			name:    "undecodable hex keeps the raw log",
			encoded: "zz",
			want:    sidecar.DigestLog{Type: "Other", Index: 0, Value: []string{"zz"}},
		},
		{
			name:    "truncated consensus payload keeps the body",
			encoded: "0x0642414245ff",
			want:    sidecar.DigestLog{Type: "PreRuntime", Index: 6, Value: []string{"0x42414245ff"}},
		},
	}
	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			require.Equal(t, v.want, parseDigestLog(v.encoded))
		})
	}
}

func TestParseHexNumber(t *testing.T) {
	require := require.New(t)

	number, err := parseHexNumber("0x2a")
	require.NoError(err)
	require.EqualValues(42, number)

	number, err = parseHexNumber("0xad3067")
	require.NoError(err)
	require.EqualValues(11350119, number)

	_, err = parseHexNumber("forty-two")
	require.Error(err)
}

type fakeRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func (e *fakeRPCError) Error() string { return e.Message }

func TestRpcErrorDetail(t *testing.T) {
	require := require.New(t)

	detailed := rpcErrorDetail(&fakeRPCError{
		Code:    4003,
		Message: "Client error",
		Data:    "Execution failed: Invalid transaction",
	})
	require.Contains(detailed.Error(), "Client error")
	require.Contains(detailed.Error(), "Execution failed")
	require.Contains(detailed.Error(), "4003")

	plain := goerrors.New("connection refused")
	require.Equal(plain, rpcErrorDetail(plain))
}

package sidecar_test

import (
	"encoding/json"

	. "github.com/cordialsys/substrate-sidecar"
)

func (s *SidecarTestSuite) TestEraJSON() {
	require := s.Require()

	bz, err := json.Marshal(Era{IsMortal: true, Period: 64, Phase: 38})
	require.NoError(err)
	require.JSONEq(`{"mortalEra":["64","38"]}`, string(bz))

	bz, err = json.Marshal(Era{IsImmortal: true})
	require.NoError(err)
	require.JSONEq(`{"immortalEra":"0x00"}`, string(bz))

	// unsigned extrinsics leave the zero value, which renders immortal
	bz, err = json.Marshal(Era{})
	require.NoError(err)
	require.JSONEq(`{"immortalEra":"0x00"}`, string(bz))
}

func (s *SidecarTestSuite) TestExtrinsicFlattensCall() {
	require := s.Require()

	nonce := NewAmountFromUint64(7)
	tip := NewAmountFromUint64(0)
	weight := NewAmountFromUint64(399480000)
	fee := NewAmountFromStr("150000000")
	ext := &Extrinsic{
		Call: &DecodedCall{
			Method: CallMethod{Pallet: "balances", Method: "transfer_keep_alive"},
			Args: []DecodedArg{
				{Name: "dest", Value: NewDecodedValue("14ics2eZb9rWM3RKyEZUjBNRtSPVMvdHuJZy1e8aLTemW7Yx")},
				{Name: "value", Value: NewDecodedValue("1000000000000")},
			},
		},
		Signature: &SignaturePayload{
			Signer:    "1a1LcBX6hGPKg5aQ6DXZpAHCCzWjckhea4sz3P1PvL3oc4F",
			Signature: "0xdeadbeef",
		},
		Nonce:   &nonce,
		Tip:     &tip,
		Hash:    "0x2a2a2a",
		Info:    &ExtrinsicInfo{Weight: &weight, Class: "normal", PartialFee: &fee},
		Era:     Era{IsMortal: true, Period: 64, Phase: 38},
		Events:  []Event{},
		Success: true,
		PaysFee: true,
	}

	bz, err := json.Marshal(ext)
	require.NoError(err)

	var view map[string]interface{}
	require.NoError(json.Unmarshal(bz, &view))

	// the call folds into the extrinsic, no nested "call" key
	require.NotContains(view, "call")
	method := view["method"].(map[string]interface{})
	require.Equal("balances", method["pallet"])
	require.Equal("transfer_keep_alive", method["method"])
	args := view["args"].(map[string]interface{})
	require.Equal("1000000000000", args["value"])

	require.Equal("7", view["nonce"])
	require.Equal("0", view["tip"])
	info := view["info"].(map[string]interface{})
	require.Equal("150000000", info["partialFee"])
	require.Equal(true, view["success"])
	require.NotContains(view, "docs")
}

func (s *SidecarTestSuite) TestExtrinsicWithoutCallStillRenders() {
	require := s.Require()

	ext := &Extrinsic{Hash: "0x00", Events: []Event{}}
	bz, err := json.Marshal(ext)
	require.NoError(err)

	var view map[string]interface{}
	require.NoError(json.Unmarshal(bz, &view))
	require.Equal(map[string]interface{}{"pallet": "", "method": ""}, view["method"])
	require.Equal(map[string]interface{}{}, view["args"])
	require.Nil(view["signature"])
}

func (s *SidecarTestSuite) TestEventDataIsPositional() {
	require := s.Require()

	event := Event{
		Method: CallMethod{Pallet: "balances", Method: "Transfer"},
		Fields: []EventField{
			{Name: "from", Value: "1a1LcBX6hGPKg5aQ6DXZpAHCCzWjckhea4sz3P1PvL3oc4F"},
			{Name: "to", Value: "14ics2eZb9rWM3RKyEZUjBNRtSPVMvdHuJZy1e8aLTemW7Yx"},
			{Name: "amount", Value: "1000000000000"},
		},
	}

	bz, err := json.Marshal(event)
	require.NoError(err)
	require.JSONEq(
		`{"method":{"pallet":"balances","method":"Transfer"},`+
			`"data":["1a1LcBX6hGPKg5aQ6DXZpAHCCzWjckhea4sz3P1PvL3oc4F",`+
			`"14ics2eZb9rWM3RKyEZUjBNRtSPVMvdHuJZy1e8aLTemW7Yx","1000000000000"]}`,
		string(bz),
	)

	from, ok := event.Field("from")
	require.True(ok)
	require.Equal("1a1LcBX6hGPKg5aQ6DXZpAHCCzWjckhea4sz3P1PvL3oc4F", from)
	_, ok = event.Field("missing")
	require.False(ok)

	amount, ok := event.FieldAt(2)
	require.True(ok)
	require.Equal("1000000000000", amount)
	_, ok = event.FieldAt(3)
	require.False(ok)
}

func (s *SidecarTestSuite) TestHeaderRendersEmptyLogs() {
	require := s.Require()

	raw := &RawBlock{Number: 42}
	header := raw.Header()
	require.NotNil(header.Logs)
	require.Empty(header.Logs)

	bz, err := json.Marshal(header)
	require.NoError(err)
	require.Contains(string(bz), `"logs":[]`)
	require.Contains(string(bz), `"number":"42"`)
}

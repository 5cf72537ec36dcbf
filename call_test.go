package sidecar_test

import (
	"encoding/json"

	. "github.com/cordialsys/substrate-sidecar"
)

func (s *SidecarTestSuite) TestCallArgsKeepDeclarationOrder() {
	require := s.Require()

	// "real" sorts after "call"; the rendered object must keep the
	// declared order anyway.
	call := &Call{
		Method: CallMethod{Pallet: "proxy", Method: "proxy"},
		Args: []CallArg{
			{Name: "real", Value: NewCallValue("14ics2eZb9rWM3RKyEZUjBNRtSPVMvdHuJZy1e8aLTemW7Yx")},
			{Name: "forceProxyType", Value: NewCallValue(nil)},
			{Name: "call", Value: NewNestedCall(&Call{
				Method: CallMethod{Pallet: "system", Method: "remark"},
				Args: []CallArg{
					{Name: "remark", Value: NewCallValue("0x68690a")},
				},
			})},
		},
	}

	bz, err := json.Marshal(call)
	require.NoError(err)
	require.Equal(
		`{"method":{"pallet":"proxy","method":"proxy"},`+
			`"args":{"real":"14ics2eZb9rWM3RKyEZUjBNRtSPVMvdHuJZy1e8aLTemW7Yx",`+
			`"forceProxyType":null,`+
			`"call":{"method":{"pallet":"system","method":"remark"},"args":{"remark":"0x68690a"}}}}`,
		string(bz),
	)
}

func (s *SidecarTestSuite) TestBatchCallsRenderAsArray() {
	require := s.Require()

	remark := func(payload string) *Call {
		return &Call{
			Method: CallMethod{Pallet: "system", Method: "remark"},
			Args: []CallArg{
				{Name: "remark", Value: NewCallValue(payload)},
			},
		}
	}
	batch := &Call{
		Method: CallMethod{Pallet: "utility", Method: "batchAll"},
		Args: []CallArg{
			{Name: "calls", Value: NewNestedCalls([]*Call{remark("0x01"), remark("0x02")})},
		},
	}

	bz, err := json.Marshal(batch)
	require.NoError(err)

	var view struct {
		Args struct {
			Calls []struct {
				Method CallMethod `json:"method"`
			} `json:"calls"`
		} `json:"args"`
	}
	require.NoError(json.Unmarshal(bz, &view))
	require.Len(view.Args.Calls, 2)
	require.Equal("system", view.Args.Calls[0].Method.Pallet)
	require.Equal("remark", view.Args.Calls[1].Method.Method)
}

func (s *SidecarTestSuite) TestCallDocsOnlyWhenPresent() {
	require := s.Require()

	call := &Call{
		Method: CallMethod{Pallet: "system", Method: "remark"},
		Args: []CallArg{
			{Name: "remark", Value: NewCallValue("0x00")},
		},
	}
	bz, err := json.Marshal(call)
	require.NoError(err)
	require.NotContains(string(bz), "docs")

	call.Docs = []string{"Make some on-chain remark."}
	bz, err = json.Marshal(call)
	require.NoError(err)
	require.Contains(string(bz), `"docs":["Make some on-chain remark."]`)
}

func (s *SidecarTestSuite) TestDecodedCallArgsJSON() {
	require := s.Require()

	decoded := &DecodedCall{
		Method: CallMethod{Pallet: "balances", Method: "transfer_keep_alive"},
		Args: []DecodedArg{
			{Name: "dest", Value: NewDecodedValue(map[string]interface{}{"Id": "14ics2eZb9rWM3RKyEZUjBNRtSPVMvdHuJZy1e8aLTemW7Yx"})},
			{Name: "value", Value: NewDecodedValue("1000000000000")},
		},
	}

	argsBz, err := decoded.ArgsJSON()
	require.NoError(err)
	require.JSONEq(
		`{"dest":{"Id":"14ics2eZb9rWM3RKyEZUjBNRtSPVMvdHuJZy1e8aLTemW7Yx"},"value":"1000000000000"}`,
		string(argsBz),
	)
}

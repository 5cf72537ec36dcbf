package sidecar

import (
	"encoding/json"
	"strconv"
)

// BlockHeader is the rendered header of one block. Hashes are 0x-prefixed
// hex; the height renders as a decimal string so downstream JSON consumers
// never see a number wider than their native integer.
type BlockHeader struct {
	Number         uint64      `json:"number,string"`
	Hash           string      `json:"hash"`
	ParentHash     string      `json:"parentHash"`
	StateRoot      string      `json:"stateRoot"`
	ExtrinsicsRoot string      `json:"extrinsicsRoot"`
	Logs           []DigestLog `json:"logs"`
}

// DigestLog is one entry of the header digest.
type DigestLog struct {
	Type  string   `json:"type"`
	Index uint8    `json:"index,string"`
	Value []string `json:"value"`
}

// Block is the fully assembled view of one block: header, per-extrinsic
// calls/events/fees, and the event groups the runtime emits outside any
// extrinsic. Finalized is absent from the JSON form when nil.
type Block struct {
	BlockHeader
	OnInitialize EventGroup   `json:"onInitialize"`
	Extrinsics   []*Extrinsic `json:"extrinsics"`
	OnFinalize   EventGroup   `json:"onFinalize"`
	Finalized    *bool        `json:"finalized,omitempty"`
}

// EventGroup holds the events of one non-extrinsic execution phase.
type EventGroup struct {
	Events []Event `json:"events"`
}

// Extrinsic is one transacted unit of a block: the decoded call, the
// signature payload when signed, the events it emitted, and the fee
// information when it could be computed.
type Extrinsic struct {
	Call      *DecodedCall
	Signature *SignaturePayload
	Nonce     *Amount
	Tip       *Amount
	Hash      string
	Info      *ExtrinsicInfo
	Era       Era
	Events    []Event
	Success   bool
	PaysFee   bool
}

// SignaturePayload carries the signer in SS58 form and the raw signature
// as 0x-prefixed hex.
type SignaturePayload struct {
	Signature string `json:"signature"`
	Signer    string `json:"signer"`
}

// ExtrinsicInfo is the dispatch and fee information of one extrinsic.
// Either PartialFee or Error is set; Error carries the marker for
// runtimes whose fee constants are not exposed.
type ExtrinsicInfo struct {
	Weight     *Amount `json:"weight,omitempty"`
	Class      string  `json:"class,omitempty"`
	PartialFee *Amount `json:"partialFee,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Era is the validity window of a signed extrinsic.
type Era struct {
	IsImmortal bool
	IsMortal   bool
	Period     uint64
	Phase      uint64
}

var _ json.Marshaler = Era{}

func (e Era) MarshalJSON() ([]byte, error) {
	if e.IsMortal {
		return json.Marshal(map[string][]string{
			"mortalEra": {
				strconv.FormatUint(e.Period, 10),
				strconv.FormatUint(e.Phase, 10),
			},
		})
	}
	return json.Marshal(map[string]string{"immortalEra": "0x00"})
}

var _ json.Marshaler = &Extrinsic{}

// The top-level call flattens into the extrinsic: its method and args
// render as siblings of the signature fields, matching how the chain
// itself presents extrinsics.
func (e *Extrinsic) MarshalJSON() ([]byte, error) {
	method := CallMethod{}
	args := json.RawMessage(`{}`)
	var docs []string
	if e.Call != nil {
		var err error
		method = e.Call.Method
		args, err = e.Call.ArgsJSON()
		if err != nil {
			return nil, err
		}
		docs = e.Call.Docs
	}
	view := struct {
		Method    CallMethod        `json:"method"`
		Signature *SignaturePayload `json:"signature"`
		Nonce     *Amount           `json:"nonce"`
		Args      json.RawMessage   `json:"args"`
		Tip       *Amount           `json:"tip"`
		Hash      string            `json:"hash"`
		Info      *ExtrinsicInfo    `json:"info"`
		Era       Era               `json:"era"`
		Events    []Event           `json:"events"`
		Success   bool              `json:"success"`
		PaysFee   bool              `json:"paysFee"`
		Docs      []string          `json:"docs,omitempty"`
	}{
		Method:    method,
		Signature: e.Signature,
		Nonce:     e.Nonce,
		Args:      args,
		Tip:       e.Tip,
		Hash:      e.Hash,
		Info:      e.Info,
		Era:       e.Era,
		Events:    e.Events,
		Success:   e.Success,
		PaysFee:   e.PaysFee,
		Docs:      docs,
	}
	return json.Marshal(view)
}

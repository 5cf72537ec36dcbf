package blocks

import (
	"math/big"
	"strings"

	sidecar "github.com/cordialsys/substrate-sidecar"
)

// dispatchOutcome is what the runtime reported about one extrinsic's
// execution, dug out of its System.ExtrinsicSuccess/ExtrinsicFailed
// event: the consumed weight, the dispatch class, and whether the
// extrinsic pays fees at all.
type dispatchOutcome struct {
	found   bool
	success bool
	weight  *big.Int
	class   string
	paysFee bool
}

// dispatchOutcomeOf scans an extrinsic's paired events for the system
// dispatch event. Extrinsics without one (inherents on some runtimes)
// report found=false and carry no fee information.
func dispatchOutcomeOf(events []sidecar.Event) dispatchOutcome {
	outcome := dispatchOutcome{paysFee: true}
	for i := range events {
		event := &events[i]
		if !strings.EqualFold(event.Method.Pallet, "System") {
			continue
		}
		var info interface{}
		switch event.Method.Method {
		case "ExtrinsicSuccess":
			outcome.found = true
			outcome.success = true
			info = dispatchInfoField(event, 0)
		case "ExtrinsicFailed":
			// Fields are (dispatch_error, dispatch_info).
			outcome.found = true
			outcome.success = false
			info = dispatchInfoField(event, 1)
		default:
			continue
		}
		outcome.weight = digWeight(info)
		outcome.class = digClass(info)
		outcome.paysFee = digPaysFee(info)
	}
	return outcome
}

func dispatchInfoField(event *sidecar.Event, position int) interface{} {
	if value, ok := event.Field("dispatch_info"); ok {
		return value
	}
	value, _ := event.FieldAt(position)
	return value
}

func digWeight(info interface{}) *big.Int {
	fields, ok := info.(map[string]interface{})
	if !ok {
		return nil
	}
	return weightRefTime(fields["weight"])
}

func digClass(info interface{}) string {
	fields, ok := info.(map[string]interface{})
	if !ok {
		return ""
	}
	switch class := fields["class"].(type) {
	case string:
		return class
	case map[string]interface{}:
		// Some decoders keep fieldless variants wrapped in a map.
		if len(class) == 1 {
			for name := range class {
				return name
			}
		}
	}
	return ""
}

// digPaysFee defaults to true: only an explicit "No" from the runtime
// exempts an extrinsic from fees.
func digPaysFee(info interface{}) bool {
	fields, ok := info.(map[string]interface{})
	if !ok {
		return true
	}
	switch pays := fields["pays_fee"].(type) {
	case string:
		return !strings.EqualFold(pays, "No")
	case bool:
		return pays
	case map[string]interface{}:
		if len(pays) == 1 {
			for name := range pays {
				return !strings.EqualFold(name, "No")
			}
		}
		return true
	default:
		return true
	}
}

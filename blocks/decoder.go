package blocks

import (
	"strings"
	"unicode"

	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/errors"
)

// decodeFrame pairs one call still to be expanded with the slot its
// decoded form lands in. Slots are allocated before the frame is pushed,
// so sibling order in the output never depends on traversal order.
type decodeFrame struct {
	src *sidecar.Call
	dst *sidecar.DecodedCall
}

// DecodeCall expands a call tree into its decoded form: every argument
// name normalized to snake_case and every nested call (or sequence of
// calls) recursively decoded in place. Traversal runs on an explicit
// stack, so batch-of-batch nesting is bounded by memory rather than by
// goroutine stack growth.
//
// Decoding is total: it either returns a fully expanded tree or fails
// with a MalformedCall error when a call is missing its method identity
// or a nested slot holds a placeholder instead of a call.
func DecodeCall(call *sidecar.Call) (*sidecar.DecodedCall, error) {
	root := &sidecar.DecodedCall{}
	stack := []decodeFrame{{src: call, dst: root}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		src := frame.src
		if src == nil {
			return nil, errors.MalformedCallf("expected a call, found a placeholder")
		}
		if src.Method.Pallet == "" || src.Method.Method == "" {
			return nil, errors.MalformedCallf("call is missing its pallet or method identity")
		}

		dst := frame.dst
		dst.Method = src.Method
		dst.Docs = src.Docs
		dst.Args = make([]sidecar.DecodedArg, len(src.Args))
		for i, arg := range src.Args {
			name := ToSnakeCase(arg.Name)
			switch {
			case arg.Value.IsCall:
				child := &sidecar.DecodedCall{}
				dst.Args[i] = sidecar.DecodedArg{Name: name, Value: sidecar.NewDecodedCallValue(child)}
				stack = append(stack, decodeFrame{src: arg.Value.AsCall, dst: child})
			case arg.Value.IsCalls:
				children := make([]*sidecar.DecodedCall, len(arg.Value.AsCalls))
				for j, nested := range arg.Value.AsCalls {
					children[j] = &sidecar.DecodedCall{}
					stack = append(stack, decodeFrame{src: nested, dst: children[j]})
				}
				dst.Args[i] = sidecar.DecodedArg{Name: name, Value: sidecar.NewDecodedCallsValue(children)}
			default:
				dst.Args[i] = sidecar.DecodedArg{Name: name, Value: sidecar.NewDecodedValue(arg.Value.AsValue)}
			}
		}
	}
	return root, nil
}

// ToSnakeCase rewrites a camelCase or PascalCase identifier into
// snake_case, the canonical on-chain naming. The transform is purely
// lexical: names already in snake_case pass through unchanged, and runs
// of capitals stay one word ("maxTXSize" becomes "max_tx_size").
func ToSnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 && boundaryBefore(runes, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// boundaryBefore reports whether a word boundary sits before the capital
// at position i: either the previous rune is lowercase or a digit, or a
// run of capitals ends here because the next rune is lowercase.
func boundaryBefore(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

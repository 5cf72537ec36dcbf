package blocks

import (
	"context"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/errors"
	"github.com/sirupsen/logrus"
)

// FeeUnsupportedMarker is recorded on an extrinsic's fee field when the
// runtime that executed it does not expose the fee constants.
const FeeUnsupportedMarker = "fee calculation not supported"

var (
	// u128Ceiling is the saturation bound of every fee partial, matching
	// the chain's own u128 saturating arithmetic.
	u128Ceiling   = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	perbillScale  = big.NewInt(1_000_000_000)
	fixedPointOne = exp10(18)
)

func exp10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// Coefficient is one term of the weight-to-fee polynomial as the runtime
// declares it: an integer part, a fractional part in parts per 10^9, a
// sign, and the power of weight it multiplies. Max, when set, clips the
// term; the u128 ceiling applies either way.
type Coefficient struct {
	Integer  *big.Int
	Frac     *big.Int
	Negative bool
	Degree   uint
	Max      *big.Int
}

// FeeModel holds the fee constants of the runtime that produced one
// block, read at its parent hash. It lives for a single fetch; constants
// may legitimately differ at other points in chain history, so models are
// never shared across fetches.
//
// A model built against a runtime that does not expose the per-byte fee
// is still usable: every PartialFee call reports FeeUnavailable instead
// of failing the fetch.
type FeeModel struct {
	at         types.Hash
	perByteFee *big.Int
	baseWeight *big.Int
	multiplier *big.Int
	coeffs     []Coefficient
}

// NewFeeModel builds a model from explicit constants. The chain-driven
// path is BuildFeeModel; this constructor exists for fee replay against
// known constants.
func NewFeeModel(perByteFee, baseWeight, multiplier *big.Int, coeffs []Coefficient) *FeeModel {
	if multiplier == nil {
		multiplier = fixedPointOne
	}
	return &FeeModel{
		perByteFee: perByteFee,
		baseWeight: baseWeight,
		multiplier: multiplier,
		coeffs:     coeffs,
	}
}

// BuildFeeModel reads the fee constants of the runtime active at the
// given block: the per-byte transaction fee, the extrinsic base weight,
// the weight-to-fee coefficient vector, and the stored fee multiplier.
// Absent constants degrade the model rather than failing it; only
// transport errors are returned.
func BuildFeeModel(ctx context.Context, gw Gateway, at types.Hash) (*FeeModel, error) {
	model := &FeeModel{at: at, multiplier: fixedPointOne}

	perByte, ok, err := gw.RuntimeConstant(ctx, "TransactionPayment", "TransactionByteFee", at)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Early runtimes kept the byte fee on the balances pallet.
		perByte, ok, err = gw.RuntimeConstant(ctx, "Balances", "TransactionByteFee", at)
		if err != nil {
			return nil, err
		}
	}
	if ok {
		model.perByteFee = bigOf(perByte)
	}
	if model.perByteFee == nil {
		logrus.WithField("block", at.Hex()).Warn("per-byte fee constant not exposed, fees degraded")
		return model, nil
	}

	base, ok, err := gw.RuntimeConstant(ctx, "System", "ExtrinsicBaseWeight", at)
	if err != nil {
		return nil, err
	}
	if ok {
		model.baseWeight = weightRefTime(base)
	} else {
		weights, ok, err := gw.RuntimeConstant(ctx, "System", "BlockWeights", at)
		if err != nil {
			return nil, err
		}
		if ok {
			model.baseWeight = baseExtrinsicWeight(weights)
		}
	}

	coeffs, ok, err := gw.RuntimeConstant(ctx, "TransactionPayment", "WeightToFee", at)
	if err != nil {
		return nil, err
	}
	if ok {
		model.coeffs = coefficientsOf(coeffs)
	}

	multiplier, ok, err := gw.FeeMultiplier(ctx, at)
	if err != nil {
		return nil, err
	}
	if ok {
		model.multiplier = multiplier.Int()
	}
	return model, nil
}

// Available reports whether the model can compute fees at all.
func (m *FeeModel) Available() bool {
	return m != nil && m.perByteFee != nil
}

// PartialFee computes the inclusion fee of one extrinsic, excluding tip:
//
//	weightToFee(baseWeight) + length*perByteFee + multiplier*weightToFee(weight)/10^18
//
// All arithmetic is arbitrary-precision with floor division and u128
// saturation, reproducing the chain's own computation bit for bit. The
// result is exact; callers that need wire form render it as a decimal
// string. Returns a FeeUnavailable error on a degraded model.
func (m *FeeModel) PartialFee(weight *big.Int, encodedLength uint64) (sidecar.Amount, error) {
	if !m.Available() {
		return sidecar.Amount{}, errors.FeeUnavailablef(FeeUnsupportedMarker)
	}
	baseFee := m.weightToFee(m.baseWeight)
	lengthFee := new(big.Int).Mul(new(big.Int).SetUint64(encodedLength), m.perByteFee)

	adjustedWeightFee := new(big.Int).Mul(m.multiplier, m.weightToFee(weight))
	adjustedWeightFee.Div(adjustedWeightFee, fixedPointOne)

	fee := new(big.Int).Add(baseFee, lengthFee)
	fee.Add(fee, adjustedWeightFee)
	return sidecar.NewAmountFromBigInt(saturated(fee)), nil
}

// weightToFee evaluates the coefficient polynomial at a weight. Each term
// is w^degree*integer + (w^degree*frac)/10^9, saturated to the u128
// ceiling (or the term's own cap); negative terms subtract and the sum
// clamps at zero.
func (m *FeeModel) weightToFee(weight *big.Int) *big.Int {
	total := new(big.Int)
	if weight == nil {
		return total
	}
	for _, c := range m.coeffs {
		pow := saturated(new(big.Int).Exp(weight, big.NewInt(int64(c.Degree)), nil))
		term := new(big.Int)
		if c.Integer != nil {
			term = saturated(new(big.Int).Mul(pow, c.Integer))
		}
		if c.Frac != nil && c.Frac.Sign() > 0 {
			frac := new(big.Int).Mul(pow, c.Frac)
			frac.Div(frac, perbillScale)
			term = saturated(term.Add(term, frac))
		}
		if c.Max != nil && term.Cmp(c.Max) > 0 {
			term = new(big.Int).Set(c.Max)
		}
		if c.Negative {
			total.Sub(total, term)
		} else {
			total.Add(total, term)
		}
	}
	if total.Sign() < 0 {
		return new(big.Int)
	}
	return saturated(total)
}

func saturated(v *big.Int) *big.Int {
	if v.Cmp(u128Ceiling) > 0 {
		return new(big.Int).Set(u128Ceiling)
	}
	return v
}

// coefficientsOf maps the rendered WeightToFee constant onto the typed
// coefficient vector. Entries whose shape is not recognized are dropped
// with a warning rather than poisoning the polynomial.
func coefficientsOf(value interface{}) []Coefficient {
	list, ok := value.([]interface{})
	if !ok {
		logrus.WithField("value", value).Warn("unexpected weight-to-fee constant shape")
		return nil
	}
	coeffs := make([]Coefficient, 0, len(list))
	for _, entry := range list {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			logrus.WithField("entry", entry).Warn("unexpected weight-to-fee coefficient shape")
			continue
		}
		c := Coefficient{
			Integer: bigOf(fields["coeff_integer"]),
			Frac:    bigOf(fields["coeff_frac"]),
		}
		if degree := bigOf(fields["degree"]); degree != nil {
			c.Degree = uint(degree.Uint64())
		}
		if negative, ok := fields["negative"].(bool); ok {
			c.Negative = negative
		}
		coeffs = append(coeffs, c)
	}
	return coeffs
}

// baseExtrinsicWeight digs the per-extrinsic base weight out of the
// BlockWeights constant, which newer runtimes expose instead of the flat
// ExtrinsicBaseWeight.
func baseExtrinsicWeight(value interface{}) *big.Int {
	weights, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	perClass, ok := weights["per_class"].(map[string]interface{})
	if !ok {
		return nil
	}
	normal, ok := perClass["normal"].(map[string]interface{})
	if !ok {
		return nil
	}
	return weightRefTime(normal["base_extrinsic"])
}

// weightRefTime extracts the computational component of a weight value.
// Older runtimes encode weight as a bare integer; newer ones as a struct
// whose ref_time field carries it.
func weightRefTime(value interface{}) *big.Int {
	if fields, ok := value.(map[string]interface{}); ok {
		return bigOf(fields["ref_time"])
	}
	return bigOf(value)
}

// bigOf widens any integer shape the constant renderer produces.
func bigOf(value interface{}) *big.Int {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v)
	case sidecar.Amount:
		return v.Int()
	case *sidecar.Amount:
		if v == nil {
			return nil
		}
		return v.Int()
	case uint64:
		return new(big.Int).SetUint64(v)
	case uint32:
		return new(big.Int).SetUint64(uint64(v))
	case int64:
		return big.NewInt(v)
	case int:
		return big.NewInt(int64(v))
	default:
		return nil
	}
}

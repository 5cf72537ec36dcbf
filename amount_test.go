package sidecar_test

import (
	"encoding/json"
	"math/big"

	. "github.com/cordialsys/substrate-sidecar"
	"github.com/shopspring/decimal"
)

func (s *SidecarTestSuite) TestNewAmountFromUint64() {
	require := s.Require()
	amount := NewAmountFromUint64(123)
	require.NotNil(amount)
	require.Equal(amount.Uint64(), uint64(123))
	require.Equal(amount.String(), "123")
}

func (s *SidecarTestSuite) TestNewAmountFromStr() {
	require := s.Require()
	amount := NewAmountFromStr("10")
	require.EqualValues(amount.Uint64(), 10)

	amount = NewAmountFromStr("10.1")
	require.EqualValues(amount.Uint64(), 0)

	amount = NewAmountFromStr("0x10")
	require.EqualValues(amount.Uint64(), 16)
}

func (s *SidecarTestSuite) TestAmountArithmetic() {
	require := s.Require()
	fee := NewAmountFromUint64(1000)
	tip := NewAmountFromUint64(250)

	sum := fee.Add(&tip)
	require.Equal(sum.String(), "1250")

	diff := sum.Sub(&tip)
	require.Zero(diff.Cmp(&fee))

	product := fee.Mul(&tip)
	require.Equal(product.String(), "250000")

	quotient := product.Div(&fee)
	require.Zero(quotient.Cmp(&tip))

	// operands stay untouched
	require.Equal(fee.String(), "1000")
	require.Equal(tip.String(), "250")

	zero := NewAmountFromUint64(0)
	require.True(zero.IsZero())
	require.False(fee.IsZero())
}

func (s *SidecarTestSuite) TestAmountJSONKeepsWideValues() {
	require := s.Require()

	// wider than any float64 mantissa
	fee := NewAmountFromStr("340282366920938463463374607431768211455")
	bz, err := json.Marshal(fee)
	require.NoError(err)
	require.Equal(`"340282366920938463463374607431768211455"`, string(bz))

	var back Amount
	require.NoError(json.Unmarshal(bz, &back))
	require.Zero(fee.Cmp(&back))

	require.Error(back.UnmarshalJSON([]byte(`"one planck"`)))
}

func (s *SidecarTestSuite) TestToHuman() {
	require := s.Require()

	plancks := NewAmountFromUint64(12_500_000_000)
	require.Equal("1.25", plancks.ToHuman(10).String())

	fromBig := NewAmountFromBigInt(big.NewInt(1))
	require.Equal("0.0000000001", fromBig.ToHuman(10).String())
}

func (s *SidecarTestSuite) TestAmountHumanReadable() {
	require := s.Require()
	amountDec, _ := decimal.NewFromString("10.3")
	amount := AmountHumanReadable(amountDec)
	require.NotNil(amount)
	require.Equal(amount.String(), "10.3")
}

func (s *SidecarTestSuite) TestNewAmountHumanReadableFromStr() {
	require := s.Require()
	amount, err := NewAmountHumanReadableFromStr("10.3")
	require.NoError(err)
	require.NotNil(amount)
	require.Equal(amount.String(), "10.3")

	amount, err = NewAmountHumanReadableFromStr("0")
	require.NoError(err)
	require.NotNil(amount)
	require.Equal(amount.String(), "0")

	amount, err = NewAmountHumanReadableFromStr("")
	require.Error(err)
	require.NotNil(amount)
	require.Equal(amount.String(), "0")

	amount, err = NewAmountHumanReadableFromStr("invalid")
	require.Error(err)
	require.NotNil(amount)
	require.Equal(amount.String(), "0")
}

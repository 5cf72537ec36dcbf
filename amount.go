package sidecar

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Amount is a big integer amount as the chain reports it: plancks for
// balances and fees, picoseconds of ref time for weights. It marshals as
// a decimal string so values past 2^53 survive JSON transport intact.
type Amount big.Int

// AmountHumanReadable is a decimal amount as a human expects it for readability.
type AmountHumanReadable decimal.Decimal

func (amount Amount) Bytes() []byte {
	bigInt := big.Int(amount)
	return bigInt.Bytes()
}

func (amount Amount) String() string {
	bigInt := big.Int(amount)
	return bigInt.String()
}

// Int converts an Amount into *big.Int
func (amount Amount) Int() *big.Int {
	bigInt := big.Int(amount)
	return &bigInt
}

func (amount Amount) Sign() int {
	bigInt := big.Int(amount)
	return bigInt.Sign()
}

// Uint64 converts an Amount into uint64
func (amount Amount) Uint64() uint64 {
	bigInt := big.Int(amount)
	return bigInt.Uint64()
}

// Use the underlying big.Int.Cmp()
func (amount *Amount) Cmp(other *Amount) int {
	return amount.Int().Cmp(other.Int())
}

// Use the underlying big.Int.Add()
func (amount *Amount) Add(x *Amount) Amount {
	sum := new(big.Int)
	sum.Set((*big.Int)(amount))
	return Amount(*sum.Add(sum, x.Int()))
}

// Use the underlying big.Int.Sub()
func (amount *Amount) Sub(x *Amount) Amount {
	diff := new(big.Int)
	diff.Set((*big.Int)(amount))
	return Amount(*diff.Sub(diff, x.Int()))
}

// Use the underlying big.Int.Mul()
func (amount *Amount) Mul(x *Amount) Amount {
	prod := new(big.Int)
	prod.Set((*big.Int)(amount))
	return Amount(*prod.Mul(prod, x.Int()))
}

// Use the underlying big.Int.Div()
func (amount *Amount) Div(x *Amount) Amount {
	quot := new(big.Int)
	quot.Set((*big.Int)(amount))
	return Amount(*quot.Div(quot, x.Int()))
}

var zero = big.NewInt(0)

func (amount *Amount) IsZero() bool {
	return amount.Int().Cmp(zero) == 0
}

func (amount *Amount) ToHuman(decimals int32) AmountHumanReadable {
	dec := decimal.NewFromBigInt(amount.Int(), -decimals)
	return AmountHumanReadable(dec)
}

// NewAmountFromUint64 creates a new Amount from a uint64
func NewAmountFromUint64(u64 uint64) Amount {
	bigInt := new(big.Int).SetUint64(u64)
	return Amount(*bigInt)
}

// NewAmountFromBigInt creates a new Amount from a copy of a *big.Int
func NewAmountFromBigInt(i *big.Int) Amount {
	bigInt := new(big.Int).Set(i)
	return Amount(*bigInt)
}

// NewAmountFromStr creates a new Amount from a string
func NewAmountFromStr(str string) Amount {
	var ok bool
	var bigInt *big.Int
	bigInt, ok = new(big.Int).SetString(str, 0)
	if !ok {
		return NewAmountFromUint64(0)
	}
	return Amount(*bigInt)
}

// NewAmountHumanReadableFromStr creates a new AmountHumanReadable from a string
func NewAmountHumanReadableFromStr(str string) (AmountHumanReadable, error) {
	decimal, err := decimal.NewFromString(str)
	return AmountHumanReadable(decimal), err
}

func (amount AmountHumanReadable) Decimal() decimal.Decimal {
	return decimal.Decimal(amount)
}

func (amount AmountHumanReadable) String() string {
	return decimal.Decimal(amount).String()
}

var _ json.Marshaler = AmountHumanReadable{}
var _ json.Unmarshaler = &AmountHumanReadable{}
var _ yaml.Unmarshaler = &AmountHumanReadable{}
var _ yaml.Marshaler = AmountHumanReadable{}
var _ yaml.IsZeroer = AmountHumanReadable{}

func (b AmountHumanReadable) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

func (b AmountHumanReadable) IsZero() bool {
	return decimal.Decimal(b).IsZero()
}

func (b *AmountHumanReadable) UnmarshalYAML(node *yaml.Node) error {
	value := node.Value
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "\"")
	value = strings.TrimSuffix(value, "\"")
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("invalid decimal amount: %v", err)
	}
	*b = AmountHumanReadable(dec)
	return nil
}

func (b AmountHumanReadable) MarshalJSON() ([]byte, error) {
	return []byte("\"" + b.String() + "\""), nil
}

func (b *AmountHumanReadable) UnmarshalJSON(p []byte) error {
	if string(p) == "null" {
		return nil
	}
	str := strings.Trim(string(p), "\"")
	decimal, err := decimal.NewFromString(str)
	if err != nil {
		return err
	}
	*b = AmountHumanReadable(decimal)
	return nil
}

var _ json.Marshaler = Amount{}
var _ json.Unmarshaler = &Amount{}

func (b Amount) MarshalJSON() ([]byte, error) {
	return []byte("\"" + b.String() + "\""), nil
}

func (b *Amount) UnmarshalJSON(p []byte) error {
	if string(p) == "null" {
		return nil
	}
	str := strings.Trim(string(p), "\"")
	var z big.Int
	_, ok := z.SetString(str, 0)
	if !ok {
		return fmt.Errorf("not a valid big integer: %s", p)
	}
	*b = Amount(z)
	return nil
}

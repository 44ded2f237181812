package state

import (
	"io"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const (
	// ValueScale is the number of decimal places carried by asset values.
	ValueScale = 18

	// StableScale is the number of decimal places carried by stable asset
	// amounts at the external boundary.
	StableScale = 6
)

var (
	// ErrValueOverflow occurs when value arithmetic exceeds 256 bits or a
	// conversion exceeds 64 bits.
	ErrValueOverflow = errors.New("Value overflow")

	// ErrValueUnderflow occurs when a subtraction would go below zero.
	ErrValueUnderflow = errors.New("Value underflow")

	// one whole value unit, 10^18
	valueUnit = uint256.MustFromDecimal("1000000000000000000")

	// conversion between 18 decimal values and 6 decimal stable amounts
	stableUnit = uint256.MustFromDecimal("1000000000000")

	oneHundred = uint256.NewInt(100)
)

// Value is an unsigned fixed point amount with 18 decimal places, the
// precision asset values carry at the external boundary. One whole unit of
// value backs one token.
type Value struct {
	n uint256.Int
}

// NewValue returns a Value of the given number of whole units.
func NewValue(whole uint64) Value {
	var v Value
	v.n.Mul(uint256.NewInt(whole), valueUnit)
	return v
}

// NewValueFromString parses a decimal string of atomic (18 decimal place)
// units.
func NewValueFromString(s string) (Value, error) {
	var v Value

	n, err := uint256.FromDecimal(s)
	if err != nil {
		return v, errors.Wrap(ErrValueOverflow, s)
	}

	v.n = *n
	return v, nil
}

// Add returns v + other, failing on 256 bit overflow.
func (v Value) Add(other Value) (Value, error) {
	var result Value

	_, overflow := result.n.AddOverflow(&v.n, &other.n)
	if overflow {
		return Value{}, ErrValueOverflow
	}

	return result, nil
}

// Sub returns v - other, failing when other exceeds v.
func (v Value) Sub(other Value) (Value, error) {
	var result Value

	_, underflow := result.n.SubOverflow(&v.n, &other.n)
	if underflow {
		return Value{}, ErrValueUnderflow
	}

	return result, nil
}

// MulRate returns floor(v * rate / 100).
func (v Value) MulRate(rate uint32) (Value, error) {
	var product uint256.Int

	_, overflow := product.MulOverflow(&v.n, uint256.NewInt(uint64(rate)))
	if overflow {
		return Value{}, ErrValueOverflow
	}

	var result Value
	result.n.Div(&product, oneHundred)
	return result, nil
}

// Tokens returns the whole token count the value backs, v / 10^18.
func (v Value) Tokens() (uint64, error) {
	var quotient uint256.Int
	quotient.Div(&v.n, valueUnit)

	if !quotient.IsUint64() {
		return 0, ErrValueOverflow
	}

	return quotient.Uint64(), nil
}

// StableUnits returns the value expressed in 6 decimal stable asset units,
// v / 10^12.
func (v Value) StableUnits() (uint64, error) {
	var quotient uint256.Int
	quotient.Div(&v.n, stableUnit)

	if !quotient.IsUint64() {
		return 0, ErrValueOverflow
	}

	return quotient.Uint64(), nil
}

// Cmp returns -1 when v < other, 0 when equal and 1 when v > other.
func (v Value) Cmp(other Value) int {
	return v.n.Cmp(&other.n)
}

// Equal returns true when both values are the same amount.
func (v Value) Equal(other Value) bool {
	return v.n.Eq(&other.n)
}

// IsZero returns true for a zero amount.
func (v Value) IsZero() bool {
	return v.n.IsZero()
}

// String returns the amount as a decimal string of atomic units.
func (v Value) String() string {
	return v.n.Dec()
}

// Serialize writes the value to w as 32 big endian bytes.
func (v Value) Serialize(w io.Writer) error {
	b := v.n.Bytes32()
	_, err := w.Write(b[:])
	return err
}

// DeserializeValue reads a 32 byte big endian value from r.
func DeserializeValue(r io.Reader) (Value, error) {
	var v Value

	b := make([]byte, 32)
	if _, err := io.ReadFull(r, b); err != nil {
		return v, err
	}

	v.n.SetBytes(b)
	return v, nil
}

// MarshalJSON encodes the value as a quoted decimal string. Atomic amounts
// overflow the integers most JSON consumers can represent.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.n.Dec() + `"`), nil
}

// UnmarshalJSON decodes a quoted decimal string into the value.
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if len(s) == 0 || s == "null" {
		v.n.Clear()
		return nil
	}

	n, err := uint256.FromDecimal(s)
	if err != nil {
		return errors.Wrap(err, "parse value")
	}

	v.n = *n
	return nil
}

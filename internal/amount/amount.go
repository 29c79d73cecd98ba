package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

// ErrMalformedAmount is returned by the strict parsers.
var ErrMalformedAmount = errors.New("malformed amount")

var bigTen = big.NewInt(10)

// scales[i] holds 10^i for every possible decimals value.
var scales [256]*big.Int

func init() {
	for i := range scales {
		scales[i] = new(big.Int).Exp(bigTen, big.NewInt(int64(i)), nil)
	}
}

func scale(decimals uint8) *big.Int {
	return scales[decimals]
}

// ToDisplay converts a raw integer amount to its human-scale decimal string.
// The output is canonical: trailing fraction zeros are trimmed and a whole
// amount has no point, so "1000000" at 6 decimals is "1". Use ToFixed for
// fixed-width output. Malformed input yields "0".
func ToDisplay(raw string, decimals uint8) string {
	out, err := TryToDisplay(raw, decimals)
	if err != nil {
		return "0"
	}
	return out
}

// TryToDisplay is ToDisplay with an explicit error for malformed input.
func TryToDisplay(raw string, decimals uint8) (string, error) {
	value, err := ParseRaw(raw)
	if err != nil {
		return "", err
	}
	return formatRaw(value, decimals), nil
}

// ToRaw converts a human-scale decimal string to the raw integer representation,
// padding or truncating the fraction to decimals digits. Malformed input yields "0".
func ToRaw(display string, decimals uint8) string {
	out, err := TryToRaw(display, decimals)
	if err != nil {
		return "0"
	}
	return out
}

// TryToRaw is ToRaw with an explicit error for malformed input.
func TryToRaw(display string, decimals uint8) (string, error) {
	value, err := ParseDisplay(display, decimals)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// ToFixed converts a raw amount to a decimal string with exactly precision
// fraction digits, rounding halves away from zero. Malformed input yields "0".
func ToFixed(raw string, decimals uint8, precision uint8) string {
	value, err := ParseRaw(raw)
	if err != nil {
		return "0"
	}
	rat := new(big.Rat).SetFrac(value, scale(decimals))
	return rat.FloatString(int(precision))
}

// ParseRaw parses a nonnegative base-10 integer string.
func ParseRaw(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if !isDigits(raw) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	return value, nil
}

// ParseDisplay parses a nonnegative decimal string into its raw integer at the given scale.
func ParseDisplay(display string, decimals uint8) (*big.Int, error) {
	display = strings.TrimSpace(display)
	intPart, fracPart, hasPoint := strings.Cut(display, ".")
	if intPart == "" && (!hasPoint || fracPart == "") {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, display)
	}
	if (intPart != "" && !isDigits(intPart)) || (fracPart != "" && !isDigits(fracPart)) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, display)
	}

	if len(fracPart) > int(decimals) {
		fracPart = fracPart[:decimals]
	} else {
		fracPart += strings.Repeat("0", int(decimals)-len(fracPart))
	}

	digits := intPart + fracPart
	if digits == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, display)
	}
	return value, nil
}

// Rat returns the exact rational value of a token amount.
func Rat(a model.TokenAmount) (*big.Rat, error) {
	value, err := ParseRaw(a.Raw)
	if err != nil {
		return nil, err
	}
	return new(big.Rat).SetFrac(value, scale(a.Decimals)), nil
}

// Float64 returns the nearest float64 to the amount. Amounts beyond the float
// range come back as +Inf.
func Float64(a model.TokenAmount) (float64, error) {
	rat, err := Rat(a)
	if err != nil {
		return 0, err
	}
	f, _ := rat.Float64()
	return f, nil
}

// Decimal returns the exact decimal value of a token amount.
func Decimal(a model.TokenAmount) (decimal.Decimal, error) {
	value, err := ParseRaw(a.Raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(value, -int32(a.Decimals)), nil
}

// Display is ToDisplay for a TokenAmount.
func Display(a model.TokenAmount) string {
	return ToDisplay(a.Raw, a.Decimals)
}

func formatRaw(value *big.Int, decimals uint8) string {
	if decimals == 0 {
		return value.String()
	}
	quo, rem := new(big.Int).QuoRem(value, scale(decimals), new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}

	frac := rem.String()
	frac = strings.Repeat("0", int(decimals)-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

func isDigits(input string) bool {
	if input == "" {
		return false
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package calculator

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrNonPositiveAmount   = errors.New("amount must be positive")
	ErrFractionalAmount    = errors.New("amount has more decimal places than the currency allows")
	ErrAmountOutOfRange    = errors.New("amount is out of range")
	ErrUnsupportedCurrency = errors.New("currency must be a three-letter ISO 4217 code")
)

// zeroDecimal lists currencies the payment processor charges in whole units.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
	"xpf": true,
}

var threeDecimal = map[string]bool{
	"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
}

// maxMinorUnits caps amounts well below the int64 limit (and the processor's
// own eight-digit cap for most currencies).
const maxMinorUnits = 1e12

// NormalizeCurrency lowercases and checks a currency code.
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(currency))
	if len(c) != 3 {
		return "", ErrUnsupportedCurrency
	}
	for _, r := range c {
		if r < 'a' || r > 'z' {
			return "", ErrUnsupportedCurrency
		}
	}
	return c, nil
}

// MinorUnitDigits returns the number of decimal places used by currency.
func MinorUnitDigits(currency string) int {
	switch {
	case zeroDecimal[currency]:
		return 0
	case threeDecimal[currency]:
		return 3
	default:
		return 2
	}
}

// ToMinorUnits converts a decimal amount in major units (e.g. 25.00 USD) to
// an integer count of minor units (2500 cents). The currency must already be
// normalized. Amounts that do not land on a whole minor unit are rejected
// rather than rounded.
func ToMinorUnits(amount float64, currency string) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrAmountOutOfRange
	}
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}

	scaled := amount * math.Pow10(MinorUnitDigits(currency))
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-6 {
		return 0, ErrFractionalAmount
	}
	if rounded < 1 {
		return 0, ErrNonPositiveAmount
	}
	if rounded > maxMinorUnits {
		return 0, ErrAmountOutOfRange
	}
	return int64(rounded), nil
}

// ToMajorUnits converts minor units back to a decimal amount for display.
func ToMajorUnits(amount int64, currency string) float64 {
	return float64(amount) / math.Pow10(MinorUnitDigits(currency))
}

package types

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// LamportsPerSOL is the number of base units in one SOL.
const LamportsPerSOL = 1_000_000_000

// Lamports is an amount in the network's base currency unit.
type Lamports uint64

var lamportsPerSOL = big.NewInt(LamportsPerSOL)

// decimalAmount is plain decimal notation with an optional short exponent.
// Base prefixes, digit separators and fractions are not amounts.
var decimalAmount = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d{1,3})?$`)

// ParseSOL converts a decimal SOL amount into lamports, truncating anything
// below one lamport. The conversion is exact: "0.1" is 100000000, never
// 99999999.
func ParseSOL(s string) (Lamports, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, NewInvalidInput("amount is required", nil)
	}
	if !decimalAmount.MatchString(s) {
		return 0, NewInvalidInput(fmt.Sprintf("invalid amount %q", s), nil)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, NewInvalidInput(fmt.Sprintf("invalid amount %q", s), nil)
	}
	if r.Sign() < 0 {
		return 0, NewInvalidInput(fmt.Sprintf("amount %q must not be negative", s), nil)
	}
	num := new(big.Int).Mul(r.Num(), lamportsPerSOL)
	lamports := num.Quo(num, r.Denom())
	if !lamports.IsUint64() {
		return 0, NewInvalidInput(fmt.Sprintf("amount %q is too large", s), nil)
	}
	return Lamports(lamports.Uint64()), nil
}

// SOL formats the amount as a decimal SOL string without trailing zeros.
func (l Lamports) SOL() string {
	whole := uint64(l) / LamportsPerSOL
	frac := uint64(l) % LamportsPerSOL
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fracStr := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return strconv.FormatUint(whole, 10) + "." + fracStr
}

func (l Lamports) String() string {
	return strconv.FormatUint(uint64(l), 10)
}

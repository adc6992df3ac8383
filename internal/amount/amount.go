// Package amount converts between human decimal strings and fixed-point
// integer token amounts. All arithmetic is exact big.Int work; floats are
// never involved.
package amount

import (
	"math/big"
	"strings"

	"github.com/constellation-labs/bridgeclient/internal/constant"
	"github.com/pkg/errors"
)

// Clean strips every character except digits and the first decimal point.
func Clean(s string) string {
	var b strings.Builder
	decimalSeen := false
	for _, c := range s {
		if c == '.' && !decimalSeen {
			b.WriteRune(c)
			decimalSeen = true
			continue
		}
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Parse converts a user-entered decimal string into a fixed-point integer
// with the given number of decimals. The input is cleaned first. A result of
// exactly zero is rejected, matching the transfer widget contract: zero is
// never a valid transfer amount.
func Parse(s string, decimals int32) (*big.Int, error) {
	s = Clean(s)
	if s == "" || s == "." {
		return nil, constant.ErrInvalidAmount
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if int32(len(frac)) > decimals {
		return nil, errors.Wrapf(constant.ErrInvalidAmount, "fractional component exceeds %d decimals", decimals)
	}

	scale := pow10(decimals)
	out := new(big.Int)
	if whole != "" {
		w, ok := new(big.Int).SetString(whole, 10)
		if !ok {
			return nil, constant.ErrInvalidAmount
		}
		out.Mul(w, scale)
	}
	if frac != "" {
		f, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, constant.ErrInvalidAmount
		}
		f.Mul(f, pow10(decimals-int32(len(frac))))
		out.Add(out, f)
	}
	if out.Sign() == 0 {
		return nil, constant.ErrInvalidAmount
	}
	return out, nil
}

// Format is the exact inverse of Parse. With decimals > 0 the result always
// carries a fractional part with trailing zeros trimmed, e.g. "1.0", "0.25".
func Format(v *big.Int, decimals int32) string {
	if decimals == 0 {
		return v.String()
	}
	scale := pow10(decimals)
	whole, frac := new(big.Int).QuoRem(v, scale, new(big.Int))

	fracStr := frac.String()
	for int32(len(fracStr)) < decimals {
		fracStr = "0" + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		fracStr = "0"
	}
	return whole.String() + "." + fracStr
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

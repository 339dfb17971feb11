// Package core holds the domain model and the pure aggregation logic.
//
// This file contains monetary parsing and formatting. Amounts are stored as
// int64 cents; floats only appear at the display boundary.
package core

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot and comma separators are
// accepted. Signs are rejected: transaction polarity lives in Kind, not in
// the amount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	var iv int64
	const maxSafe = (1<<63 - 1) / 100
	for _, r := range intPart {
		iv = iv*10 + int64(r-'0')
		if iv > maxSafe {
			return 0, ErrInvalidAmount
		}
	}

	// First two fractional digits, then half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// ParseAmountToCents parses an amount from an untrusted source such as a CSV
// cell. Currency symbols, thousands separators and other non-numeric noise
// are stripped, and the absolute value is returned; the caller combines it
// with the resolved Kind.
func ParseAmountToCents(s string) (int64, error) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	// With a dot present, commas are thousands separators. Without one, a
	// single comma followed by exactly two digits reads as a decimal
	// separator ("9,99"); anything else is grouping ("1,000", "1,234,567").
	if strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else if i := strings.LastIndex(cleaned, ","); i >= 0 {
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-i-1 == 2 {
			cleaned = cleaned[:i] + "." + cleaned[i+1:]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}
	if cleaned == "" {
		return 0, ErrInvalidAmount
	}
	return ParseDecimalToCents(cleaned)
}

// String formats the amount as a plain decimal, e.g. "12.34".
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// Float returns the value in whole currency units for display purposes.
// Use cents for arithmetic.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

package domain

import "strings"

// DealType identifies which disclosure feed a record came from.
type DealType string

const (
	DealTypeBulk  DealType = "BULK"
	DealTypeBlock DealType = "BLOCK"
)

// ParseDealType converts a free-form label ("Bulk", "block deals") to a DealType.
// Unknown labels return the empty DealType.
func ParseDealType(s string) DealType {
	switch v := strings.ToUpper(strings.TrimSpace(s)); {
	case strings.HasPrefix(v, "BULK"):
		return DealTypeBulk
	case strings.HasPrefix(v, "BLOCK"):
		return DealTypeBlock
	default:
		return ""
	}
}

// Side is the direction of a single-counterparty record (BUY or SELL).
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	// SideUnknown marks a side flag that was missing or unrecognised.
	SideUnknown Side = ""
)

// ParseSide maps the exchange's side flags onto Side.
func ParseSide(s string) Side {
	switch NormalizeName(s) {
	case "BUY", "B", "PURCHASE":
		return SideBuy
	case "SELL", "S", "SALE":
		return SideSell
	default:
		return SideUnknown
	}
}

// Shape records which counterparty layout a record has, and therefore which
// classification contract applies to it.
type Shape string

const (
	// ShapeSingle is one client name plus a BUY/SELL flag (archive CSV feeds).
	ShapeSingle Shape = "SINGLE"
	// ShapeDual is separate buyer and seller names without a side flag (JSON API feeds).
	ShapeDual Shape = "DUAL"
)

// Signal is the derived mutual-fund flow classification of a record.
type Signal string

const (
	SignalAccumulation Signal = "ACCUMULATION"
	SignalExit         Signal = "EXIT"
	SignalIgnore       Signal = "IGNORE"
)

// IsActionable reports whether the signal is a directional one.
func (s Signal) IsActionable() bool {
	return s == SignalAccumulation || s == SignalExit
}

// NormalizeName is the one place counterparty and side text is canonicalised:
// upper case, trimmed, inner whitespace collapsed to single spaces.
// It is idempotent.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

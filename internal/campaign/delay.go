package campaign

import (
	"fmt"
	"strconv"
	"strings"
)

// DelayUnit is the unit a step delay is entered in
type DelayUnit string

const (
	Minutes DelayUnit = "minutes"
	Hours   DelayUnit = "hours"
	Days    DelayUnit = "days"
	Weeks   DelayUnit = "weeks"
)

// Units lists the selectable delay units in display order
var Units = []DelayUnit{Minutes, Hours, Days, Weeks}

// Valid reports whether u is one of the selectable units
func (u DelayUnit) Valid() bool {
	switch u {
	case Minutes, Hours, Days, Weeks:
		return true
	}
	return false
}

// ParseDelayUnit parses a unit name, accepting singular forms
func ParseDelayUnit(s string) (DelayUnit, error) {
	u := DelayUnit(strings.ToLower(strings.TrimSpace(s)))
	if !strings.HasSuffix(string(u), "s") {
		u += "s"
	}
	if !u.Valid() {
		return "", fmt.Errorf("unknown delay unit %q (want minutes, hours, days or weeks)", s)
	}
	return u, nil
}

// NormalizeDelay converts a delay to whole hours for the backend schedule.
// Minutes round half up, so anything under 30 minutes becomes 0 (immediate).
// Unknown units are treated as days. Negative values count as 0.
func NormalizeDelay(value int, unit DelayUnit) int {
	if value < 0 {
		value = 0
	}
	switch unit {
	case Minutes:
		return (value + 30) / 60
	case Hours:
		return value
	case Weeks:
		return value * 24 * 7
	default:
		return value * 24
	}
}

// ParseDelayValue parses user-entered delay text. Empty, malformed and
// negative input all yield 0.
func ParseDelayValue(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// FormatDelay renders a delay for display, e.g. "2 days (48h)"
func FormatDelay(value int, unit DelayUnit) string {
	label := string(unit)
	if value == 1 {
		label = strings.TrimSuffix(label, "s")
	}
	return fmt.Sprintf("%d %s (%dh)", value, label, NormalizeDelay(value, unit))
}

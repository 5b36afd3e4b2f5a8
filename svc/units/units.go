// Package units holds the weight units a user can record and display in.
package units

import (
	"errors"
	"strings"
)

type Unit string

const (
	Kilograms Unit = "kg"
	Pounds    Unit = "lbs"

	// Default is assigned to new accounts and to sessions derived from auth
	// events before the profile row has been read.
	Default = Kilograms
)

const lbsPerKg = 2.20462

var ErrUnknownUnit = errors.New("units.unknown")

// All lists the selectable units in display order.
func All() []Unit { return []Unit{Kilograms, Pounds} }

func (u Unit) Valid() bool { return u == Kilograms || u == Pounds }

func (u Unit) String() string { return string(u) }

// Label is the human form shown in selects.
func (u Unit) Label() string {
	switch u {
	case Kilograms:
		return "Kilograms (kg)"
	case Pounds:
		return "Pounds (lbs)"
	default:
		return string(u)
	}
}

// Parse accepts "kg" and "lbs" case-insensitively, plus "lb".
func Parse(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kg":
		return Kilograms, nil
	case "lbs", "lb":
		return Pounds, nil
	default:
		return "", ErrUnknownUnit
	}
}

// OrDefault returns u when valid, Default otherwise.
func OrDefault(u Unit) Unit {
	if u.Valid() {
		return u
	}
	return Default
}

// Convert expresses v, measured in from, in to. Unknown units pass v through.
func Convert(v float64, from, to Unit) float64 {
	switch {
	case from == to:
		return v
	case from == Kilograms && to == Pounds:
		return v * lbsPerKg
	case from == Pounds && to == Kilograms:
		return v / lbsPerKg
	default:
		return v
	}
}

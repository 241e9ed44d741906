package models

import (
	"errors"
	"fmt"
)

// ErrUnknownSide is returned by ParseSide for shorthands outside the fixed table.
var ErrUnknownSide = errors.New("unexpected political affiliation shorthand")

// Side is the five-way editorial-bias classification of a side-article's source.
type Side int

// Sides, left to right.
const (
	Left Side = iota
	CenterLeft
	Center
	CenterRight
	Right
)

var sideShorthands = map[string]Side{
	"Left":         Left,
	"Lean Left":    CenterLeft,
	"Center Left":  CenterLeft,
	"Center":       Center,
	"Lean Right":   CenterRight,
	"Center Right": CenterRight,
	"Right":        Right,
}

// ParseSide maps a bias shorthand to a Side. Matching is exact.
func ParseSide(s string) (Side, error) {
	side, ok := sideShorthands[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSide, s)
	}

	return side, nil
}

// Emoji returns the marker used in announcements.
func (s Side) Emoji() string {
	switch s {
	case Left:
		return "🟦"
	case CenterLeft:
		return "🔵"
	case Center:
		return "🟣"
	case CenterRight:
		return "🔴"
	case Right:
		return "🟥"
	}

	return ""
}

// String returns the canonical name.
func (s Side) String() string {
	switch s {
	case Left:
		return "Left"
	case CenterLeft:
		return "CenterLeft"
	case Center:
		return "Center"
	case CenterRight:
		return "CenterRight"
	case Right:
		return "Right"
	}

	return fmt.Sprintf("Side(%d)", int(s))
}

// MarshalText renders the canonical name, so JSON output is readable.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

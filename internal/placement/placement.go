// Package placement resolves symbolic or percentage-based overlay placement
// descriptors into absolute pixel coordinates relative to a reference frame.
package placement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnparseable signals that the descriptor could not be parsed and the
// resolver fell back to the center keyword. The returned Position is still
// valid; callers surface this as a warning, not a failure.
var ErrUnparseable = errors.New("unparseable placement descriptor")

var simpleKeywords = map[string]bool{
	"center":       true,
	"left":         true,
	"right":        true,
	"top":          true,
	"bottom":       true,
	"top_left":     true,
	"top_right":    true,
	"bottom_left":  true,
	"bottom_right": true,
}

// Position is the resolved placement: either a whole-position keyword
// understood by the media backend, or a component pair. Pair components are
// pixels, except where an axis keyword was given; those stay symbolic so the
// backend can align by the overlay's own size, which is unknown here.
type Position struct {
	Keyword  string
	XKeyword string
	YKeyword string
	X        float64
	Y        float64
	Absolute bool
}

// Center is the safe default every malformed descriptor resolves to.
var Center = Position{Keyword: "center"}

func (p Position) String() string {
	if p.Absolute {
		return fmt.Sprintf("(%s,%s)", component(p.XKeyword, p.X), component(p.YKeyword, p.Y))
	}
	return p.Keyword
}

func component(keyword string, px float64) string {
	if keyword != "" {
		return keyword
	}
	return fmt.Sprintf("%g", px)
}

// Resolve converts a placement descriptor into a Position. The descriptor is
// either a keyword string, or a 2-element pair whose components are axis
// keywords, percentage strings ("25%"), or plain numbers. Percentages scale
// by the reference dimension; numbers pass through unchanged.
//
// Malformed input never fails hard: it resolves to center and returns
// ErrUnparseable as the warning signal.
func Resolve(descriptor any, refWidth, refHeight int) (Position, error) {
	switch v := descriptor.(type) {
	case string:
		if simpleKeywords[v] {
			return Position{Keyword: v}, nil
		}
		// A string like "(10%, 50%)" is a serialized pair.
		if pair, ok := parsePairString(v); ok {
			return resolvePair(pair[0], pair[1], refWidth, refHeight)
		}
		return Center, fmt.Errorf("%w: %q", ErrUnparseable, v)
	case []any:
		if len(v) != 2 {
			return Center, fmt.Errorf("%w: pair must have 2 elements, got %d", ErrUnparseable, len(v))
		}
		return resolvePair(v[0], v[1], refWidth, refHeight)
	case [2]string:
		return resolvePair(v[0], v[1], refWidth, refHeight)
	case nil:
		return Center, fmt.Errorf("%w: nil descriptor", ErrUnparseable)
	default:
		return Center, fmt.Errorf("%w: unsupported type %T", ErrUnparseable, descriptor)
	}
}

func resolvePair(xRaw, yRaw any, refWidth, refHeight int) (Position, error) {
	x, xKw, okX := resolveComponent(xRaw, refWidth, "left", "right")
	y, yKw, okY := resolveComponent(yRaw, refHeight, "top", "bottom")
	if !okX || !okY {
		return Center, fmt.Errorf("%w: (%v, %v)", ErrUnparseable, xRaw, yRaw)
	}
	return Position{X: x, Y: y, XKeyword: xKw, YKeyword: yKw, Absolute: true}, nil
}

// resolveComponent converts one axis component into pixels, or passes an axis
// keyword through unchanged. Keywords cannot be resolved to pixels here
// because the aligned edge depends on the overlay's own size.
func resolveComponent(raw any, ref int, lowKeyword, highKeyword string) (float64, string, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		switch s {
		case lowKeyword, "center", highKeyword:
			return 0, s, true
		}
		if strings.HasSuffix(s, "%") {
			pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
			if err != nil {
				return 0, "", false
			}
			return pct / 100 * float64(ref), "", true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, "", false
		}
		return n, "", true
	case float64:
		return v, "", true
	case int:
		return float64(v), "", true
	default:
		return 0, "", false
	}
}

// parsePairString splits "(a, b)" into its two components.
func parsePairString(s string) ([2]string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return [2]string{}, false
	}
	inner := s[1 : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return [2]string{}, false
	}
	return [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}, true
}

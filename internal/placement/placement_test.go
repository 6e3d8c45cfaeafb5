package placement

import (
	"errors"
	"testing"
)

func TestResolve_SimpleKeyword(t *testing.T) {
	pos, err := Resolve("center", 800, 600)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if pos.Absolute || pos.Keyword != "center" {
		t.Errorf("Resolve(center) = %v, want center keyword", pos)
	}

	for _, kw := range []string{"left", "right", "top", "bottom", "top_left", "bottom_right"} {
		pos, err := Resolve(kw, 800, 600)
		if err != nil {
			t.Errorf("Resolve(%q) warning: %v", kw, err)
		}
		if pos.Keyword != kw {
			t.Errorf("Resolve(%q) = %v, want keyword unchanged", kw, pos)
		}
	}
}

func TestResolve_PercentagePair(t *testing.T) {
	pos, err := Resolve([]any{"10%", "50%"}, 800, 600)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if !pos.Absolute || pos.X != 80.0 || pos.Y != 300.0 {
		t.Errorf("Resolve((10%%, 50%%), 800, 600) = %v, want (80, 300)", pos)
	}
}

func TestResolve_NumericPair(t *testing.T) {
	pos, err := Resolve([]any{float64(12), 34}, 800, 600)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if !pos.Absolute || pos.X != 12 || pos.Y != 34 {
		t.Errorf("numeric pair = %v, want (12, 34)", pos)
	}
}

func TestResolve_AxisKeywordsInPair(t *testing.T) {
	pos, err := Resolve([]any{"right", "25%"}, 800, 600)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if pos.XKeyword != "right" {
		t.Errorf("(right, 25%%) x = %v, want the keyword kept symbolic", pos)
	}
	if pos.YKeyword != "" || pos.Y != 150 {
		t.Errorf("(right, 25%%) y = %v, want 150 px", pos)
	}

	// Both components symbolic: neither may collapse to frame-edge pixels,
	// which would anchor an overlay's top-left corner off-screen.
	pos, err = Resolve([]any{"right", "bottom"}, 800, 600)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if pos.XKeyword != "right" || pos.YKeyword != "bottom" {
		t.Errorf("(right, bottom) = %v, want both keywords kept", pos)
	}

	pos, err = Resolve([]any{"center", "center"}, 800, 600)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if pos.XKeyword != "center" || pos.YKeyword != "center" {
		t.Errorf("(center, center) = %v, want both keywords kept", pos)
	}
}

func TestResolve_SerializedPairString(t *testing.T) {
	pos, err := Resolve("(10%, 50%)", 800, 600)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if pos.X != 80 || pos.Y != 300 {
		t.Errorf("serialized pair = %v, want (80, 300)", pos)
	}
}

func TestResolve_MalformedFallsBackToCenter(t *testing.T) {
	cases := []any{
		"not-a-position",
		[]any{"abc", "def"},
		[]any{"10%"},
		nil,
		42.0,
	}

	for _, c := range cases {
		pos, err := Resolve(c, 800, 600)
		if !errors.Is(err, ErrUnparseable) {
			t.Errorf("Resolve(%v) err = %v, want ErrUnparseable", c, err)
		}
		if pos != Center {
			t.Errorf("Resolve(%v) = %v, want center fallback", c, pos)
		}
	}
}

package fonts

import (
	"bytes"
	"testing"
)

func TestLoadEveryFamily(t *testing.T) {
	for _, f := range Families {
		regular, err := Load(f, false)
		if err != nil {
			t.Fatalf("%s regular: %v", f, err)
		}
		bold, err := Load(f, true)
		if err != nil {
			t.Fatalf("%s bold: %v", f, err)
		}
		if len(regular) == 0 || len(bold) == 0 {
			t.Fatalf("%s: empty font data", f)
		}
		if bytes.Equal(regular, bold) {
			t.Fatalf("%s: bold face should differ from regular", f)
		}
	}
}

func TestLoadUnknownFamily(t *testing.T) {
	if _, err := Load(Family("fantasy"), false); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}

func TestParseFamilyAliases(t *testing.T) {
	cases := map[string]Family{
		"monospace":  Monospace,
		"Mono":       Monospace,
		"sans-serif": SansSerif,
		"sans":       SansSerif,
		" serif ":    Serif,
	}
	for in, want := range cases {
		got, err := ParseFamily(in)
		if err != nil {
			t.Fatalf("ParseFamily(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFamily(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseFamily("cursive"); err == nil {
		t.Fatalf("expected error for cursive")
	}
}

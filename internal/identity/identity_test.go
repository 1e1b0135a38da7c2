package identity

import (
	"testing"

	"assistantd/pkg/types"
)

func TestNormalizeTrimsAndLowercases(t *testing.T) {
	if got := Normalize("  Base "); got != "base" {
		t.Fatalf("expected base got %q", got)
	}
	if got := Normalize("LARGE-V3-TURBO"); got != "large-v3-turbo" {
		t.Fatalf("expected large-v3-turbo got %q", got)
	}
}

func TestNormalizeResolvesAliases(t *testing.T) {
	cases := map[string]types.ModelID{
		"turbo":   "large-v3-turbo",
		"Large":   "large-v3",
		"tiny.en": "tiny-en",
		"llama3":  "llama3:latest",
	}
	for raw, want := range cases {
		if got := Normalize(raw); got != want {
			t.Fatalf("Normalize(%q)=%q want %q", raw, got, want)
		}
	}
}

func TestNormalizeEmptyYieldsNone(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		got := Normalize(raw)
		if !got.IsNone() {
			t.Fatalf("Normalize(%q)=%q, expected none", raw, got)
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	if Normalize("turbo") != Normalize(" TURBO ") {
		t.Fatalf("normalization not deterministic across equivalent inputs")
	}
}

func TestCatalogReturnsCopy(t *testing.T) {
	a := Catalog()
	if len(a) == 0 {
		t.Fatalf("empty catalog")
	}
	a[0].Name = "mutated"
	b := Catalog()
	if b[0].Name == "mutated" {
		t.Fatalf("catalog mutated via returned slice")
	}
}

func TestCatalogIdsAreCanonical(t *testing.T) {
	for _, m := range Catalog() {
		if Normalize(string(m.ID)) != m.ID {
			t.Fatalf("catalog id %q is not canonical", m.ID)
		}
	}
}

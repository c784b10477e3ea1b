package auth

import "testing"

func TestNormalizeEmailCompletesBareIdentifier(t *testing.T) {
	if got := NormalizeEmail("joao"); got != "joao@tesebook.com" {
		t.Fatalf("unexpected normalized email: %q", got)
	}
}

func TestNormalizeEmailTrimsAndLowercases(t *testing.T) {
	if got := NormalizeEmail("  Maria.Silva@Tesebook.com  "); got != "maria.silva@tesebook.com" {
		t.Fatalf("unexpected normalized email: %q", got)
	}
	if got := NormalizeEmail("  JOAO "); got != "joao@tesebook.com" {
		t.Fatalf("unexpected normalized email: %q", got)
	}
}

func TestNormalizeEmailKeepsForeignDomain(t *testing.T) {
	if got := NormalizeEmail("ana@gmail.com"); got != "ana@gmail.com" {
		t.Fatalf("existing domain should be kept, got %q", got)
	}
}

func TestNormalizeEmailEmpty(t *testing.T) {
	if got := NormalizeEmail("   "); got != "" {
		t.Fatalf("whitespace input should normalize to empty, got %q", got)
	}
}

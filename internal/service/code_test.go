package service

import (
	"strings"
	"testing"
)

func TestGenerateCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit %q", code, r)
			}
		}
		seen[code] = true
	}

	// 1000 draws from a space of 10^6 colliding down to a handful would
	// mean the generator is badly skewed.
	if len(seen) < 950 {
		t.Errorf("only %d distinct codes in 1000 draws", len(seen))
	}
}

func TestGenerateJoinCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateJoinCode()
		if err != nil {
			t.Fatalf("GenerateJoinCode: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("join code %q has length %d, want 8", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(joinCodeAlphabet, r) {
				t.Fatalf("join code %q contains %q outside alphabet", code, r)
			}
		}
	}
}

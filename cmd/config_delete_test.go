package cmd

import (
	"strings"
	"testing"
)

func TestConfirmed(t *testing.T) {
	tests := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"yes":   true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	}
	for input, want := range tests {
		if got := confirmed(strings.NewReader(input)); got != want {
			t.Fatalf("%q: expected %t, got %t", input, want, got)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":           "(not set)",
		"abc":        "****",
		"secret-key": "se******ey",
	}
	for input, want := range tests {
		if got := maskSecret(input); got != want {
			t.Fatalf("%q: expected %q, got %q", input, want, got)
		}
	}
}

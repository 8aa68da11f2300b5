package flow

import "testing"

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain digits", "123456", "123456"},
		{"dashes stripped", "12-34-56", "123456"},
		{"spaces stripped", " 1 2 3 4 5 6 ", "123456"},
		{"truncated to six", "1234567890", "123456"},
		{"letters removed", "a1b2c3", "123"},
		{"empty", "", ""},
		{"no digits", "abc-def", ""},
		{"unicode ignored", "１２３456", "456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCode(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCodeIdempotent(t *testing.T) {
	inputs := []string{"123456", "12-34-56", "abc", "", "99999999999", "  42  "}
	for _, in := range inputs {
		once := NormalizeCode(in)
		twice := NormalizeCode(once)
		if once != twice {
			t.Errorf("NormalizeCode not idempotent for %q: %q != %q", in, once, twice)
		}
		if len(once) > CodeLength {
			t.Errorf("NormalizeCode(%q) longer than %d: %q", in, CodeLength, once)
		}
		for i := 0; i < len(once); i++ {
			if once[i] < '0' || once[i] > '9' {
				t.Errorf("NormalizeCode(%q) contains non-digit %q", in, once[i])
			}
		}
	}
}

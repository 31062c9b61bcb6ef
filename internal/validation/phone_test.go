package validation

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
		valid bool
	}{
		{name: "plain", phone: "996555123456", want: "996555123456", valid: true},
		{name: "plus and spaces", phone: "+996 888 101 0 01", want: "996888101001", valid: true},
		{name: "grouped", phone: "996 888 101 001", want: "996888101001", valid: true},
		{name: "dashes and brackets", phone: "+996 (555) 12-34-56", want: "996555123456", valid: true},
		{name: "all zeros", phone: "996000000000", want: "996000000000", valid: true},
		{name: "too short", phone: "99655512345", valid: false},
		{name: "too long", phone: "9965551234567", valid: false},
		{name: "wrong prefix", phone: "995555123456", valid: false},
		{name: "local format", phone: "777555123456", valid: false},
		{name: "letter inside", phone: "99655512345a", valid: false},
		{name: "letters before", phone: "abc996555123456", valid: true, want: "996555123456"},
		{name: "empty", phone: "", valid: false},
		{name: "prefix only", phone: "996", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.phone)
			if tt.valid != (err == nil) {
				t.Fatalf("NormalizePhone(%q) error = %v, want valid=%v", tt.phone, err, tt.valid)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.phone, got, tt.want)
			}
			if IsValidPhone(tt.phone) != tt.valid {
				t.Fatalf("IsValidPhone(%q) = %v, want %v", tt.phone, !tt.valid, tt.valid)
			}
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	first, err := NormalizePhone("+996 888 101 0 01")
	if err != nil {
		t.Fatalf("NormalizePhone error: %v", err)
	}
	second, err := NormalizePhone(first)
	if err != nil {
		t.Fatalf("NormalizePhone error: %v", err)
	}
	if first != second {
		t.Fatalf("normalization is not idempotent: %q then %q", first, second)
	}
}

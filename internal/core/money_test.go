package core

import "testing"

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"brazilian full format", "R$ 1.234,56", 1234.56, true},
		{"comma decimal only", "1234,56", 1234.56, true},
		{"thousands grouping without decimals", "1.234", 1234, true},
		{"multiple thousands groups", "1.234.567", 1234567, true},
		{"decimal point short fraction", "12.5", 12.5, true},
		{"plain integer", "300", 300, true},
		{"currency symbol without space", "R$250,00", 250, true},
		{"lowercase currency symbol", "r$ 99,90", 99.90, true},
		{"dollar symbol", "$ 45.50", 45.50, true},
		{"nbsp after symbol", "R$ 1.000,00", 1000, true},
		{"accounting negative", "(1.000,00)", -1000, true},
		{"zero is a value", "0,00", 0, true},
		{"em dash placeholder", "—", 0, false},
		{"hyphen placeholder", "-", 0, false},
		{"na placeholder", "N/A", 0, false},
		{"empty string", "", 0, false},
		{"whitespace only", "   ", 0, false},
		{"garbage", "abc", 0, false},
		{"two commas", "1,2,3", 0, false},
		{"mixed non-grouped dots", "1.23.4", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMoney(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseMoney(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseMoney(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMoney_AbsentIsNotZero(t *testing.T) {
	// A dash means "no value recorded", which must stay distinguishable
	// from an explicit zero amount.
	if _, ok := ParseMoney("—"); ok {
		t.Error("dash placeholder parsed as a value")
	}
	if v, ok := ParseMoney("0,00"); !ok || v != 0 {
		t.Errorf("explicit zero = (%v, %v), want (0, true)", v, ok)
	}
}

package detector

import (
	"testing"

	"pump-detector/database"
)

func TestClassifyStrength(t *testing.T) {
	tests := []struct {
		name    string
		ratio7d float64
		ratio14 float64
		want    string
	}{
		{"extreme at threshold", 5.0, 0, database.StrengthExtreme},
		{"extreme well above", 12.3, 2.0, database.StrengthExtreme},
		{"just below extreme", 4.99, 0, database.StrengthVeryStrong},
		{"very strong at threshold", 3.0, 1.0, database.StrengthVeryStrong},
		{"strong at threshold", 2.0, 1.9, database.StrengthStrong},
		{"just below strong", 1.99, 0, database.StrengthMedium},
		{"medium at threshold", 1.5, 0, database.StrengthMedium},
		{"weak below medium", 1.49, 1.49, database.StrengthWeak},
		{"zero ratios", 0, 0, database.StrengthWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStrength(tt.ratio7d, tt.ratio14); got != tt.want {
				t.Errorf("ClassifyStrength(%g, %g) = %s, want %s",
					tt.ratio7d, tt.ratio14, got, tt.want)
			}
		})
	}
}

func TestClassifyStrengthUses14dWhenDominant(t *testing.T) {
	// 14-day ratio alone can carry the classification
	if got := ClassifyStrength(1.2, 5.5); got != database.StrengthExtreme {
		t.Errorf("ClassifyStrength(1.2, 5.5) = %s, want EXTREME", got)
	}
	if got := ClassifyStrength(1.0, 2.5); got != database.StrengthStrong {
		t.Errorf("ClassifyStrength(1.0, 2.5) = %s, want STRONG", got)
	}
}

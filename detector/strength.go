package detector

import "pump-detector/database"

// Strength thresholds on the dominant spike ratio. These are model
// calibration constants, not tunables.
const (
	extremeRatio    = 5.0
	veryStrongRatio = 3.0
	strongRatio     = 2.0
	mediumRatio     = 1.5
)

// ClassifyStrength labels a signal by the larger of its 7-day and 14-day
// spike ratios
func ClassifyStrength(spikeRatio7d, spikeRatio14d float64) string {
	m := spikeRatio7d
	if spikeRatio14d > m {
		m = spikeRatio14d
	}

	switch {
	case m >= extremeRatio:
		return database.StrengthExtreme
	case m >= veryStrongRatio:
		return database.StrengthVeryStrong
	case m >= strongRatio:
		return database.StrengthStrong
	case m >= mediumRatio:
		return database.StrengthMedium
	default:
		return database.StrengthWeak
	}
}

package calculator

import "errors"

// SimpleReturn returns current/past - 1.
func SimpleReturn(current, past float64) (float64, error) {
	if past <= 0 {
		return 0, errors.New("past price must be positive")
	}
	return current/past - 1, nil
}

// WeightedSum computes sum(weights[i] * values[i]).
func WeightedSum(weights, values []float64) (float64, error) {
	if len(weights) != len(values) {
		return 0, errors.New("weights and values length mismatch")
	}
	sum := 0.0
	for i := range values {
		sum += weights[i] * values[i]
	}
	return sum, nil
}

// FractionToPct converts 0.005 to 0.5.
func FractionToPct(f float64) float64 {
	return f * 100
}

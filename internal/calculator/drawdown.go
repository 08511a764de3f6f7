package calculator

import "errors"

// MaxDrawdown scans an equity series and returns the deepest peak-to-trough
// decline as a positive fraction (0.12 = 12%).
func MaxDrawdown(equity []float64) (float64, error) {
	if len(equity) == 0 {
		return 0, errors.New("no equity points provided")
	}
	peak := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak
		if dd > worst {
			worst = dd
		}
	}
	return worst, nil
}

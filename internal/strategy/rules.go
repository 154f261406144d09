package strategy

import "math"

// isSqueeze is a strict comparison. NaN and infinite widths never squeeze.
func isSqueeze(bandWidth, threshold float64) bool {
	if math.IsNaN(bandWidth) || math.IsInf(bandWidth, 0) {
		return false
	}
	return bandWidth < threshold
}

func isValidHour(hour int, excluded map[int]struct{}) bool {
	_, blocked := excluded[hour]
	return !blocked
}

package strategy

import (
	"sort"
	"time"

	"SqueezeSentinel/internal/model"
)

// Rules holds the squeeze threshold and the UTC hours during which signals never fire.
type Rules struct {
	SqueezeThreshold float64
	excluded         map[int]struct{}
}

// NewRules builds Rules from a threshold and an excluded-hours list.
func NewRules(threshold float64, excludedHours []int) Rules {
	ex := make(map[int]struct{}, len(excludedHours))
	for _, h := range excludedHours {
		ex[h] = struct{}{}
	}
	return Rules{SqueezeThreshold: threshold, excluded: ex}
}

// ExcludedHours returns the excluded hours in ascending order.
func (r Rules) ExcludedHours() []int {
	hours := make([]int, 0, len(r.excluded))
	for h := range r.excluded {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

// Evaluate applies the rules to the latest indicator point. now is the decision
// time; its UTC hour gates the signal regardless of when the bars were fetched.
func Evaluate(point model.IndicatorPoint, barsAnalyzed int, now time.Time, rules Rules) *model.EvaluationResult {
	now = now.UTC()
	squeeze := isSqueeze(point.BandWidth, rules.SqueezeThreshold)
	validHour := isValidHour(now.Hour(), rules.excluded)

	return &model.EvaluationResult{
		Price:        point.Close,
		BandWidth:    point.BandWidth,
		Threshold:    rules.SqueezeThreshold,
		IsSqueeze:    squeeze,
		CurrentHour:  now.Hour(),
		IsValidHour:  validHour,
		Signal:       squeeze && validHour,
		BarsAnalyzed: barsAnalyzed,
		BarTime:      point.Time,
		EvaluatedAt:  now,
	}
}

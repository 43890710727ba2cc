package scoring

import (
	"maps"
	"slices"
	"strings"

	"github.com/stemsi/quizlr/internal/apperror"
)

// Default parameters for strategies built by Parse.
var (
	DefaultTimeWeighted       = TimeWeighted{BaseTimeSeconds: 30, PenaltyPerSecond: 0.01}
	DefaultDifficultyWeighted = DifficultyWeighted{EasyMultiplier: 1, MediumMultiplier: 1.5, HardMultiplier: 2}
	DefaultAdaptive           = Adaptive{TimeWeight: 0.2, DifficultyWeight: 0.3, StreakWeight: 0.1, ConsistencyWeight: 0.1}
)

// Names lists every strategy name in a stable order.
var Names = []string{NameSimple, NameTimeWeighted, NameDifficultyWeighted, NameAdaptive}

// Parse builds a strategy from its name and optional parameter overrides.
// Unknown names fail with UNKNOWN_STRATEGY, unknown or invalid parameters
// with INVALID_STRATEGY.
func Parse(name string, params map[string]float64) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	var (
		build  func() Strategy
		fields map[string]*float64
	)
	switch name {
	case NameSimple:
		build = func() Strategy { return Simple{} }
	case NameTimeWeighted:
		t := DefaultTimeWeighted
		fields = map[string]*float64{
			"base_time_seconds":  &t.BaseTimeSeconds,
			"penalty_per_second": &t.PenaltyPerSecond,
		}
		build = func() Strategy { return t }
	case NameDifficultyWeighted:
		d := DefaultDifficultyWeighted
		fields = map[string]*float64{
			"easy_multiplier":   &d.EasyMultiplier,
			"medium_multiplier": &d.MediumMultiplier,
			"hard_multiplier":   &d.HardMultiplier,
		}
		build = func() Strategy { return d }
	case NameAdaptive:
		a := DefaultAdaptive
		fields = map[string]*float64{
			"time_weight":        &a.TimeWeight,
			"difficulty_weight":  &a.DifficultyWeight,
			"streak_weight":      &a.StreakWeight,
			"consistency_weight": &a.ConsistencyWeight,
		}
		build = func() Strategy { return a }
	default:
		return nil, apperror.New(apperror.ErrUnknownStrategy, "unknown scoring strategy %q", name)
	}

	for _, key := range slices.Sorted(maps.Keys(params)) {
		ptr, ok := fields[key]
		if !ok {
			return nil, apperror.New(apperror.ErrInvalidStrategy, "%s has no parameter %q", name, key)
		}
		*ptr = params[key]
	}

	strategy := build()
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	return strategy, nil
}

// ParseList parses a comma separated list of strategy names with default
// parameters, e.g. "simple,adaptive". Duplicates are dropped.
func ParseList(list string) ([]Strategy, error) {
	var out []Strategy
	seen := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		s, err := Parse(name, nil)
		if err != nil {
			return nil, err
		}
		seen[name] = true
		out = append(out, s)
	}
	return out, nil
}

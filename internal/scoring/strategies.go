package scoring

import (
	"math"

	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/session"
)

// Strategy names, as accepted by Parse.
const (
	NameSimple             = "simple"
	NameTimeWeighted       = "time_weighted"
	NameDifficultyWeighted = "difficulty_weighted"
	NameAdaptive           = "adaptive"
)

// Difficulty bucket bounds. Medium includes both bounds.
const (
	MediumMin = 0.33
	MediumMax = 0.67
)

// ─── Simple ─────────────────────────────────────────────────────────────

// Simple is correct answers over quiz questions.
type Simple struct{}

func (Simple) Name() string    { return NameSimple }
func (Simple) Validate() error { return nil }

func (Simple) Calculate(s *session.Session, q *quiz.Quiz) Score {
	raw := ratio(float64(correctCount(collect(s, q))), float64(totalQuestions(q)))
	return Score{
		RawScore:      raw,
		WeightedScore: raw,
		Components:    Components{Correctness: raw},
	}
}

// ─── TimeWeighted ───────────────────────────────────────────────────────

// TimeWeighted docks points for every second spent past BaseTimeSeconds.
// A question never scores below zero.
type TimeWeighted struct {
	BaseTimeSeconds  float64 `json:"base_time_seconds"`
	PenaltyPerSecond float64 `json:"penalty_per_second"`
}

func (TimeWeighted) Name() string { return NameTimeWeighted }

func (t TimeWeighted) Validate() error {
	if err := checkParam(NameTimeWeighted, "base_time_seconds", t.BaseTimeSeconds); err != nil {
		return err
	}
	return checkParam(NameTimeWeighted, "penalty_per_second", t.PenaltyPerSecond)
}

func (t TimeWeighted) Calculate(s *session.Session, q *quiz.Quiz) Score {
	rs := collect(s, q)
	total := float64(totalQuestions(q))

	var points float64
	for _, r := range rs {
		p := 0.0
		if r.correct {
			p = 1
		}
		p -= math.Max(0, r.seconds-t.BaseTimeSeconds) * t.PenaltyPerSecond
		points += math.Max(0, finite(p))
	}

	raw := ratio(float64(correctCount(rs)), total)
	weighted := ratio(points, total)
	return Score{
		RawScore:      raw,
		WeightedScore: weighted,
		TimeBonus:     weighted - raw,
		Components:    Components{Correctness: raw, Speed: weighted - raw},
	}
}

// ─── DifficultyWeighted ─────────────────────────────────────────────────

// DifficultyWeighted weighs each question by its difficulty bucket. The
// denominator covers every quiz question, so unanswered ones lower the
// achievable score.
type DifficultyWeighted struct {
	EasyMultiplier   float64 `json:"easy_multiplier"`
	MediumMultiplier float64 `json:"medium_multiplier"`
	HardMultiplier   float64 `json:"hard_multiplier"`
}

func (DifficultyWeighted) Name() string { return NameDifficultyWeighted }

func (d DifficultyWeighted) Validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"easy_multiplier", d.EasyMultiplier},
		{"medium_multiplier", d.MediumMultiplier},
		{"hard_multiplier", d.HardMultiplier},
	} {
		if err := checkParam(NameDifficultyWeighted, p.name, p.v); err != nil {
			return err
		}
	}
	return nil
}

// Multiplier returns the multiplier for a difficulty.
func (d DifficultyWeighted) Multiplier(difficulty float64) float64 {
	switch {
	case difficulty < MediumMin:
		return d.EasyMultiplier
	case difficulty <= MediumMax:
		return d.MediumMultiplier
	default:
		return d.HardMultiplier
	}
}

func (d DifficultyWeighted) Calculate(s *session.Session, q *quiz.Quiz) Score {
	rs := collect(s, q)

	var possible float64
	if q != nil {
		q.Each(func(_ int, qq *question.Question) { possible += d.Multiplier(qq.Difficulty) })
	}
	var earned float64
	for _, r := range rs {
		if r.correct {
			earned += d.Multiplier(r.difficulty)
		}
	}

	raw := ratio(float64(correctCount(rs)), float64(totalQuestions(q)))
	weighted := ratio(earned, possible)
	return Score{
		RawScore:        raw,
		WeightedScore:   weighted,
		DifficultyBonus: weighted - raw,
		Components:      Components{Correctness: raw, Difficulty: weighted - raw},
	}
}

// ─── Adaptive ───────────────────────────────────────────────────────────

// Adaptive blends correctness with speed, difficulty, streak and
// consistency components. Correctness always has weight 1.
type Adaptive struct {
	TimeWeight        float64 `json:"time_weight"`
	DifficultyWeight  float64 `json:"difficulty_weight"`
	StreakWeight      float64 `json:"streak_weight"`
	ConsistencyWeight float64 `json:"consistency_weight"`
}

func (Adaptive) Name() string { return NameAdaptive }

func (a Adaptive) Validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"time_weight", a.TimeWeight},
		{"difficulty_weight", a.DifficultyWeight},
		{"streak_weight", a.StreakWeight},
		{"consistency_weight", a.ConsistencyWeight},
	} {
		if err := checkParam(NameAdaptive, p.name, p.v); err != nil {
			return err
		}
	}
	return nil
}

func (a Adaptive) Calculate(s *session.Session, q *quiz.Quiz) Score {
	rs := collect(s, q)
	total := float64(totalQuestions(q))

	correctness := ratio(float64(correctCount(rs)), total)
	speed := a.speed(rs, q)
	difficulty := difficultyScore(rs)
	streak := ratio(float64(longestStreak(rs)), total)
	consistency := consistencyScore(rs)

	weighted := ratio(
		correctness+
			speed*a.TimeWeight+
			difficulty*a.DifficultyWeight+
			streak*a.StreakWeight+
			consistency*a.ConsistencyWeight,
		1+a.TimeWeight+a.DifficultyWeight+a.StreakWeight+a.ConsistencyWeight,
	)

	return Score{
		RawScore:        correctness,
		WeightedScore:   weighted,
		TimeBonus:       finite(speed * a.TimeWeight),
		DifficultyBonus: finite(difficulty * a.DifficultyWeight),
		StreakBonus:     finite(streak * a.StreakWeight),
		Components: Components{
			Correctness: correctness,
			Speed:       speed,
			Difficulty:  difficulty,
			Consistency: consistency,
		},
	}
}

// speed is expected over actual average time, capped at 1. Expected time
// averages every quiz question's estimate; actual time averages timed
// responses only. No timed responses means 0.
func (a Adaptive) speed(rs []scored, q *quiz.Quiz) float64 {
	times := timed(rs)
	if len(times) == 0 || q == nil || q.Len() == 0 {
		return 0
	}
	var estimated float64
	q.Each(func(_ int, qq *question.Question) { estimated += float64(qq.EstimatedTimeSeconds) })
	expected := estimated / float64(q.Len())
	actual := mean(times)
	return math.Min(1, ratio(expected, actual))
}

func difficultyScore(rs []scored) float64 {
	var answered, correct float64
	for _, r := range rs {
		answered += r.difficulty
		if r.correct {
			correct += r.difficulty
		}
	}
	return ratio(correct, answered)
}

func longestStreak(rs []scored) int {
	best, run := 0, 0
	for _, r := range rs {
		if !r.correct {
			run = 0
			continue
		}
		run++
		best = max(best, run)
	}
	return best
}

// consistencyScore is 1/(1+cv) of the timed responses, using the
// population standard deviation. Fewer than two timed responses give 0.
func consistencyScore(rs []scored) float64 {
	times := timed(rs)
	if len(times) < 2 {
		return 0
	}
	m := mean(times)
	var sq float64
	for _, t := range times {
		sq += (t - m) * (t - m)
	}
	cv := ratio(math.Sqrt(sq/float64(len(times))), m)
	return ratio(1, 1+cv)
}

func timed(rs []scored) []float64 {
	var out []float64
	for _, r := range rs {
		if r.seconds > 0 {
			out = append(out, r.seconds)
		}
	}
	return out
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return ratio(sum, float64(len(xs)))
}

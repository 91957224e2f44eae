package engine

import (
	"errors"
	"fmt"
	"slices"
)

const TechniqueServe = "serve"

// Techniques is the fixed set of shot techniques a profile carries proficiency for.
var Techniques = []string{
	TechniqueServe,
	"receive",
	"clear",
	"smash",
	"drop",
	"lift",
	"net-shot",
	"pounce",
	"hook",
	"spin",
}

const (
	MinSkill = -100
	MaxSkill = 100
)

func IsTechnique(name string) bool {
	return slices.Contains(Techniques, name)
}

func ClampSkill(level int) int {
	return max(MinSkill, min(MaxSkill, level))
}

// Rules holds the tunable scoring policy of a match.
type Rules struct {
	WinScore        int `json:"win_score"`
	WinMargin       int `json:"win_margin"`
	ScoreCap        int `json:"score_cap"`
	LowQualityBonus int `json:"low_quality_bonus"`
}

func DefaultRules() Rules {
	return Rules{
		WinScore:        21,
		WinMargin:       2,
		ScoreCap:        30,
		LowQualityBonus: 2,
	}
}

func (r Rules) Validate() error {
	if r.WinScore < 1 {
		return fmt.Errorf("win score must be positive, got %d", r.WinScore)
	}
	if r.WinMargin < 1 {
		return fmt.Errorf("win margin must be positive, got %d", r.WinMargin)
	}
	if r.ScoreCap < r.WinScore {
		return errors.New("score cap must not be below the win score")
	}
	if r.LowQualityBonus < 0 {
		return fmt.Errorf("low quality bonus must not be negative, got %d", r.LowQualityBonus)
	}
	return nil
}

// Won reports whether either side has taken the match at this score.
func (r Rules) Won(a, b int) bool {
	if a >= r.ScoreCap || b >= r.ScoreCap {
		return true
	}
	if a < r.WinScore && b < r.WinScore {
		return false
	}
	lead := a - b
	if lead < 0 {
		lead = -lead
	}
	return lead >= r.WinMargin
}

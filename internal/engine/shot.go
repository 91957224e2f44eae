package engine

import "math/rand"

type Quality string

const (
	QualityCriticalFail    Quality = "critical_fail"
	QualityLow             Quality = "low"
	QualityNormal          Quality = "normal"
	QualityHigh            Quality = "high"
	QualityCriticalSuccess Quality = "critical_success"
)

// Terminal reports whether a shot of this quality ends the rally.
func (q Quality) Terminal() bool {
	return q == QualityCriticalFail || q == QualityCriticalSuccess
}

const (
	DieSides = 20

	// Every SkillDivisor points of proficiency shift the roll by one.
	SkillDivisor = 30

	LowCeiling  = 5  // final <= LowCeiling is low
	HighFloor   = 15 // final >= HighFloor is high
	GuardSkill  = 80 // from here a lone natural 1 is only a candidate
	WideSkill   = 90 // from here a natural 19 is also a critical success
	critFailRaw = 1
)

// Dice returns a uniformly distributed integer in [1, DieSides].
type Dice func() int

func D20(r *rand.Rand) Dice {
	return func() int { return r.Intn(DieSides) + 1 }
}

type ShotInput struct {
	SkillLevel      int
	OpponentLast    Quality // "" when the opposing side has not hit this rally
	CritFailPending bool    // previous shot by this player was an unconfirmed natural 1
}

type ShotOutcome struct {
	Base         int     `json:"base_roll"`
	Adjusted     int     `json:"adjusted_roll"`
	Final        int     `json:"final_roll"`
	Quality      Quality `json:"quality"`
	SkillLevel   int     `json:"skill_level"`
	BonusApplied bool    `json:"low_quality_bonus_applied"`
	Bonus        int     `json:"low_quality_bonus"`
	PointEnded   bool    `json:"point_ended"`

	// Set when this shot was a natural 1 downgraded to low; the player's next shot
	// confirms the critical fail on another natural 1.
	CritFailPending bool `json:"crit_fail_pending"`
}

func Resolve(in ShotInput, dice Dice, rules Rules) ShotOutcome {
	base := dice()
	out := ShotOutcome{
		Base:       base,
		Adjusted:   base + floorDiv(in.SkillLevel, SkillDivisor),
		SkillLevel: in.SkillLevel,
	}

	out.Final = out.Adjusted
	if in.OpponentLast == QualityLow {
		out.BonusApplied = true
		out.Bonus = rules.LowQualityBonus
		out.Final += rules.LowQualityBonus
	}

	switch {
	case base == critFailRaw && in.SkillLevel >= GuardSkill && !in.CritFailPending:
		out.Quality = QualityLow
		out.CritFailPending = true
	case base == critFailRaw:
		out.Quality = QualityCriticalFail
	case base >= critSuccessFloor(in.SkillLevel):
		out.Quality = QualityCriticalSuccess
	default:
		out.Quality = tier(out.Final)
	}

	out.PointEnded = out.Quality.Terminal()
	return out
}

func critSuccessFloor(skill int) int {
	if skill >= WideSkill {
		return DieSides - 1
	}
	return DieSides
}

func tier(final int) Quality {
	switch {
	case final <= LowCeiling:
		return QualityLow
	case final >= HighFloor:
		return QualityHigh
	default:
		return QualityNormal
	}
}

// floorDiv rounds toward negative infinity, unlike Go's truncating division.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

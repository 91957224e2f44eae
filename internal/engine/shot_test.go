package engine

import (
	"math/rand"
	"testing"
)

// fixed returns dice that yield rolls in order and then keep repeating the last one.
func fixed(rolls ...int) Dice {
	i := 0
	return func() int {
		r := rolls[min(i, len(rolls)-1)]
		i++
		return r
	}
}

func TestResolve_Tiers(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		name     string
		in       ShotInput
		roll     int
		adjusted int
		final    int
		quality  Quality
	}{
		{name: "natural 1 is a critical fail", in: ShotInput{SkillLevel: 0}, roll: 1, adjusted: 1, final: 1, quality: QualityCriticalFail},
		{name: "low", in: ShotInput{SkillLevel: 0}, roll: 5, adjusted: 5, final: 5, quality: QualityLow},
		{name: "normal lower edge", in: ShotInput{SkillLevel: 0}, roll: 6, adjusted: 6, final: 6, quality: QualityNormal},
		{name: "normal upper edge", in: ShotInput{SkillLevel: 0}, roll: 14, adjusted: 14, final: 14, quality: QualityNormal},
		{name: "high", in: ShotInput{SkillLevel: 0}, roll: 15, adjusted: 15, final: 15, quality: QualityHigh},
		{name: "natural 20", in: ShotInput{SkillLevel: 0}, roll: 20, adjusted: 20, final: 20, quality: QualityCriticalSuccess},
		{name: "natural 19 below wide skill", in: ShotInput{SkillLevel: 89}, roll: 19, adjusted: 21, final: 21, quality: QualityHigh},
		{name: "natural 19 at wide skill", in: ShotInput{SkillLevel: 90}, roll: 19, adjusted: 22, final: 22, quality: QualityCriticalSuccess},
		{name: "skill lifts normal to high", in: ShotInput{SkillLevel: 60}, roll: 13, adjusted: 15, final: 15, quality: QualityHigh},
		{name: "negative skill floors down", in: ShotInput{SkillLevel: -1}, roll: 6, adjusted: 5, final: 5, quality: QualityLow},
		{name: "minimum skill", in: ShotInput{SkillLevel: -100}, roll: 10, adjusted: 6, final: 6, quality: QualityNormal},
		{name: "opponent low grants bonus", in: ShotInput{SkillLevel: 0, OpponentLast: QualityLow}, roll: 4, adjusted: 4, final: 6, quality: QualityNormal},
		{name: "opponent high grants nothing", in: ShotInput{SkillLevel: 0, OpponentLast: QualityHigh}, roll: 4, adjusted: 4, final: 4, quality: QualityLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Resolve(tc.in, fixed(tc.roll), rules)
			if out.Base != tc.roll {
				t.Fatalf("base: got %d, want %d", out.Base, tc.roll)
			}
			if out.Adjusted != tc.adjusted {
				t.Fatalf("adjusted: got %d, want %d", out.Adjusted, tc.adjusted)
			}
			if out.Final != tc.final {
				t.Fatalf("final: got %d, want %d", out.Final, tc.final)
			}
			if out.Quality != tc.quality {
				t.Fatalf("quality: got %s, want %s", out.Quality, tc.quality)
			}
			if out.PointEnded != tc.quality.Terminal() {
				t.Fatalf("point ended: got %v for %s", out.PointEnded, out.Quality)
			}
			if out.BonusApplied != (tc.in.OpponentLast == QualityLow) {
				t.Fatalf("bonus applied: got %v", out.BonusApplied)
			}
		})
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct{ a, want int }{
		{0, 0}, {29, 0}, {30, 1}, {59, 1}, {100, 3},
		{-1, -1}, {-30, -1}, {-31, -2}, {-100, -4},
	}
	for _, tc := range cases {
		if got := floorDiv(tc.a, SkillDivisor); got != tc.want {
			t.Fatalf("floorDiv(%d, %d): got %d, want %d", tc.a, SkillDivisor, got, tc.want)
		}
	}
}

func TestResolve_CriticalRatesAtZeroSkill(t *testing.T) {
	const n = 10000
	dice := D20(rand.New(rand.NewSource(7)))

	var fails, successes int
	for range n {
		out := Resolve(ShotInput{SkillLevel: 0}, dice, DefaultRules())
		switch out.Quality {
		case QualityCriticalFail:
			fails++
		case QualityCriticalSuccess:
			successes++
		}
	}

	for name, count := range map[string]int{"critical fail": fails, "critical success": successes} {
		rate := float64(count) / n
		if rate < 0.04 || rate > 0.06 {
			t.Fatalf("%s rate %.4f is not near 1/20", name, rate)
		}
	}
}

func TestResolve_WideSkillNeverLowersCriticalSuccessRate(t *testing.T) {
	const n = 5000
	count := func(skill int) int {
		dice := D20(rand.New(rand.NewSource(42)))
		hits := 0
		for range n {
			if Resolve(ShotInput{SkillLevel: skill}, dice, DefaultRules()).Quality == QualityCriticalSuccess {
				hits++
			}
		}
		return hits
	}

	baseline := count(89)
	for _, skill := range []int{90, 95, 100} {
		if got := count(skill); got < baseline {
			t.Fatalf("skill %d: %d critical successes, below %d at skill 89", skill, got, baseline)
		}
	}
}

func TestResolve_GuardNeedsTwoNaturalOnes(t *testing.T) {
	for _, skill := range []int{80, 85, 90, 100} {
		first := Resolve(ShotInput{SkillLevel: skill}, fixed(1), DefaultRules())
		if first.Quality != QualityLow || !first.CritFailPending {
			t.Fatalf("skill %d: lone natural 1 resolved to %s (pending=%v)", skill, first.Quality, first.CritFailPending)
		}

		second := Resolve(ShotInput{SkillLevel: skill, CritFailPending: first.CritFailPending}, fixed(1), DefaultRules())
		if second.Quality != QualityCriticalFail || second.CritFailPending {
			t.Fatalf("skill %d: second natural 1 resolved to %s (pending=%v)", skill, second.Quality, second.CritFailPending)
		}
	}
}

func TestResolve_GuardCandidateClearsOnOtherRoll(t *testing.T) {
	out := Resolve(ShotInput{SkillLevel: 80, CritFailPending: true}, fixed(10), DefaultRules())
	if out.CritFailPending {
		t.Fatalf("pending flag should clear after a non-1 roll")
	}
	if out.Quality != QualityNormal {
		t.Fatalf("got %s, want normal", out.Quality)
	}
}

func TestResolve_BelowGuardIgnoresPending(t *testing.T) {
	out := Resolve(ShotInput{SkillLevel: 79}, fixed(1), DefaultRules())
	if out.Quality != QualityCriticalFail || out.CritFailPending {
		t.Fatalf("skill 79 natural 1: got %s (pending=%v)", out.Quality, out.CritFailPending)
	}
}

func TestResolve_BonusMagnitudeFollowsRules(t *testing.T) {
	rules := DefaultRules()
	rules.LowQualityBonus = 5
	out := Resolve(ShotInput{OpponentLast: QualityLow}, fixed(10), rules)
	if out.Bonus != 5 || out.Final != 15 || out.Quality != QualityHigh {
		t.Fatalf("got bonus=%d final=%d quality=%s", out.Bonus, out.Final, out.Quality)
	}
}

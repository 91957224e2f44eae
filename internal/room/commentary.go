package room

import "github.com/DoyleJ11/rally-backend/internal/engine"

var commentary = map[engine.Quality]string{
	engine.QualityCriticalFail:    "A costly error! The shuttle finds the net.",
	engine.QualityLow:             "A weak reply, the opening is there.",
	engine.QualityNormal:          "Steady return, the rally goes on.",
	engine.QualityHigh:            "A sharp, dangerous shot!",
	engine.QualityCriticalSuccess: "Unreturnable! A perfect winner.",
}

// Commentary is the one-line description attached to a shot result.
func Commentary(q engine.Quality) string {
	return commentary[q]
}

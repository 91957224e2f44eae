// Package profile loads and saves player proficiency profiles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/rally-backend/internal/engine"
)

var ErrNotFound = errors.New("profile not found")
var ErrInvalidName = errors.New("invalid username")
var ErrInvalidSkill = errors.New("invalid skill")

const MaxNameLength = 32

type Profile struct {
	Username  string         `json:"username"`
	Skills    map[string]int `json:"skills"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store is the keyed record store behind profiles.
type Store interface {
	Load(ctx context.Context, username string) (Profile, error)
	Save(ctx context.Context, p Profile) error
	Close() error
}

// Default is the profile handed out for players that never saved one.
func Default(username string) Profile {
	skills := make(map[string]int, len(engine.Techniques))
	for _, t := range engine.Techniques {
		skills[t] = 0
	}
	return Profile{Username: username, Skills: skills}
}

// NormalizeName trims the name and puts it in NFC so visually equal names
// compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, MaxNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return fmt.Errorf("%w: contains %q", ErrInvalidName, r)
		}
	}
	return nil
}

func (p Profile) Validate() error {
	if err := ValidateName(p.Username); err != nil {
		return err
	}
	for name, level := range p.Skills {
		if !engine.IsTechnique(name) {
			return fmt.Errorf("%w: unknown technique %q", ErrInvalidSkill, name)
		}
		if level < engine.MinSkill || level > engine.MaxSkill {
			return fmt.Errorf("%w: %s=%d outside [%d, %d]", ErrInvalidSkill, name, level, engine.MinSkill, engine.MaxSkill)
		}
	}
	return nil
}

// Level is the proficiency for technique; techniques never set read as 0.
func (p Profile) Level(technique string) int {
	return engine.ClampSkill(p.Skills[technique])
}

// Player carries every technique into a match, clamped to the valid range.
func (p Profile) Player() engine.Player {
	skills := make(map[string]int, len(engine.Techniques))
	for _, t := range engine.Techniques {
		skills[t] = p.Level(t)
	}
	return engine.Player{Name: p.Username, Skills: skills}
}

// stamp fills the bookkeeping times for a save that replaces prev.
func stamp(p Profile, prev *Profile, now time.Time) Profile {
	p.UpdatedAt = now
	if prev != nil && !prev.CreatedAt.IsZero() {
		p.CreatedAt = prev.CreatedAt
	} else {
		p.CreatedAt = now
	}
	return p
}

package engine

import (
	"maps"
	"slices"
)

func NewEmptyState(rules Rules) State {
	return State{
		Status:      StatusWaiting,
		TeamA:       []string{},
		TeamB:       []string{},
		History:     []ShotRecord{},
		Rules:       rules,
		skills:      map[string]map[string]int{},
		sides:       map[string]Side{},
		sideLast:    map[Side]Quality{},
		rallyHitter: map[Side]string{},
		pending:     map[string]bool{},
	}
}

// Clone deep-copies s so a new state never aliases the maps of the old one.
func (s State) Clone() State {
	c := s
	c.TeamA = slices.Clone(s.TeamA)
	c.TeamB = slices.Clone(s.TeamB)
	c.History = slices.Clone(s.History)
	if s.LastShot != nil {
		last := *s.LastShot
		c.LastShot = &last
	}

	c.skills = make(map[string]map[string]int, len(s.skills))
	for name, sk := range s.skills {
		c.skills[name] = copySkills(sk)
	}
	c.sides = cloneMap(s.sides)
	c.sideLast = cloneMap(s.sideLast)
	c.rallyHitter = cloneMap(s.rallyHitter)
	c.pending = cloneMap(s.pending)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return maps.Clone(m)
}

func copySkills(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	maps.Copy(out, in)
	return out
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

package engine

import "slices"

func (s State) team(side Side) []string {
	if side == SideA {
		return s.TeamA
	}
	return s.TeamB
}

func (s State) score(side Side) int {
	if side == SideA {
		return s.ScoreA
	}
	return s.ScoreB
}

// nextHitter picks who returns for side: the rally's receiver if the side has not
// hit yet, otherwise the partner of its previous hitter. Singles always yields the
// lone member.
func (s State) nextHitter(side Side) string {
	prev, ok := s.rallyHitter[side]
	if !ok {
		return s.Receiver
	}
	return partner(s.team(side), prev)
}

func partner(team []string, name string) string {
	i := slices.Index(team, name)
	if i < 0 {
		return team[0]
	}
	return team[(i+1)%len(team)]
}

// newRally hands the serve to the side that just scored. A server who wins the
// rally keeps serving and faces the other receiver. A side winning the serve back
// serves from the slot matching its score, against the matching slot opposite.
func (s *State) newRally(scorer Side) {
	s.IsFirstShot = true
	s.RallyCount = 0
	clear(s.sideLast)
	clear(s.rallyHitter)

	receiving := s.team(scorer.Other())
	if side, ok := s.sides[s.servedBy]; ok && side == scorer {
		s.Server = s.servedBy
		s.Receiver = partner(receiving, s.servedTo)
	} else {
		n := s.score(scorer)
		serving := s.team(scorer)
		s.Server = serving[n%len(serving)]
		s.Receiver = receiving[n%len(receiving)]
	}
	s.servedBy, s.servedTo = s.Server, s.Receiver
}

func (s *State) finish() {
	s.Status = StatusFinished
	s.Server = ""
	s.Receiver = ""
	s.servedBy, s.servedTo = "", ""
	s.IsFirstShot = false
	s.RallyCount = 0
	clear(s.sideLast)
	clear(s.rallyHitter)
}

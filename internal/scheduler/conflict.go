package scheduler

import "time"

// Proposal describes a single occurrence being checked for room conflicts.
type Proposal struct {
	Start           time.Time
	End             time.Time
	SetupMinutes    int
	TeardownMinutes int
	Rooms           []string
}

// Conflict records an existing reservation that collides with a proposal and
// the rooms they share.
type Conflict struct {
	Reservation Reservation
	Rooms       []string
}

// FindConflicts returns the active reservations in existing whose interval
// falls inside the proposal's padded interval and that share at least one
// room with it. The reservation named by ec.ExcludeID is ignored. Results are
// deduplicated by reservation ID and keep the order of existing.
func FindConflicts(existing []Reservation, p Proposal, minSpacingMinutes int, ec EvaluationContext) []Conflict {
	padded := Pad(p.Start, p.End, p.SetupMinutes, p.TeardownMinutes, minSpacingMinutes)

	var conflicts []Conflict
	seen := make(map[string]struct{})
	for _, candidate := range existing {
		if !candidate.Status.IsActive() {
			continue
		}
		if !candidate.End.After(padded.Start) {
			continue
		}
		if ec.Excludes(candidate.ID) {
			continue
		}
		if !candidate.Start.Before(padded.End) {
			continue
		}
		shared := sharedRooms(candidate.Rooms, p.Rooms)
		if len(shared) == 0 {
			continue
		}
		if _, dup := seen[candidate.ID]; dup {
			continue
		}
		seen[candidate.ID] = struct{}{}
		conflicts = append(conflicts, Conflict{Reservation: candidate, Rooms: shared})
	}
	return conflicts
}

// SharesPhysicalSpace reports whether any requested room is one of the rooms
// that share a physical area, which callers explain differently.
func SharesPhysicalSpace(requested, sharedSpace []string) bool {
	return len(sharedRooms(requested, sharedSpace)) > 0
}

func sharedRooms(a, b []string) []string {
	var out []string
	for _, room := range UniqueRooms(a) {
		for _, other := range b {
			if room == other {
				out = append(out, room)
				break
			}
		}
	}
	return out
}

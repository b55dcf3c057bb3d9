package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pacific = mustLocation("America/Los_Angeles")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, pacific)
}

func classroomEvent() Reservation {
	return Reservation{
		ID:              "existing",
		Owner:           "owner@example.com",
		Start:           at(12, 10, 0),
		End:             at(12, 12, 0),
		Rooms:           []string{"Classroom"},
		SetupMinutes:    15,
		TeardownMinutes: 15,
		Status:          StatusApproved,
	}
}

func TestFindConflictsBoundaries(t *testing.T) {
	t.Parallel()

	existing := []Reservation{classroomEvent()}
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		setup    int
		teardown int
		want     bool
	}{
		{name: "ends before with spacing", start: at(12, 8, 30), end: at(12, 9, 30), setup: 15, teardown: 15, want: false},
		{name: "starts after with spacing", start: at(12, 12, 30), end: at(12, 13, 30), setup: 15, teardown: 15, want: false},
		{name: "setup equal to spacing", start: at(12, 12, 30), end: at(12, 13, 30), setup: 30, teardown: 15, want: false},
		{name: "setup longer than gap", start: at(12, 12, 30), end: at(12, 13, 30), setup: 60, teardown: 15, want: true},
		{name: "gap shorter than spacing", start: at(12, 12, 15), end: at(12, 13, 15), setup: 0, teardown: 0, want: true},
		{name: "encompassing", start: at(12, 9, 0), end: at(12, 13, 0), setup: 0, teardown: 0, want: true},
		{name: "exact overlap", start: at(12, 10, 0), end: at(12, 12, 0), setup: 0, teardown: 0, want: true},
		{name: "overlaps start", start: at(12, 9, 0), end: at(12, 11, 0), setup: 0, teardown: 0, want: true},
		{name: "overlaps end", start: at(12, 11, 0), end: at(12, 13, 0), setup: 0, teardown: 0, want: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FindConflicts(existing, Proposal{
				Start:           tc.start,
				End:             tc.end,
				SetupMinutes:    tc.setup,
				TeardownMinutes: tc.teardown,
				Rooms:           []string{"Classroom"},
			}, 30, EvaluationContext{})
			assert.Equal(t, tc.want, len(got) > 0)
		})
	}
}

func TestFindConflictsIgnoresOtherRoomsAndInactive(t *testing.T) {
	t.Parallel()

	canceled := classroomEvent()
	canceled.ID = "canceled"
	canceled.Status = StatusCanceled

	otherRoom := classroomEvent()
	otherRoom.ID = "loungey"
	otherRoom.Rooms = []string{"Loungey"}

	proposal := Proposal{Start: at(12, 10, 0), End: at(12, 12, 0), Rooms: []string{"Classroom"}}
	assert.Empty(t, FindConflicts([]Reservation{canceled, otherRoom}, proposal, 30, EvaluationContext{}))
}

func TestFindConflictsExcludesEditedAndDeduplicates(t *testing.T) {
	t.Parallel()

	event := classroomEvent()
	event.Rooms = []string{"Classroom", "Deck"}
	proposal := Proposal{Start: at(12, 10, 0), End: at(12, 12, 0), Rooms: []string{"Deck", "Classroom"}}

	conflicts := FindConflicts([]Reservation{event, event}, proposal, 30, EvaluationContext{})
	require.Len(t, conflicts, 1)
	assert.Equal(t, "existing", conflicts[0].Reservation.ID)
	assert.ElementsMatch(t, []string{"Classroom", "Deck"}, conflicts[0].Rooms)

	assert.Empty(t, FindConflicts([]Reservation{event}, proposal, 30, EvaluationContext{ExcludeID: "existing"}))
}

func TestFindConflictsIsSymmetric(t *testing.T) {
	t.Parallel()

	a := Reservation{ID: "a", Start: at(13, 10, 0), End: at(13, 11, 0), Rooms: []string{"Savanna"}, Status: StatusPending}
	b := Reservation{ID: "b", Start: at(13, 11, 20), End: at(13, 12, 0), Rooms: []string{"Savanna"}, Status: StatusPending}

	asProposal := func(r Reservation) Proposal {
		return Proposal{Start: r.Start, End: r.End, SetupMinutes: r.SetupMinutes, TeardownMinutes: r.TeardownMinutes, Rooms: r.Rooms}
	}

	assert.Len(t, FindConflicts([]Reservation{a}, asProposal(b), 30, EvaluationContext{}), 1)
	assert.Len(t, FindConflicts([]Reservation{b}, asProposal(a), 30, EvaluationContext{}), 1)
}

func TestSharesPhysicalSpace(t *testing.T) {
	t.Parallel()

	shared := DefaultRules().SharedSpaceRooms
	assert.True(t, SharesPhysicalSpace([]string{"Classroom", "Deck"}, shared))
	assert.True(t, SharesPhysicalSpace([]string{"Savanna"}, shared))
	assert.False(t, SharesPhysicalSpace([]string{"Classroom"}, shared))
}

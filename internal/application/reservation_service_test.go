package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-booking/internal/scheduler"
)

func newTestReservationService(store *reservationStoreStub) *ReservationService {
	validator := newTestValidator(store, nil)
	return NewReservationService(validator, store, sequentialIDs("res"), fixedNow(referenceNow), quietLogger())
}

func TestReservationService_CreateReservationsStoresSeries(t *testing.T) {
	t.Parallel()

	store := newStoreStub()
	input := validInput(at(time.March, 9, 19, 0), at(time.March, 9, 21, 0))
	input.Rooms = []string{"Classroom", "Classroom", "Library"}
	input.Recurrence = &RecurrenceInput{Frequency: "weekly", Repetitions: 3}

	created, err := newTestReservationService(store).CreateReservations(context.Background(), CreateReservationParams{
		Principal: member(),
		Input:     input,
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	expectedExpiry := at(time.April, 3, 0, 0)
	for i, r := range created {
		assert.Equal(t, scheduler.StatusPending, r.Status)
		assert.Equal(t, memberEmail, r.Owner)
		assert.Equal(t, "res-001", r.SeriesID)
		assert.Equal(t, []string{"Classroom", "Library"}, r.Rooms)
		assert.Equal(t, 12, r.PartySize)
		assert.Equal(t, "3 repetitions weekly.", r.RecurrenceDescription)
		require.NotNil(t, r.ExpiresOn)
		assert.True(t, r.ExpiresOn.Equal(expectedExpiry), "occurrence %d expires %s", i, r.ExpiresOn)
	}
	assert.Len(t, store.reservations, 3)
}

func TestReservationService_CreateReservationsRejectsWithoutWriting(t *testing.T) {
	t.Parallel()

	store := newStoreStub(storedReservation("blocker", at(time.March, 23, 18, 0), at(time.March, 23, 22, 0)))
	input := validInput(at(time.March, 9, 19, 0), at(time.March, 9, 21, 0))
	input.Recurrence = &RecurrenceInput{Frequency: "weekly", Repetitions: 3}

	_, err := newTestReservationService(store).CreateReservations(context.Background(), CreateReservationParams{
		Principal: member(),
		Input:     input,
	})
	requireKind(t, err, KindRoomConflict)
	assert.Len(t, store.reservations, 1)
}

func TestReservationService_UpdateReservation(t *testing.T) {
	t.Parallel()

	own := storedReservation("own", at(time.March, 9, 18, 0), at(time.March, 9, 20, 0), withOwner(memberEmail), withStatus(scheduler.StatusPending))
	store := newStoreStub(own)
	svc := newTestReservationService(store)

	input := validInput(at(time.March, 9, 18, 30), at(time.March, 9, 20, 30))
	input.Recurrence = &RecurrenceInput{Frequency: "weekly", Repetitions: 5}
	updated, err := svc.UpdateReservation(context.Background(), UpdateReservationParams{
		Principal:     member(),
		ReservationID: "own",
		Input:         input,
	})
	require.NoError(t, err)
	assert.True(t, updated.Start.Equal(at(time.March, 9, 18, 30)))
	assert.Equal(t, scheduler.StatusPending, updated.Status)
	assert.Len(t, store.reservations, 1)
	require.Len(t, store.audits, 1)
	assert.Equal(t, "edit", store.audits[0].Action)

	_, err = svc.UpdateReservation(context.Background(), UpdateReservationParams{
		Principal:     Principal{Email: "intruder@example.org"},
		ReservationID: "own",
		Input:         input,
	})
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = svc.UpdateReservation(context.Background(), UpdateReservationParams{
		Principal:     member(),
		ReservationID: "missing",
		Input:         input,
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReservationService_ValidateUsesStoredOwnerWhenEditing(t *testing.T) {
	t.Parallel()

	store := newStoreStub()
	for i, day := range []int{9, 12, 15, 18, 21, 24} {
		start := at(time.March, day, 19, 0)
		store.reservations = append(store.reservations,
			storedReservation("cluster-"+string(rune('a'+i)), start, start.Add(time.Hour), withOwner(memberEmail)))
	}
	store.reservations = append(store.reservations,
		storedReservation("edited", at(time.April, 20, 19, 0), at(time.April, 20, 20, 0), withOwner(memberEmail)))

	input := validInput(at(time.March, 27, 19, 0), at(time.March, 27, 20, 0))
	_, err := newTestReservationService(store).Validate(context.Background(), ValidateParams{
		Principal: Principal{Email: "admin@example.org", IsAdmin: true},
		Input:     ReservationInput{},
		EditingID: "edited",
	})
	requireKind(t, err, KindMissingField)

	input.EvaluateAsMember = true
	_, err = newTestReservationService(store).Validate(context.Background(), ValidateParams{
		Principal: admin(),
		Input:     input,
		EditingID: "edited",
	})
	requireKind(t, err, KindFourWeekCap)
}

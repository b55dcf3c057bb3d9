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

func pendingReservation(id string, start time.Time) Reservation {
	r := storedReservation(id, start, start.Add(2*time.Hour), withOwner(memberEmail), withStatus(scheduler.StatusPending))
	return r
}

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy(pacific)
	today := policy.Today(referenceNow)
	start := at(time.March, 20, 19, 0)
	owner := Principal{Email: memberEmail}
	other := Principal{Email: "someone@example.org"}

	cases := []struct {
		name   string
		status scheduler.Status
		action Action
		actor  Principal
		want   scheduler.Status
		err    error
	}{
		{name: "admin approves pending", status: scheduler.StatusPending, action: ActionApprove, actor: admin(), want: scheduler.StatusApproved},
		{name: "admin approves on hold", status: scheduler.StatusOnHold, action: ActionApprove, actor: admin(), want: scheduler.StatusApproved},
		{name: "approve from approved", status: scheduler.StatusApproved, action: ActionApprove, actor: admin(), err: ErrInvalidTransition},
		{name: "member cannot approve", status: scheduler.StatusPending, action: ActionApprove, actor: owner, err: ErrUnauthorized},
		{name: "admin cannot approve own", status: scheduler.StatusPending, action: ActionApprove, actor: Principal{Email: memberEmail, IsAdmin: true}, err: ErrUnauthorized},
		{name: "not approved twice", status: scheduler.StatusNotApproved, action: ActionNotApprove, actor: admin(), err: ErrInvalidTransition},
		{name: "admin rejects", status: scheduler.StatusApproved, action: ActionNotApprove, actor: admin(), want: scheduler.StatusNotApproved},
		{name: "owner cancels", status: scheduler.StatusApproved, action: ActionCancel, actor: owner, want: scheduler.StatusCanceled},
		{name: "stranger cannot cancel", status: scheduler.StatusApproved, action: ActionCancel, actor: other, err: ErrUnauthorized},
		{name: "owner holds", status: scheduler.StatusPending, action: ActionOnHold, actor: owner, want: scheduler.StatusOnHold},
		{name: "owner deletes", status: scheduler.StatusPending, action: ActionDelete, actor: owner, want: scheduler.StatusDeleted},
		{name: "owner cannot undelete", status: scheduler.StatusDeleted, action: ActionUndelete, actor: owner, err: ErrUnauthorized},
		{name: "admin undeletes", status: scheduler.StatusDeleted, action: ActionUndelete, actor: admin(), want: scheduler.StatusPending},
		{name: "undelete requires deleted", status: scheduler.StatusPending, action: ActionUndelete, actor: admin(), err: ErrInvalidTransition},
		{name: "admin expires", status: scheduler.StatusPending, action: ActionExpire, actor: admin(), want: scheduler.StatusExpired},
		{name: "member staffs", status: scheduler.StatusApproved, action: ActionStaff, actor: other, want: scheduler.StatusApproved},
		{name: "cannot staff canceled", status: scheduler.StatusCanceled, action: ActionStaff, actor: other, err: ErrInvalidTransition},
		{name: "cannot unstaff without staffing", status: scheduler.StatusApproved, action: ActionUnstaff, actor: other, err: ErrInvalidTransition},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := pendingReservation("r", start)
			r.Status = tc.status
			got, err := Transition(r, tc.action, tc.actor, today, policy)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestTransitionApprovalHorizon(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy(pacific)
	today := policy.Today(referenceNow)

	far := pendingReservation("far", today.Add(policy.ApprovalHorizon))
	_, err := Transition(far, ActionApprove, admin(), today, policy)
	vErr := requireKind(t, err, KindApprovalHorizon)
	assert.Equal(t, "This event cannot be approved because the date is in more than 5 weeks.", vErr.Message)

	near := pendingReservation("near", today.Add(policy.ApprovalHorizon-time.Hour))
	_, err = Transition(near, ActionApprove, admin(), today, policy)
	require.NoError(t, err)
}

func TestTransitionStaffing(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy(pacific)
	policy.MinStaff = 1
	today := policy.Today(referenceNow)
	helper := Principal{Email: "helper@example.org"}

	r := pendingReservation("r", at(time.March, 20, 19, 0))
	approved, err := Transition(r, ActionApprove, admin(), today, policy)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusUnderstaffed, approved.Status)

	staffed, err := Transition(approved, ActionStaff, helper, today, policy)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusApproved, staffed.Status)
	assert.Equal(t, []string{"helper@example.org"}, staffed.Staff)
	assert.Empty(t, approved.Staff)

	_, err = Transition(staffed, ActionStaff, helper, today, policy)
	require.ErrorIs(t, err, ErrInvalidTransition)

	unstaffed, err := Transition(staffed, ActionUnstaff, helper, today, policy)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusUnderstaffed, unstaffed.Status)
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	action, err := ParseAction(" Approve ")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, action)

	_, err = ParseAction("launch")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func newTestLifecycle(store *reservationStoreStub, now time.Time) *LifecycleService {
	svc := NewLifecycleService(store, DefaultPolicy(pacific), sequentialIDs("audit"), fixedNow(now), quietLogger())
	svc.secrets = func() (string, error) { return "s3cret", nil }
	return svc
}

func TestLifecyclePerformApproveAssignsSecret(t *testing.T) {
	t.Parallel()

	expires := at(time.April, 3, 0, 0)
	r := pendingReservation("r1", at(time.March, 20, 19, 0))
	r.ExpiresOn = &expires
	store := newStoreStub(r)

	updated, err := newTestLifecycle(store, referenceNow).Perform(context.Background(), admin(), "r1", ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusApproved, updated.Status)
	assert.Equal(t, "s3cret", updated.Secret)
	assert.Nil(t, updated.ExpiresOn)

	stored := store.get(t, "r1")
	assert.Equal(t, "s3cret", stored.Secret)
	require.Len(t, store.audits, 1)
	assert.Equal(t, "approve", store.audits[0].Action)
	assert.Equal(t, scheduler.StatusPending, store.audits[0].FromStatus)
	assert.Equal(t, scheduler.StatusApproved, store.audits[0].ToStatus)
	assert.Equal(t, "admin@example.org", store.audits[0].Actor)
}

func TestLifecyclePerformErrors(t *testing.T) {
	t.Parallel()

	store := newStoreStub(pendingReservation("r1", at(time.March, 20, 19, 0)))
	svc := newTestLifecycle(store, referenceNow)

	_, err := svc.Perform(context.Background(), admin(), "missing", ActionApprove)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Perform(context.Background(), Principal{Email: "x@example.org"}, "r1", ActionCancel)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, store.audits)
}

func TestLifecycleCheckBulk(t *testing.T) {
	t.Parallel()

	approved := pendingReservation("approved", at(time.March, 20, 19, 0))
	approved.Status = scheduler.StatusApproved
	store := newStoreStub(pendingReservation("pending", at(time.March, 21, 19, 0)), approved)
	svc := newTestLifecycle(store, referenceNow)

	results, err := svc.CheckBulk(context.Background(), admin(), ActionApprove, []string{"pending", "approved", "ghost"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Allowed)
	assert.False(t, results[1].Allowed)
	assert.NotEmpty(t, results[1].Reason)
	assert.Equal(t, "not found", results[2].Reason)
	assert.Equal(t, scheduler.StatusPending, store.get(t, "pending").Status)

	_, err = svc.CheckBulk(context.Background(), admin(), ActionStaff, []string{"pending"})
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func TestLifecycleExpiry(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy(pacific)
	today := policy.Today(referenceNow)
	soon := today.AddDate(0, 0, policy.ExpiryReminderDays)

	due := pendingReservation("due", at(time.March, 20, 19, 0))
	due.ExpiresOn = &today
	later := pendingReservation("later", at(time.March, 21, 19, 0))
	later.ExpiresOn = &soon
	approved := pendingReservation("approved", at(time.March, 22, 19, 0))
	approved.Status = scheduler.StatusApproved
	approved.ExpiresOn = &today

	store := newStoreStub(due, later, approved)
	svc := newTestLifecycle(store, referenceNow)

	reminders, err := svc.ExpiringSoon(context.Background())
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "later", reminders[0].ID)

	count, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, scheduler.StatusExpired, store.get(t, "due").Status)
	assert.Equal(t, scheduler.StatusPending, store.get(t, "later").Status)
	assert.Equal(t, scheduler.StatusApproved, store.get(t, "approved").Status)
}

func TestLifecycleSuspension(t *testing.T) {
	t.Parallel()

	past := pendingReservation("past", at(time.March, 1, 19, 0))
	future := pendingReservation("future", at(time.March, 20, 19, 0))
	future.Status = scheduler.StatusApproved
	pending := pendingReservation("pending", at(time.March, 22, 19, 0))
	someoneElse := storedReservation("else", at(time.March, 20, 12, 0), at(time.March, 20, 13, 0))

	store := newStoreStub(past, future, pending, someoneElse)
	svc := newTestLifecycle(store, referenceNow)

	count, err := svc.SuspendOwner(context.Background(), memberEmail)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	held := store.get(t, "future")
	assert.Equal(t, scheduler.StatusOnHold, held.Status)
	assert.Equal(t, scheduler.StatusApproved, held.OriginalStatus)
	require.NotNil(t, held.OwnerSuspendedAt)
	assert.Equal(t, scheduler.StatusPending, store.get(t, "past").Status)
	assert.Equal(t, scheduler.StatusApproved, store.get(t, "else").Status)

	count, err = svc.SuspendOwner(context.Background(), memberEmail)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.RestoreOwner(context.Background(), memberEmail)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	restored := store.get(t, "future")
	assert.Equal(t, scheduler.StatusApproved, restored.Status)
	assert.Nil(t, restored.OwnerSuspendedAt)
	assert.Equal(t, scheduler.StatusPending, store.get(t, "pending").Status)
}

func TestLifecycleExpireSuspended(t *testing.T) {
	t.Parallel()

	store := newStoreStub(pendingReservation("r", at(time.May, 20, 19, 0)))
	_, err := newTestLifecycle(store, referenceNow).SuspendOwner(context.Background(), memberEmail)
	require.NoError(t, err)

	count, err := newTestLifecycle(store, referenceNow.Add(29*24*time.Hour)).ExpireSuspended(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = newTestLifecycle(store, referenceNow.Add(30*24*time.Hour)).ExpireSuspended(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, scheduler.StatusExpired, store.get(t, "r").Status)
}

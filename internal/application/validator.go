package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/membership"
	"github.com/example/facility-booking/internal/recurrence"
	"github.com/example/facility-booking/internal/scheduler"
)

const (
	msgLeadTime          = "Your event cannot start in less than %d days from now"
	msgNameRequired      = "Event name is required."
	msgDescription       = "You must provide a description of the event"
	msgPartySizeNumber   = "Estimated number of people must be a number"
	msgPartySizePositive = "Estimated number of people must be greater then zero"
	msgEndAfterStart     = "End time must be after start time"
	msgPhone             = "Phone number does not appear to be valid"
	msgRooms             = "You must select a room to reserve."
	msgSetupNegative     = "Setup time cannot be negative"
	msgTeardownNegative  = "Teardown time cannot be negative"
	msgTooManyRepeats    = "A recurring event may repeat at most %d times."
	msgRoomConflict      = "Room conflict detected"
	msgSharedConflict    = "Room conflict detected (Note: %s share the same area, two events cannot take place at the same time in these rooms.)"
	msgFutureCap         = "You may only have %d future events."
	msgFourWeekCap       = "You may only have %d events within a 4-week period."
	msgDailyCoworking    = "Hacker Dojo does not have enough space for all of our events+meetings+startups. As a result, we have to limit events during coworking hours (Monday through Friday, %s-%s). There is already an event booked for this date. Please try another date. Sorry about any inconvenience."
	msgSecondaryMissing  = "Need to specify second responsible member for multi-day event."
	msgSecondaryUnknown  = "'%s' is not the email of a member."
	msgBackendFailed     = "Backend API call failed. Please try again later."
)

// ReservationReader exposes the queries the validator issues against one
// consistent view of stored reservations.
type ReservationReader interface {
	// ListActive returns active reservations whose interval intersects [from, to).
	ListActive(ctx context.Context, from, to time.Time) ([]Reservation, error)
	// ListActiveByOwner returns the owner's active reservations starting at or after since.
	ListActiveByOwner(ctx context.Context, owner string, since time.Time) ([]Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
}

// ReservationSnapshotter runs fn against a read-only snapshot so that every
// query observes the same data.
type ReservationSnapshotter interface {
	Snapshot(ctx context.Context, fn func(ctx context.Context, reader ReservationReader) error) error
}

// MemberDirectory answers whether an email belongs to a member.
type MemberDirectory interface {
	IsMember(ctx context.Context, email string) (bool, error)
}

// Validator decides whether a proposed reservation, possibly recurring, may
// be booked.
type Validator struct {
	store    ReservationSnapshotter
	members  MemberDirectory
	expander *recurrence.Expander
	policy   Policy
	now      func() time.Time
	logger   *slog.Logger
}

// NewValidator wires dependencies for validation.
func NewValidator(store ReservationSnapshotter, members MemberDirectory, policy Policy, now func() time.Time, logger *slog.Logger) *Validator {
	if now == nil {
		now = time.Now
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Validator{
		store:    store,
		members:  members,
		expander: recurrence.NewExpander(policy.Location),
		policy:   policy,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// Policy returns the policy the validator enforces.
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate runs every check against the proposal and returns the concrete
// occurrences to book. The first failing check determines the returned
// *ValidationError. Checks run in a fixed order: required fields, lead time,
// phone format, the daily rule and room conflicts per occurrence, both
// quotas over the batch, and finally the secondary owner for long events.
func (v *Validator) Validate(ctx context.Context, params ValidateParams) (Validation, error) {
	if v == nil {
		return Validation{}, fmt.Errorf("Validator is nil")
	}
	owner := params.Owner
	if owner == "" {
		owner = params.Principal.Email
	}
	ec := scheduler.EvaluationContext{
		ActingAsPrivileged: params.Principal.IsAdmin && !params.Input.EvaluateAsMember,
		ExcludeID:          params.EditingID,
	}
	logger := serviceLogger(ctx, v.logger, "Validator", "Validate",
		"owner", owner,
		"privileged", ec.ActingAsPrivileged,
		"editing_id", params.EditingID,
	)

	input := params.Input
	input.Rooms = scheduler.UniqueRooms(input.Rooms)

	if vErr := validateRequired(input); vErr != nil {
		logger.InfoContext(ctx, "proposal rejected", "error_kind", string(vErr.Kind))
		return Validation{}, vErr
	}

	now := v.now()
	if !ec.ActingAsPrivileged {
		earliest := v.policy.Today(now).AddDate(0, 0, v.policy.LeadDays)
		if input.Start.Before(earliest) {
			return Validation{}, newValidationError(KindLeadTime, fmt.Sprintf(msgLeadTime, v.policy.LeadDays))
		}
	} else {
		logger.DebugContext(ctx, "privileged actor, skipping lead time requirement")
	}

	if input.ContactPhone != "" && !IsPhoneValid(input.ContactPhone) {
		vErr := &ValidationError{Kind: KindInvalidPhone}
		vErr.add("contact_phone", msgPhone)
		return Validation{}, vErr
	}

	descriptor, err := toDescriptor(input.Recurrence)
	if err != nil {
		return Validation{}, err
	}
	if descriptor != nil {
		if vErr := v.checkRepetitions(descriptor.Repetitions, ec); vErr != nil {
			logger.InfoContext(ctx, "proposal rejected", "error_kind", string(vErr.Kind), "repetitions", descriptor.Repetitions)
			return Validation{}, vErr
		}
	}
	expanded, description, err := v.expander.Expand(input.Start, input.End, descriptor)
	if err != nil {
		if errors.Is(err, recurrence.ErrUnknownFrequency) {
			logger.ErrorContext(ctx, "got unknown frequency for recurring event", "severity", "critical", "error", err)
			return Validation{}, fmt.Errorf("expand recurrence: %w", err)
		}
		vErr := &ValidationError{Kind: KindInvalidRecurrence}
		vErr.add("recurrence", err.Error())
		return Validation{}, vErr
	}

	occurrences := make([]Occurrence, len(expanded))
	starts := make([]time.Time, len(expanded))
	for i, occ := range expanded {
		occurrences[i] = Occurrence{Start: occ.Start, End: occ.End}
		starts[i] = occ.Start
	}

	if v.store != nil {
		err := v.store.Snapshot(ctx, func(ctx context.Context, reader ReservationReader) error {
			return v.checkAgainstExisting(ctx, reader, input, owner, occurrences, starts, now, ec)
		})
		if err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				logger.InfoContext(ctx, "proposal rejected", "error_kind", string(vErr.Kind))
			} else {
				logger.ErrorContext(ctx, "failed to load reservations", "error", err)
			}
			return Validation{}, err
		}
	}

	secondary, err := v.checkSecondaryOwner(ctx, logger, input)
	if err != nil {
		return Validation{}, err
	}

	logger.DebugContext(ctx, "proposal accepted", "occurrences", len(occurrences))
	return Validation{
		Owner:          owner,
		Occurrences:    occurrences,
		Description:    description,
		SecondaryOwner: secondary,
	}, nil
}

func (v *Validator) checkAgainstExisting(ctx context.Context, reader ReservationReader, input ReservationInput, owner string, occurrences []Occurrence, starts []time.Time, now time.Time, ec scheduler.EvaluationContext) error {
	rules := v.policy.Rules
	first := occurrences[0]
	last := occurrences[len(occurrences)-1]

	padBefore := time.Duration(max(input.SetupMinutes, rules.MinSpacingMinutes)) * time.Minute
	padAfter := time.Duration(max(input.TeardownMinutes, rules.MinSpacingMinutes)) * time.Minute
	from := minTime(v.policy.Today(first.Start), first.Start.Add(-padBefore))
	to := maxTime(v.policy.Today(last.Start).AddDate(0, 0, 1), last.End.Add(padAfter))

	nearby, err := reader.ListActive(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	existing := toEngine(nearby)

	daily := scheduler.DailyRule{Hours: rules.BusinessHours}
	for _, occ := range occurrences {
		if err := daily.Check(existing, occ.Start.In(v.policy.Location), ec); err != nil {
			return newValidationError(KindDailyCoworking, v.dailyMessage())
		}
		conflicts := scheduler.FindConflicts(existing, scheduler.Proposal{
			Start:           occ.Start,
			End:             occ.End,
			SetupMinutes:    input.SetupMinutes,
			TeardownMinutes: input.TeardownMinutes,
			Rooms:           input.Rooms,
		}, rules.MinSpacingMinutes, ec)
		if len(conflicts) == 0 {
			continue
		}
		if scheduler.SharesPhysicalSpace(input.Rooms, rules.SharedSpaceRooms) {
			return newValidationError(KindSharedSpaceConflict,
				fmt.Sprintf(msgSharedConflict, strings.Join(rules.SharedSpaceRooms, " & ")))
		}
		vErr := newValidationError(KindRoomConflict, msgRoomConflict)
		vErr.FieldErrors = map[string]string{"rooms": strings.Join(conflicts[0].Rooms, ", ")}
		return vErr
	}

	if ec.ActingAsPrivileged {
		return nil
	}

	since := minTime(now, first.Start.Add(-scheduler.FourWeeks))
	owned, err := reader.ListActiveByOwner(ctx, owner, since)
	if err != nil {
		return fmt.Errorf("list owner reservations: %w", err)
	}
	mine := toEngine(owned)
	if err := scheduler.CheckFutureCap(mine, now, len(occurrences), rules.FutureCap, ec); err != nil {
		return newValidationError(KindFutureCap, fmt.Sprintf(msgFutureCap, rules.FutureCap))
	}
	if err := scheduler.CheckFourWeekWindow(mine, starts, rules.FourWeekCap, ec); err != nil {
		return newValidationError(KindFourWeekCap, fmt.Sprintf(msgFourWeekCap, rules.FourWeekCap))
	}
	return nil
}

// checkRepetitions rejects series that could never be booked before they are
// expanded. A member's series larger than the future cap always fails it.
func (v *Validator) checkRepetitions(repetitions int, ec scheduler.EvaluationContext) *ValidationError {
	rules := v.policy.Rules
	if rules.MaxRepetitions > 0 && repetitions > rules.MaxRepetitions {
		vErr := &ValidationError{Kind: KindInvalidRecurrence}
		vErr.add("recurrence", fmt.Sprintf(msgTooManyRepeats, rules.MaxRepetitions))
		return vErr
	}
	if ec.ActingAsPrivileged {
		return nil
	}
	added := repetitions
	if ec.Editing() {
		added--
	}
	if added > rules.FutureCap {
		return newValidationError(KindFutureCap, fmt.Sprintf(msgFutureCap, rules.FutureCap))
	}
	return nil
}

func (v *Validator) checkSecondaryOwner(ctx context.Context, logger *slog.Logger, input ReservationInput) (string, error) {
	if input.End.Sub(input.Start) < v.policy.SecondaryOwnerSpan {
		return "", nil
	}
	secondary := strings.TrimSpace(input.SecondaryOwner)
	if secondary == "" {
		return "", newValidationError(KindSecondaryMember, msgSecondaryMissing)
	}
	if v.members == nil {
		return secondary, nil
	}
	member, err := v.members.IsMember(ctx, secondary)
	if err != nil {
		logger.WarnContext(ctx, "membership lookup failed", "error", err)
		if errors.Is(err, membership.ErrLookupFailed) {
			return "", newValidationError(KindSecondaryMember, msgBackendFailed)
		}
		return "", err
	}
	if !member {
		return "", newValidationError(KindSecondaryMember, fmt.Sprintf(msgSecondaryUnknown, secondary))
	}
	return secondary, nil
}

func (v *Validator) dailyMessage() string {
	hours := v.policy.Rules.BusinessHours
	return fmt.Sprintf(msgDailyCoworking, formatHour(hours.StartHour), formatHour(hours.EndHour))
}

func formatHour(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("3PM")
}

func validateRequired(input ReservationInput) *ValidationError {
	vErr := &ValidationError{Kind: KindMissingField}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", msgNameRequired)
	}
	if strings.TrimSpace(input.Description) == "" {
		vErr.add("details", msgDescription)
	}
	if size, err := strconv.Atoi(strings.TrimSpace(input.PartySize)); err != nil {
		vErr.add("estimated_size", msgPartySizeNumber)
	} else if size <= 0 {
		vErr.add("estimated_size", msgPartySizePositive)
	}
	if input.Start.IsZero() || input.End.IsZero() || !input.End.After(input.Start) {
		vErr.add("end_time", msgEndAfterStart)
	}
	if len(input.Rooms) == 0 {
		vErr.add("rooms", msgRooms)
	}
	if input.SetupMinutes < 0 {
		vErr.add("setup_minutes", msgSetupNegative)
	}
	if input.TeardownMinutes < 0 {
		vErr.add("teardown_minutes", msgTeardownNegative)
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func toDescriptor(input *RecurrenceInput) (*recurrence.Descriptor, error) {
	if input == nil {
		return nil, nil
	}
	d := &recurrence.Descriptor{
		Frequency:    recurrence.Frequency(strings.ToLower(strings.TrimSpace(input.Frequency))),
		Repetitions:  input.Repetitions,
		Ordinal:      input.Ordinal,
		WeekdaysOnly: input.WeekdaysOnly,
	}
	if d.Frequency == recurrence.FrequencyMonthly {
		weekday, err := recurrence.ParseWeekday(input.Weekday)
		if err != nil {
			vErr := &ValidationError{Kind: KindInvalidRecurrence}
			vErr.add("recurrence", err.Error())
			return nil, vErr
		}
		d.Weekday = weekday
	}
	return d, nil
}

func toEngine(reservations []Reservation) []scheduler.Reservation {
	out := make([]scheduler.Reservation, len(reservations))
	for i, r := range reservations {
		out[i] = r.Reservation
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

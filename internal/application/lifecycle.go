package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/access"
	"github.com/example/facility-booking/internal/scheduler"
)

// Action names a status change requested by a member or administrator.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionNotApprove Action = "notapproved"
	ActionOnHold     Action = "onhold"
	ActionCancel     Action = "cancel"
	ActionDelete     Action = "delete"
	ActionUndelete   Action = "undelete"
	ActionExpire     Action = "expire"
	ActionStaff      Action = "staff"
	ActionUnstaff    Action = "unstaff"
)

// ParseAction converts a submitted action name into an Action.
func ParseAction(value string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := transitions[action]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, value)
	}
	return action, nil
}

type capability int

const (
	capabilityAdmin capability = iota
	capabilityAdminNotOwner
	capabilityAdminOrOwner
	capabilityMember
)

type transitionRule struct {
	capability capability
	// from lists the statuses the action may start from; nil allows any.
	from []scheduler.Status
	// except lists statuses the action may never start from.
	except []scheduler.Status
	// target computes the resulting reservation.
	target func(r Reservation, actor Principal, policy Policy) Reservation
}

func setStatus(status scheduler.Status) func(Reservation, Principal, Policy) Reservation {
	return func(r Reservation, _ Principal, _ Policy) Reservation {
		r.Status = status
		return r
	}
}

var transitions = map[Action]transitionRule{
	ActionApprove: {
		capability: capabilityAdminNotOwner,
		from:       []scheduler.Status{scheduler.StatusPending, scheduler.StatusOnHold, scheduler.StatusNotApproved},
		target: func(r Reservation, _ Principal, policy Policy) Reservation {
			if len(r.Staff) >= policy.MinStaff {
				r.Status = scheduler.StatusApproved
				r.ExpiresOn = nil
			} else {
				r.Status = scheduler.StatusUnderstaffed
			}
			return r
		},
	},
	ActionNotApprove: {
		capability: capabilityAdmin,
		except:     []scheduler.Status{scheduler.StatusNotApproved},
		target:     setStatus(scheduler.StatusNotApproved),
	},
	ActionOnHold: {
		capability: capabilityAdminOrOwner,
		except:     []scheduler.Status{scheduler.StatusOnHold},
		target:     setStatus(scheduler.StatusOnHold),
	},
	ActionCancel: {
		capability: capabilityAdminOrOwner,
		except:     []scheduler.Status{scheduler.StatusCanceled},
		target:     setStatus(scheduler.StatusCanceled),
	},
	ActionDelete: {
		capability: capabilityAdminOrOwner,
		except:     []scheduler.Status{scheduler.StatusDeleted},
		target:     setStatus(scheduler.StatusDeleted),
	},
	ActionUndelete: {
		capability: capabilityAdmin,
		from:       []scheduler.Status{scheduler.StatusDeleted},
		target:     setStatus(scheduler.StatusPending),
	},
	ActionExpire: {
		capability: capabilityAdmin,
		except:     []scheduler.Status{scheduler.StatusExpired},
		target:     setStatus(scheduler.StatusExpired),
	},
	ActionStaff: {
		capability: capabilityMember,
		from:       []scheduler.Status{scheduler.StatusPending, scheduler.StatusUnderstaffed, scheduler.StatusApproved},
		target: func(r Reservation, actor Principal, policy Policy) Reservation {
			r.Staff = append(append([]string(nil), r.Staff...), actor.Email)
			if r.Status == scheduler.StatusUnderstaffed && len(r.Staff) >= policy.MinStaff {
				r.Status = scheduler.StatusApproved
			}
			return r
		},
	},
	ActionUnstaff: {
		capability: capabilityMember,
		except:     []scheduler.Status{scheduler.StatusCanceled, scheduler.StatusDeleted},
		target: func(r Reservation, actor Principal, policy Policy) Reservation {
			staff := make([]string, 0, len(r.Staff))
			for _, s := range r.Staff {
				if s != actor.Email {
					staff = append(staff, s)
				}
			}
			r.Staff = staff
			if r.Status == scheduler.StatusApproved && len(r.Staff) < policy.MinStaff {
				r.Status = scheduler.StatusUnderstaffed
			}
			return r
		},
	},
}

// Transition applies action to r on behalf of actor without touching
// storage. It returns ErrUnauthorized when the actor lacks the capability the
// action requires and ErrInvalidTransition when r's status does not allow it.
func Transition(r Reservation, action Action, actor Principal, today time.Time, policy Policy) (Reservation, error) {
	rule, ok := transitions[action]
	if !ok {
		return Reservation{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	isOwner := actor.Email != "" && strings.EqualFold(actor.Email, r.Owner)
	switch rule.capability {
	case capabilityAdmin:
		if !actor.IsAdmin {
			return Reservation{}, ErrUnauthorized
		}
	case capabilityAdminNotOwner:
		if !actor.IsAdmin || isOwner {
			return Reservation{}, ErrUnauthorized
		}
	case capabilityAdminOrOwner:
		if !actor.IsAdmin && !isOwner {
			return Reservation{}, ErrUnauthorized
		}
	case capabilityMember:
		if actor.Email == "" {
			return Reservation{}, ErrUnauthorized
		}
	}

	if rule.from != nil && !containsStatus(rule.from, r.Status) {
		return Reservation{}, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, r.Status)
	}
	if containsStatus(rule.except, r.Status) {
		return Reservation{}, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, r.Status)
	}

	switch action {
	case ActionStaff:
		if r.IsStaffedBy(actor.Email) {
			return Reservation{}, fmt.Errorf("%w: already staffing", ErrInvalidTransition)
		}
	case ActionUnstaff:
		if !r.IsStaffedBy(actor.Email) {
			return Reservation{}, fmt.Errorf("%w: not staffing", ErrInvalidTransition)
		}
	case ActionApprove:
		if !r.Start.Before(today.Add(policy.ApprovalHorizon)) {
			return Reservation{}, newValidationError(KindApprovalHorizon,
				fmt.Sprintf("This event cannot be approved because the date is in more than %d weeks.", int(policy.ApprovalHorizon/(7*24*time.Hour))))
		}
	}

	return rule.target(r, actor, policy), nil
}

func containsStatus(statuses []scheduler.Status, status scheduler.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// BulkCheckResult reports whether an action would succeed on one reservation.
type BulkCheckResult struct {
	ReservationID string
	Allowed       bool
	Reason        string
}

var bulkActions = map[Action]struct{}{
	ActionApprove:    {},
	ActionNotApprove: {},
	ActionOnHold:     {},
	ActionDelete:     {},
}

// LifecycleService applies status changes and the periodic expiry sweeps.
type LifecycleService struct {
	reservations ReservationRepository
	policy       Policy
	idGenerator  func() string
	now          func() time.Time
	secrets      func() (string, error)
	logger       *slog.Logger
}

// NewLifecycleService wires dependencies for status changes.
func NewLifecycleService(reservations ReservationRepository, policy Policy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LifecycleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &LifecycleService{
		reservations: reservations,
		policy:       policy,
		idGenerator:  idGenerator,
		now:          now,
		secrets:      access.GenerateSecret,
		logger:       defaultLogger(logger),
	}
}

// Perform applies action to the reservation and records it in the audit log.
// Approval assigns the access secret when the reservation has none yet.
func (s *LifecycleService) Perform(ctx context.Context, principal Principal, reservationID string, action Action) (Reservation, error) {
	if s == nil || s.reservations == nil {
		return Reservation{}, fmt.Errorf("LifecycleService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "LifecycleService", "Perform",
		"principal_email", principal.Email,
		"reservation_id", reservationID,
		"action", string(action),
	)

	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}

	now := s.now()
	updated, err := Transition(existing, action, principal, s.policy.Today(now), s.policy)
	if err != nil {
		logger.WarnContext(ctx, "status change refused", "error_kind", ErrorKind(err), "status", string(existing.Status))
		return Reservation{}, err
	}
	if action == ActionApprove && updated.Secret == "" {
		secret, err := s.secrets()
		if err != nil {
			return Reservation{}, err
		}
		updated.Secret = secret
	}
	updated.UpdatedAt = now

	if err := s.save(ctx, existing, updated, principal.Email, string(action), ""); err != nil {
		logger.ErrorContext(ctx, "failed to store status change", "error", err)
		return Reservation{}, err
	}
	logger.InfoContext(ctx, "status changed", "from", string(existing.Status), "to", string(updated.Status))
	return updated, nil
}

// CheckBulk reports, without changing anything, which of the reservations
// the principal could move with action.
func (s *LifecycleService) CheckBulk(ctx context.Context, principal Principal, action Action, ids []string) ([]BulkCheckResult, error) {
	if s == nil || s.reservations == nil {
		return nil, fmt.Errorf("LifecycleService is nil")
	}
	if _, ok := bulkActions[action]; !ok {
		return nil, fmt.Errorf("%w: %q cannot be checked in bulk", ErrUnknownAction, action)
	}

	today := s.policy.Today(s.now())
	results := make([]BulkCheckResult, 0, len(ids))
	for _, id := range ids {
		result := BulkCheckResult{ReservationID: id}
		existing, err := s.reservations.GetReservation(ctx, id)
		if err != nil {
			err = mapReservationRepoError(err)
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			result.Reason = "not found"
			results = append(results, result)
			continue
		}
		if _, err := Transition(existing, action, principal, today, s.policy); err != nil {
			result.Reason = err.Error()
		} else {
			result.Allowed = true
		}
		results = append(results, result)
	}
	return results, nil
}

// ExpireDue expires pending and understaffed reservations whose expiry date
// is today. It returns the number of reservations expired.
func (s *LifecycleService) ExpireDue(ctx context.Context) (int, error) {
	today := s.policy.Today(s.now())
	due, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses:  []scheduler.Status{scheduler.StatusPending, scheduler.StatusUnderstaffed},
		ExpiresOn: &today,
	})
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, "ExpireDue", due, "expire", func(r Reservation) Reservation {
		r.Status = scheduler.StatusExpired
		return r
	})
}

// ExpiringSoon lists pending and understaffed reservations that will expire
// after the reminder interval.
func (s *LifecycleService) ExpiringSoon(ctx context.Context) ([]Reservation, error) {
	day := s.policy.Today(s.now()).AddDate(0, 0, s.policy.ExpiryReminderDays)
	return s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses:  []scheduler.Status{scheduler.StatusPending, scheduler.StatusUnderstaffed},
		ExpiresOn: &day,
	})
}

// SuspendOwner puts the owner's future active reservations on hold and
// remembers their previous status.
func (s *LifecycleService) SuspendOwner(ctx context.Context, owner string) (int, error) {
	now := s.now()
	future, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses:    scheduler.ActiveStatuses(),
		Owner:       owner,
		StartsAfter: &now,
	})
	if err != nil {
		return 0, err
	}
	pending := future[:0]
	for _, r := range future {
		if r.OwnerSuspendedAt == nil {
			pending = append(pending, r)
		}
	}
	return s.sweep(ctx, "SuspendOwner", pending, "suspend", func(r Reservation) Reservation {
		suspendedAt := now
		r.OriginalStatus = r.Status
		r.Status = scheduler.StatusOnHold
		r.OwnerSuspendedAt = &suspendedAt
		return r
	})
}

// RestoreOwner reverts the reservations put on hold by SuspendOwner.
func (s *LifecycleService) RestoreOwner(ctx context.Context, owner string) (int, error) {
	now := s.now()
	held, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses:        []scheduler.Status{scheduler.StatusOnHold},
		Owner:           owner,
		SuspendedBefore: &now,
	})
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, "RestoreOwner", held, "restore", func(r Reservation) Reservation {
		if r.OriginalStatus != "" {
			r.Status = r.OriginalStatus
		} else {
			r.Status = scheduler.StatusPending
		}
		r.OriginalStatus = ""
		r.OwnerSuspendedAt = nil
		return r
	})
}

// ExpireSuspended expires reservations whose owner has stayed suspended for
// longer than the policy allows.
func (s *LifecycleService) ExpireSuspended(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.policy.SuspendedExpiry)
	held, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses:        []scheduler.Status{scheduler.StatusOnHold},
		SuspendedBefore: &cutoff,
	})
	if err != nil {
		return 0, err
	}
	return s.sweep(ctx, "ExpireSuspended", held, "expire", func(r Reservation) Reservation {
		r.Status = scheduler.StatusExpired
		return r
	})
}

func (s *LifecycleService) sweep(ctx context.Context, operation string, reservations []Reservation, action string, apply func(Reservation) Reservation) (int, error) {
	logger := serviceLogger(ctx, s.logger, "LifecycleService", operation)
	now := s.now()
	count := 0
	for _, existing := range reservations {
		updated := apply(existing)
		updated.UpdatedAt = now
		if err := s.save(ctx, existing, updated, "system", action, operation); err != nil {
			logger.ErrorContext(ctx, "failed to store sweep result", "reservation_id", existing.ID, "error", err)
			return count, err
		}
		count++
	}
	if count > 0 {
		logger.InfoContext(ctx, "sweep completed", "count", count)
	}
	return count, nil
}

func (s *LifecycleService) save(ctx context.Context, before, after Reservation, actor, action, note string) error {
	entry := AuditEntry{
		ID:            s.idGenerator(),
		ReservationID: after.ID,
		Actor:         actor,
		Action:        action,
		FromStatus:    before.Status,
		ToStatus:      after.Status,
		Note:          note,
		CreatedAt:     after.UpdatedAt,
	}
	return mapReservationRepoError(s.reservations.SaveTransition(ctx, after, entry))
}

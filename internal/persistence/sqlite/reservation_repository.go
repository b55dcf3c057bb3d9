package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/persistence"
)

const (
	// timeLayout is fixed-width UTC so that stored instants compare correctly as text.
	timeLayout = "2006-01-02T15:04:05Z"
	dateLayout = "2006-01-02"

	// childBatchSize bounds the number of bind variables in one IN clause.
	childBatchSize = 500
)

var activeStatuses = []string{"approved", "pending", "onhold"}

const reservationColumns = `id, series_id, owner, secondary_owner, name, description, party_size,
	contact_name, contact_phone, start_time, end_time, setup_minutes, teardown_minutes,
	status, original_status, secret, owner_suspended_at, expires_on, recurrence_description,
	created_at, updated_at`

const (
	paddedStart = `strftime('%Y-%m-%dT%H:%M:%SZ', start_time, printf('-%d minutes', setup_minutes))`
	paddedEnd   = `strftime('%Y-%m-%dT%H:%M:%SZ', end_time, printf('+%d minutes', teardown_minutes))`
)

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	reader reservationReader
	now    func() time.Time
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	mapper := NewErrorMapper()
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: mapper,
		retry:  NewRetryHelper(DefaultRetryConfig()),
		reader: reservationReader{q: pool.DB(), mapper: mapper},
		now:    time.Now,
	}
}

// CreateReservations inserts every reservation in one transaction
func (r *ReservationRepository) CreateReservations(ctx context.Context, reservations []persistence.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	now := r.now().UTC()
	for i := range reservations {
		if err := validateReservation(reservations[i]); err != nil {
			return err
		}
		if reservations[i].CreatedAt.IsZero() {
			reservations[i].CreatedAt = now
		}
		if reservations[i].UpdatedAt.IsZero() {
			reservations[i].UpdatedAt = now
		}
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, reservation := range reservations {
				if err := r.insertReservation(ctx, tx, reservation); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	return r.reader.GetReservation(ctx, id)
}

// ListActive implements persistence.ReservationReader
func (r *ReservationRepository) ListActive(ctx context.Context, from, to time.Time) ([]persistence.Reservation, error) {
	return r.reader.ListActive(ctx, from, to)
}

// ListActiveByOwner implements persistence.ReservationReader
func (r *ReservationRepository) ListActiveByOwner(ctx context.Context, owner string, since time.Time) ([]persistence.Reservation, error) {
	return r.reader.ListActiveByOwner(ctx, owner, since)
}

// ListReservations lists reservations filtered by the provided filter
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query, args := buildListQuery(filter)
	return r.reader.query(ctx, query, args...)
}

// Snapshot runs fn inside a read-only transaction so every read sees the same state
func (r *ReservationRepository) Snapshot(ctx context.Context, fn func(ctx context.Context, reader persistence.ReservationReader) error) error {
	return r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, reservationReader{q: tx, mapper: r.mapper})
	})
}

// SaveTransition updates the reservation, replaces its rooms and staff, and
// appends the audit entry in one transaction
func (r *ReservationRepository) SaveTransition(ctx context.Context, reservation persistence.Reservation, entry persistence.AuditEntry) error {
	if reservation.ID == "" || entry.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := validateReservation(reservation); err != nil {
		return err
	}

	now := r.now().UTC()
	reservation.UpdatedAt = now
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.ReservationID = reservation.ID

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			query := `
				UPDATE reservations
				SET secondary_owner = ?, name = ?, description = ?, party_size = ?, contact_name = ?, contact_phone = ?,
					start_time = ?, end_time = ?, setup_minutes = ?, teardown_minutes = ?, status = ?, original_status = ?,
					secret = ?, owner_suspended_at = ?, expires_on = ?, updated_at = ?
				WHERE id = ?
			`
			result, err := r.helper.ExecTx(ctx, tx, query,
				nullString(reservation.SecondaryOwner),
				reservation.Name,
				reservation.Description,
				reservation.PartySize,
				nullString(reservation.ContactName),
				nullString(reservation.ContactPhone),
				formatTime(reservation.Start),
				formatTime(reservation.End),
				reservation.SetupMinutes,
				reservation.TeardownMinutes,
				reservation.Status,
				nullString(reservation.OriginalStatus),
				nullString(reservation.Secret),
				nullTime(reservation.OwnerSuspendedAt),
				nullDate(reservation.ExpiresOn),
				formatTime(reservation.UpdatedAt),
				reservation.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return persistence.ErrNotFound
			}

			if err := r.replaceChildren(ctx, tx, reservation); err != nil {
				return err
			}

			_, err = r.helper.ExecTx(ctx, tx, `
				INSERT INTO audit_entries (id, reservation_id, actor, action, from_status, to_status, note, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				entry.ID,
				entry.ReservationID,
				entry.Actor,
				entry.Action,
				nullString(entry.FromStatus),
				nullString(entry.ToStatus),
				nullString(entry.Note),
				formatTime(entry.CreatedAt),
			)
			return r.mapper.MapError(err)
		})
	})
}

// ListAuditEntries returns the audit trail of a reservation, oldest first
func (r *ReservationRepository) ListAuditEntries(ctx context.Context, reservationID string) ([]persistence.AuditEntry, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, reservation_id, actor, action, from_status, to_status, note, created_at
		FROM audit_entries
		WHERE reservation_id = ?
		ORDER BY created_at ASC, id ASC`, reservationID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.AuditEntry
	for rows.Next() {
		var entry persistence.AuditEntry
		var fromStatus, toStatus, note sql.NullString
		var createdAtStr string
		if err := rows.Scan(&entry.ID, &entry.ReservationID, &entry.Actor, &entry.Action, &fromStatus, &toStatus, &note, &createdAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		entry.FromStatus = fromStatus.String
		entry.ToStatus = toStatus.String
		entry.Note = note.String
		if entry.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return entries, nil
}

func (r *ReservationRepository) insertReservation(ctx context.Context, tx *sql.Tx, reservation persistence.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.ExecTx(ctx, tx, query,
		reservation.ID,
		nullString(reservation.SeriesID),
		reservation.Owner,
		nullString(reservation.SecondaryOwner),
		reservation.Name,
		reservation.Description,
		reservation.PartySize,
		nullString(reservation.ContactName),
		nullString(reservation.ContactPhone),
		formatTime(reservation.Start),
		formatTime(reservation.End),
		reservation.SetupMinutes,
		reservation.TeardownMinutes,
		reservation.Status,
		nullString(reservation.OriginalStatus),
		nullString(reservation.Secret),
		nullTime(reservation.OwnerSuspendedAt),
		nullDate(reservation.ExpiresOn),
		nullString(reservation.RecurrenceDescription),
		formatTime(reservation.CreatedAt),
		formatTime(reservation.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return r.insertChildren(ctx, tx, reservation)
}

func (r *ReservationRepository) replaceChildren(ctx context.Context, tx *sql.Tx, reservation persistence.Reservation) error {
	for _, table := range []string{"reservation_rooms", "reservation_staff"} {
		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM "+table+" WHERE reservation_id = ?", reservation.ID); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return r.insertChildren(ctx, tx, reservation)
}

func (r *ReservationRepository) insertChildren(ctx context.Context, tx *sql.Tx, reservation persistence.Reservation) error {
	for i, room := range uniqueStrings(reservation.Rooms) {
		if _, err := r.helper.ExecTx(ctx, tx,
			"INSERT INTO reservation_rooms (reservation_id, position, room) VALUES (?, ?, ?)",
			reservation.ID, i, room); err != nil {
			return r.mapper.MapError(err)
		}
	}
	for i, email := range uniqueStrings(reservation.Staff) {
		if _, err := r.helper.ExecTx(ctx, tx,
			"INSERT INTO reservation_staff (reservation_id, position, email) VALUES (?, ?, ?)",
			reservation.ID, i, email); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// reservationReader runs the read queries against either the pool or a
// snapshot transaction.
type reservationReader struct {
	q      Querier
	mapper *ErrorMapper
}

func (rr reservationReader) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	found, err := rr.query(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id)
	if err != nil {
		return persistence.Reservation{}, err
	}
	if len(found) == 0 {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return found[0], nil
}

func (rr reservationReader) ListActive(ctx context.Context, from, to time.Time) ([]persistence.Reservation, error) {
	query := "SELECT " + reservationColumns + " FROM reservations WHERE status IN (" + placeholders(len(activeStatuses)) + ")" +
		" AND " + paddedStart + " < ? AND " + paddedEnd + " > ?" +
		" ORDER BY start_time ASC, id ASC"
	args := stringArgs(activeStatuses)
	args = append(args, formatTime(to), formatTime(from))
	return rr.query(ctx, query, args...)
}

func (rr reservationReader) ListActiveByOwner(ctx context.Context, owner string, since time.Time) ([]persistence.Reservation, error) {
	query, args := buildListQuery(persistence.ReservationFilter{
		Statuses:    activeStatuses,
		Owner:       owner,
		StartsAfter: &since,
	})
	return rr.query(ctx, query, args...)
}

// query scans every matching row before loading rooms and staff, so a
// single-connection pool is never asked for a second connection.
func (rr reservationReader) query(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := rr.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, rr.mapper.MapError(err)
	}

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, rr.mapper.MapError(err)
	}
	rows.Close()

	if len(reservations) == 0 {
		return reservations, nil
	}

	ids := make([]string, len(reservations))
	for i, reservation := range reservations {
		ids[i] = reservation.ID
	}
	rooms, err := rr.loadChildren(ctx, "reservation_rooms", "room", ids)
	if err != nil {
		return nil, err
	}
	staff, err := rr.loadChildren(ctx, "reservation_staff", "email", ids)
	if err != nil {
		return nil, err
	}
	for i := range reservations {
		reservations[i].Rooms = rooms[reservations[i].ID]
		reservations[i].Staff = staff[reservations[i].ID]
	}
	return reservations, nil
}

func (rr reservationReader) loadChildren(ctx context.Context, table, column string, ids []string) (map[string][]string, error) {
	children := make(map[string][]string, len(ids))
	for start := 0; start < len(ids); start += childBatchSize {
		end := min(start+childBatchSize, len(ids))
		batch := ids[start:end]

		query := fmt.Sprintf("SELECT reservation_id, %s FROM %s WHERE reservation_id IN (%s) ORDER BY reservation_id, position",
			column, table, placeholders(len(batch)))
		rows, err := rr.q.QueryContext(ctx, query, stringArgs(batch)...)
		if err != nil {
			return nil, rr.mapper.MapError(err)
		}
		for rows.Next() {
			var id, value string
			if err := rows.Scan(&id, &value); err != nil {
				rows.Close()
				return nil, rr.mapper.MapError(err)
			}
			children[id] = append(children[id], value)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, rr.mapper.MapError(err)
		}
	}
	return children, nil
}

func scanReservation(rows *sql.Rows) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var seriesID, secondaryOwner, contactName, contactPhone, originalStatus, secret sql.NullString
	var suspendedAt, expiresOn, recurrenceDescription sql.NullString
	var startStr, endStr, createdAtStr, updatedAtStr string

	err := rows.Scan(
		&reservation.ID,
		&seriesID,
		&reservation.Owner,
		&secondaryOwner,
		&reservation.Name,
		&reservation.Description,
		&reservation.PartySize,
		&contactName,
		&contactPhone,
		&startStr,
		&endStr,
		&reservation.SetupMinutes,
		&reservation.TeardownMinutes,
		&reservation.Status,
		&originalStatus,
		&secret,
		&suspendedAt,
		&expiresOn,
		&recurrenceDescription,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Reservation{}, fmt.Errorf("scan reservation: %w", err)
	}

	reservation.SeriesID = seriesID.String
	reservation.SecondaryOwner = secondaryOwner.String
	reservation.ContactName = contactName.String
	reservation.ContactPhone = contactPhone.String
	reservation.OriginalStatus = originalStatus.String
	reservation.Secret = secret.String
	reservation.RecurrenceDescription = recurrenceDescription.String

	if reservation.Start, err = parseTime(startStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if reservation.End, err = parseTime(endStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if reservation.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if suspendedAt.Valid {
		t, err := parseTime(suspendedAt.String)
		if err != nil {
			return persistence.Reservation{}, fmt.Errorf("failed to parse owner_suspended_at: %w", err)
		}
		reservation.OwnerSuspendedAt = &t
	}
	if expiresOn.Valid {
		t, err := time.Parse(dateLayout, expiresOn.String)
		if err != nil {
			return persistence.Reservation{}, fmt.Errorf("failed to parse expires_on: %w", err)
		}
		reservation.ExpiresOn = &t
	}

	return reservation, nil
}

// buildListQuery constructs the SQL query for listing reservations with filters
func buildListQuery(filter persistence.ReservationFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(len(filter.Statuses))+")")
		args = append(args, stringArgs(filter.Statuses)...)
	}
	if filter.Owner != "" {
		conditions = append(conditions, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.Secret != "" {
		conditions = append(conditions, "secret = ?")
		args = append(args, filter.Secret)
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}
	if filter.ExpiresOn != nil {
		conditions = append(conditions, "expires_on = ?")
		args = append(args, filter.ExpiresOn.Format(dateLayout))
	}
	if filter.SuspendedBefore != nil {
		conditions = append(conditions, "owner_suspended_at IS NOT NULL AND owner_suspended_at <= ?")
		args = append(args, formatTime(*filter.SuspendedBefore))
	}

	query := "SELECT " + reservationColumns + " FROM reservations"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"
	return query, args
}

func validateReservation(reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.Owner == "" || reservation.Status == "" {
		return persistence.ErrConstraintViolation
	}
	if !reservation.End.After(reservation.Start) {
		return persistence.ErrConstraintViolation
	}
	if reservation.SetupMinutes < 0 || reservation.TeardownMinutes < 0 {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// nullDate keeps the calendar date as seen in the value's own location.
func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

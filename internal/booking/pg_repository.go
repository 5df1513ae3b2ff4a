package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Role,
		&p.Contact,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanOffering(row pgx.Row) (*Offering, error) {
	var o Offering
	var durationMinutes int

	err := row.Scan(
		&o.ID,
		&o.ProviderID,
		&o.Title,
		&o.Price,
		&durationMinutes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferingNotFound
		}
		return nil, err
	}

	o.Duration = time.Duration(durationMinutes) * time.Minute
	return &o, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var reason, notes *string
	var fee *int64

	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.ProviderID,
		&b.OfferingID,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.Price,
		&b.Notes,
		&reason,
		&notes,
		&fee,
		&b.HasReview,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if reason != nil {
		b.CancellationReason = *reason
	}
	if notes != nil {
		b.CancellationNotes = *notes
	}
	b.CancellationFee = fee
	return &b, nil
}

const bookingColumns = `id, customer_id, provider_id, offering_id, start_time, end_time, status,
		price, notes, cancellation_reason, cancellation_notes, cancellation_fee, has_review,
		created_at, updated_at`

// Interface methods

func (r *PgRepository) GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, role, contact, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id)
	return scanProfile(row)
}

func (r *PgRepository) GetOfferingByID(ctx context.Context, id uuid.UUID) (*Offering, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, title, price, duration_minutes, created_at, updated_at
		FROM offerings
		WHERE id = $1
	`, id)
	return scanOffering(row)
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) FindOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, providerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *PgRepository) CreateBooking(ctx context.Context, b *Booking) (*Booking, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings
			(id, customer_id, provider_id, offering_id, start_time, end_time, status, price, notes,
			 has_review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, false, now(), now())
		RETURNING `+bookingColumns+`
	`, id, b.CustomerID, b.ProviderID, b.OfferingID, b.StartTime, b.EndTime, b.Price, b.Notes)

	return scanBooking(row)
}

func (r *PgRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status, upd StatusUpdate) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    cancellation_reason = COALESCE($4, cancellation_reason),
		    cancellation_notes = COALESCE($5, cancellation_notes),
		    cancellation_fee = COALESCE($6, cancellation_fee),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns+`
	`, id, to, from, upd.CancellationReason, upd.CancellationNotes, upd.CancellationFee)

	return scanBooking(row)
}

func (r *PgRepository) MarkReviewed(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET has_review = true,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'completed'
		  AND has_review = false
		RETURNING `+bookingColumns+`
	`, id)

	return scanBooking(row)
}

func (r *PgRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, f ListFilter) ([]Booking, error) {
	return r.listByParty(ctx, "customer_id", customerID, f)
}

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, f ListFilter) ([]Booking, error) {
	return r.listByParty(ctx, "provider_id", providerID, f)
}

func (r *PgRepository) listByParty(ctx context.Context, column string, partyID uuid.UUID, f ListFilter) ([]Booking, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ` + column + ` = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY start_time DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, partyID, string(f.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *PgRepository) FindConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'confirmed'
		  AND start_time >= $1
		  AND start_time < $2
		ORDER BY customer_id, start_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

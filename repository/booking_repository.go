package repository

import (
	"context"
	"database/sql"
	"fmt"

	"BeatStudio/model"
)

// BookingRepository persists studio booking intake forms.
type BookingRepository interface {
	Create(ctx context.Context, b *model.StudioBooking) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.StudioBooking, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.StudioBooking, error)
	ListAll(ctx context.Context) ([]*model.StudioBooking, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	LinkRecording(ctx context.Context, id, recordingID int64) error
}

type mysqlBookingRepository struct {
	db *sql.DB
}

// NewMySQLBookingRepository creates a new mysqlBookingRepository.
func NewMySQLBookingRepository(db *sql.DB) BookingRepository {
	return &mysqlBookingRepository{db: db}
}

const bookingColumns = "id, user_id, name, phone, email, date, time_slot, service_type, with_engineer, need_mixing, comment, status, recording_id, created_at, updated_at"

func scanBooking(scanner interface{ Scan(...interface{}) error }) (*model.StudioBooking, error) {
	b := &model.StudioBooking{}
	var email, timeSlot, serviceType, comment sql.NullString
	var userID, recordingID sql.NullInt64
	err := scanner.Scan(&b.ID, &userID, &b.Name, &b.Phone, &email, &b.Date, &timeSlot, &serviceType,
		&b.WithEngineer, &b.NeedMixing, &comment, &b.Status, &recordingID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Email = email.String
	b.TimeSlot = timeSlot.String
	b.ServiceType = serviceType.String
	b.Comment = comment.String
	if userID.Valid {
		v := userID.Int64
		b.UserID = &v
	}
	if recordingID.Valid {
		v := recordingID.Int64
		b.RecordingID = &v
	}
	return b, nil
}

// Create inserts a new booking with status new. Anonymous intake forms
// carry a nil UserID and are stored with user_id NULL.
func (r *mysqlBookingRepository) Create(ctx context.Context, b *model.StudioBooking) (int64, error) {
	var userID sql.NullInt64
	if b.UserID != nil {
		userID = sql.NullInt64{Int64: *b.UserID, Valid: true}
	}
	query := `INSERT INTO studio_bookings (user_id, name, phone, email, date, time_slot, service_type, with_engineer, need_mixing, comment, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'new')`
	res, err := r.db.ExecContext(ctx, query, userID, b.Name, b.Phone, b.Email, b.Date, b.TimeSlot,
		b.ServiceType, b.WithEngineer, b.NeedMixing, b.Comment)
	if err != nil {
		return 0, fmt.Errorf("failed to execute create booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for booking: %w", err)
	}
	return id, nil
}

// GetByID retrieves a booking by its ID.
func (r *mysqlBookingRepository) GetByID(ctx context.Context, id int64) (*model.StudioBooking, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM studio_bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Booking not found
		}
		return nil, fmt.Errorf("failed to scan booking %d: %w", id, err)
	}
	return b, nil
}

func (r *mysqlBookingRepository) listBookings(ctx context.Context, query string, args ...interface{}) ([]*model.StudioBooking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*model.StudioBooking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListByUser returns a user's bookings, newest first.
func (r *mysqlBookingRepository) ListByUser(ctx context.Context, userID int64) ([]*model.StudioBooking, error) {
	return r.listBookings(ctx, "SELECT "+bookingColumns+" FROM studio_bookings WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// ListAll returns every booking for the staff workboard.
func (r *mysqlBookingRepository) ListAll(ctx context.Context) ([]*model.StudioBooking, error) {
	return r.listBookings(ctx, "SELECT "+bookingColumns+" FROM studio_bookings ORDER BY created_at DESC")
}

// UpdateStatus moves a booking along its approval workflow.
func (r *mysqlBookingRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE studio_bookings SET status = ? WHERE id = ?", status, id); err != nil {
		return fmt.Errorf("failed to update status of booking %d: %w", id, err)
	}
	return nil
}

// LinkRecording points a booking at the paid recording that realized it.
func (r *mysqlBookingRepository) LinkRecording(ctx context.Context, id, recordingID int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE studio_bookings SET recording_id = ? WHERE id = ?", recordingID, id); err != nil {
		return fmt.Errorf("failed to link recording %d to booking %d: %w", recordingID, id, err)
	}
	return nil
}

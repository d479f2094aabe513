package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BeatStudio/model"
)

// RecordingRepository persists studio recordings and their payment fields.
type RecordingRepository interface {
	Create(ctx context.Context, rec *model.Recording) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Recording, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Recording, error)
	ListAll(ctx context.Context) ([]*model.Recording, error)
	SetPaymentInfo(ctx context.Context, id int64, provider, paymentID, paymentStatus string) error
	SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error)
	MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error)
	CountPaidByUser(ctx context.Context, userID int64) (int, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	SetDeliveredTrack(ctx context.Context, id int64, trackPath string) error
}

type mysqlRecordingRepository struct {
	db *sql.DB
}

// NewMySQLRecordingRepository creates a new mysqlRecordingRepository.
func NewMySQLRecordingRepository(db *sql.DB) RecordingRepository {
	return &mysqlRecordingRepository{db: db}
}

const recordingColumns = "id, user_id, recording_type, music_style, price, status, provider, payment_id, payment_status, paid_at, beat_id, booking_id, track_path, created_at, updated_at"

func scanRecording(scanner interface{ Scan(...interface{}) error }) (*model.Recording, error) {
	rec := &model.Recording{}
	var musicStyle, provider, paymentID, paymentStatus, trackPath sql.NullString
	var paidAt sql.NullTime
	var beatID, bookingID sql.NullInt64
	err := scanner.Scan(&rec.ID, &rec.UserID, &rec.RecordingType, &musicStyle, &rec.Price, &rec.Status,
		&provider, &paymentID, &paymentStatus, &paidAt, &beatID, &bookingID, &trackPath,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.MusicStyle = musicStyle.String
	rec.Provider = provider.String
	rec.PaymentID = paymentID.String
	rec.PaymentStatus = paymentStatus.String
	rec.TrackPath = trackPath.String
	if paidAt.Valid {
		t := paidAt.Time
		rec.PaidAt = &t
	}
	if beatID.Valid {
		v := beatID.Int64
		rec.BeatID = &v
	}
	if bookingID.Valid {
		v := bookingID.Int64
		rec.BookingID = &v
	}
	return rec, nil
}

// Create inserts a new recording, defaulting status to pending.
func (r *mysqlRecordingRepository) Create(ctx context.Context, rec *model.Recording) (int64, error) {
	status := rec.Status
	if status == "" {
		status = model.RecordingPending
	}
	query := `INSERT INTO user_recordings (user_id, recording_type, music_style, price, status, beat_id, booking_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, rec.UserID, rec.RecordingType, rec.MusicStyle, rec.Price, status, rec.BeatID, rec.BookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to execute create recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for recording: %w", err)
	}
	return id, nil
}

// GetByID retrieves a recording by its ID.
func (r *mysqlRecordingRepository) GetByID(ctx context.Context, id int64) (*model.Recording, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+recordingColumns+" FROM user_recordings WHERE id = ?", id)
	rec, err := scanRecording(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Recording not found
		}
		return nil, fmt.Errorf("failed to scan recording %d: %w", id, err)
	}
	return rec, nil
}

func (r *mysqlRecordingRepository) listRecordings(ctx context.Context, query string, args ...interface{}) ([]*model.Recording, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer rows.Close()

	recs := make([]*model.Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListByUser returns all recordings of a user, newest first.
func (r *mysqlRecordingRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Recording, error) {
	return r.listRecordings(ctx, "SELECT "+recordingColumns+" FROM user_recordings WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// ListAll returns every recording for the staff workboard.
func (r *mysqlRecordingRepository) ListAll(ctx context.Context) ([]*model.Recording, error) {
	return r.listRecordings(ctx, "SELECT "+recordingColumns+" FROM user_recordings ORDER BY created_at DESC")
}

// SetPaymentInfo stores the freshly-created gateway payment on a recording.
// The row's own status is left at pending: only the reconciler pays.
func (r *mysqlRecordingRepository) SetPaymentInfo(ctx context.Context, id int64, provider, paymentID, paymentStatus string) error {
	query := "UPDATE user_recordings SET provider = ?, payment_id = ?, payment_status = ? WHERE id = ? AND status != 'paid'"
	if _, err := r.db.ExecContext(ctx, query, provider, paymentID, paymentStatus, id); err != nil {
		return fmt.Errorf("failed to set payment info for recording %d: %w", id, err)
	}
	return nil
}

// SetGatewayStatusByPaymentID stores the gateway's status on every matching row.
func (r *mysqlRecordingRepository) SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE user_recordings SET payment_status = ? WHERE payment_id = ?", status, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to set gateway status for payment %s: %w", paymentID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// MarkPaidByPaymentID advances matching pending rows to paid. Rows already
// in-progress or completed keep their later status.
func (r *mysqlRecordingRepository) MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE user_recordings SET status = 'paid', paid_at = ? WHERE payment_id = ? AND status = 'pending'", paidAt, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark recordings paid for payment %s: %w", paymentID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountPaidByUser counts recordings that ever reached a paid state; the
// loyalty discount is computed from this on every quote.
func (r *mysqlRecordingRepository) CountPaidByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_recordings WHERE user_id = ? AND status IN ('paid', 'in-progress', 'completed')",
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count paid recordings for user %d: %w", userID, err)
	}
	return count, nil
}

// UpdateStatus moves a recording along the studio workflow.
func (r *mysqlRecordingRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE user_recordings SET status = ? WHERE id = ?", status, id); err != nil {
		return fmt.Errorf("failed to update status of recording %d: %w", id, err)
	}
	return nil
}

// SetDeliveredTrack attaches the finished track and completes the recording.
func (r *mysqlRecordingRepository) SetDeliveredTrack(ctx context.Context, id int64, trackPath string) error {
	query := "UPDATE user_recordings SET track_path = ?, status = 'completed' WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, trackPath, id); err != nil {
		return fmt.Errorf("failed to set delivered track for recording %d: %w", id, err)
	}
	return nil
}

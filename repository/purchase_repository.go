package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BeatStudio/model"
)

// PurchaseRepository persists beat purchase rows. One row per (user, beat);
// re-checkout upserts the pending row instead of duplicating it, and a row
// that has reached paid is never overwritten by an upsert.
type PurchaseRepository interface {
	GetByUserAndBeat(ctx context.Context, userID, beatID int64) (*model.BeatPurchase, error)
	UpsertPending(ctx context.Context, userID, beatID int64, provider, paymentID, paymentStatus string) error
	UpsertPaid(ctx context.Context, userID, beatID int64, provider string, paidAt time.Time) error
	SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error)
	MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.BeatPurchase, error)
	ListOwnedBeats(ctx context.Context, userID int64) ([]*model.Beat, error)
}

type mysqlPurchaseRepository struct {
	db *sql.DB
}

// NewMySQLPurchaseRepository creates a new mysqlPurchaseRepository.
func NewMySQLPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &mysqlPurchaseRepository{db: db}
}

const purchaseColumns = "id, user_id, beat_id, provider, payment_id, payment_status, status, paid_at, created_at, updated_at"

func scanPurchase(scanner interface{ Scan(...interface{}) error }) (*model.BeatPurchase, error) {
	p := &model.BeatPurchase{}
	var provider, paymentID, paymentStatus sql.NullString
	var paidAt sql.NullTime
	err := scanner.Scan(&p.ID, &p.UserID, &p.BeatID, &provider, &paymentID, &paymentStatus,
		&p.Status, &paidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Provider = provider.String
	p.PaymentID = paymentID.String
	p.PaymentStatus = paymentStatus.String
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return p, nil
}

// GetByUserAndBeat retrieves the purchase row for a (user, beat) pair.
func (r *mysqlPurchaseRepository) GetByUserAndBeat(ctx context.Context, userID, beatID int64) (*model.BeatPurchase, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+purchaseColumns+" FROM beat_purchases WHERE user_id = ? AND beat_id = ?", userID, beatID)
	p, err := scanPurchase(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No purchase yet
		}
		return nil, fmt.Errorf("failed to scan purchase for user %d beat %d: %w", userID, beatID, err)
	}
	return p, nil
}

// UpsertPending creates or refreshes the pending row for a checkout attempt.
// The IF() guards keep a paid row untouched even if an upsert races the
// webhook; moving to paid is the reconciler's job alone.
func (r *mysqlPurchaseRepository) UpsertPending(ctx context.Context, userID, beatID int64, provider, paymentID, paymentStatus string) error {
	query := `INSERT INTO beat_purchases (user_id, beat_id, provider, payment_id, payment_status, status)
	           VALUES (?, ?, ?, ?, ?, 'pending')
	           ON DUPLICATE KEY UPDATE
	             provider = IF(status = 'paid', provider, VALUES(provider)),
	             payment_id = IF(status = 'paid', payment_id, VALUES(payment_id)),
	             payment_status = IF(status = 'paid', payment_status, VALUES(payment_status)),
	             updated_at = IF(status = 'paid', updated_at, CURRENT_TIMESTAMP)`
	if _, err := r.db.ExecContext(ctx, query, userID, beatID, provider, paymentID, paymentStatus); err != nil {
		return fmt.Errorf("failed to upsert pending purchase (%d, %d): %w", userID, beatID, err)
	}
	return nil
}

// UpsertPaid records an immediately-owned beat (the free shortcut).
func (r *mysqlPurchaseRepository) UpsertPaid(ctx context.Context, userID, beatID int64, provider string, paidAt time.Time) error {
	query := `INSERT INTO beat_purchases (user_id, beat_id, provider, status, paid_at)
	           VALUES (?, ?, ?, 'paid', ?)
	           ON DUPLICATE KEY UPDATE provider = VALUES(provider), status = 'paid', paid_at = VALUES(paid_at)`
	if _, err := r.db.ExecContext(ctx, query, userID, beatID, provider, paidAt); err != nil {
		return fmt.Errorf("failed to upsert paid purchase (%d, %d): %w", userID, beatID, err)
	}
	return nil
}

// SetGatewayStatusByPaymentID stores the gateway's status string on every
// row sharing the payment id (a cart checkout spans several rows).
func (r *mysqlPurchaseRepository) SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE beat_purchases SET payment_status = ? WHERE payment_id = ?", status, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to set gateway status for payment %s: %w", paymentID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// MarkPaidByPaymentID advances matching pending rows to paid. Rows already
// paid keep their original paid_at, so webhook redelivery lands on the
// same state.
func (r *mysqlPurchaseRepository) MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE beat_purchases SET status = 'paid', paid_at = ? WHERE payment_id = ? AND status = 'pending'", paidAt, paymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark purchases paid for payment %s: %w", paymentID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListByUser returns all purchase rows of a user, newest first.
func (r *mysqlPurchaseRepository) ListByUser(ctx context.Context, userID int64) ([]*model.BeatPurchase, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+purchaseColumns+" FROM beat_purchases WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases for user %d: %w", userID, err)
	}
	defer rows.Close()

	purchases := make([]*model.BeatPurchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase row: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during purchases iteration: %w", err)
	}
	return purchases, nil
}

// ListOwnedBeats returns the beats a user has fully paid for.
func (r *mysqlPurchaseRepository) ListOwnedBeats(ctx context.Context, userID int64) ([]*model.Beat, error) {
	query := `SELECT b.id, b.user_id, b.title, b.genre, b.bpm, b.price, b.file_path, b.cover_path, b.play_count, b.state, b.created_at, b.updated_at
	           FROM beats b
	           JOIN beat_purchases p ON p.beat_id = b.id
	           WHERE p.user_id = ? AND p.status = 'paid'
	           ORDER BY p.paid_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned beats for user %d: %w", userID, err)
	}
	defer rows.Close()

	beats := make([]*model.Beat, 0)
	for rows.Next() {
		beat, err := scanBeat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan owned beat row: %w", err)
		}
		beats = append(beats, beat)
	}
	return beats, rows.Err()
}

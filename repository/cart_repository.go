package repository

import (
	"context"
	"database/sql"
	"fmt"

	"BeatStudio/model"
)

// CartRepository persists the per-user purchase queue. A beat appears at
// most once per cart; prices are joined live from the catalog at read time.
type CartRepository interface {
	Add(ctx context.Context, userID, beatID int64) error
	Remove(ctx context.Context, userID, beatID int64) error
	ListByUser(ctx context.Context, userID int64) ([]*model.CartItem, error)
	Clear(ctx context.Context, userID int64) error
}

type mysqlCartRepository struct {
	db *sql.DB
}

// NewMySQLCartRepository creates a new mysqlCartRepository.
func NewMySQLCartRepository(db *sql.DB) CartRepository {
	return &mysqlCartRepository{db: db}
}

// Add queues a beat for purchase. Adding a beat already in the cart is a no-op.
func (r *mysqlCartRepository) Add(ctx context.Context, userID, beatID int64) error {
	query := "INSERT IGNORE INTO beat_cart (user_id, beat_id) VALUES (?, ?)"
	if _, err := r.db.ExecContext(ctx, query, userID, beatID); err != nil {
		return fmt.Errorf("failed to add beat %d to cart of user %d: %w", beatID, userID, err)
	}
	return nil
}

// Remove takes one beat out of the cart.
func (r *mysqlCartRepository) Remove(ctx context.Context, userID, beatID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM beat_cart WHERE user_id = ? AND beat_id = ?", userID, beatID); err != nil {
		return fmt.Errorf("failed to remove beat %d from cart of user %d: %w", beatID, userID, err)
	}
	return nil
}

// ListByUser returns the cart joined with current catalog prices. Beats soft
// deleted since they were added are dropped from the result.
func (r *mysqlCartRepository) ListByUser(ctx context.Context, userID int64) ([]*model.CartItem, error) {
	query := `SELECT c.id, c.user_id, c.beat_id, c.created_at, b.title, b.price
	           FROM beat_cart c
	           JOIN beats b ON b.id = c.beat_id AND b.state = 1
	           WHERE c.user_id = ?
	           ORDER BY c.created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart for user %d: %w", userID, err)
	}
	defer rows.Close()

	items := make([]*model.CartItem, 0)
	for rows.Next() {
		item := &model.CartItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.BeatID, &item.CreatedAt, &item.Title, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan cart row: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during cart iteration: %w", err)
	}
	return items, nil
}

// Clear empties the user's cart. Called by the webhook reconciler after a
// successful cart settlement and by the free-cart shortcut.
func (r *mysqlCartRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM beat_cart WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear cart for user %d: %w", userID, err)
	}
	return nil
}

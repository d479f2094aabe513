package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BeatStudio/model"
)

// BeatRepository defines the interface for catalog operations.
type BeatRepository interface {
	CreateBeat(ctx context.Context, beat *model.Beat) (int64, error)
	GetBeatByID(ctx context.Context, id int64) (*model.Beat, error)
	ListBeats(ctx context.Context, genre string) ([]*model.Beat, error)
	ListBeatsByCreator(ctx context.Context, userID int64) ([]*model.Beat, error)
	UpdateBeat(ctx context.Context, beat *model.Beat) error
	SoftDeleteBeat(ctx context.Context, id int64) error
	AddPlayCount(ctx context.Context, id int64, delta int64) error

	AddFavorite(ctx context.Context, userID, beatID int64) error
	RemoveFavorite(ctx context.Context, userID, beatID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]*model.Beat, error)
}

type mysqlBeatRepository struct {
	db *sql.DB
}

// NewMySQLBeatRepository creates a new mysqlBeatRepository.
func NewMySQLBeatRepository(db *sql.DB) BeatRepository {
	return &mysqlBeatRepository{db: db}
}

const beatColumns = "id, user_id, title, genre, bpm, price, file_path, cover_path, play_count, state, created_at, updated_at"

func scanBeat(scanner interface{ Scan(...interface{}) error }) (*model.Beat, error) {
	beat := &model.Beat{}
	var genre, coverPath sql.NullString
	var bpm sql.NullInt64
	err := scanner.Scan(&beat.ID, &beat.UserID, &beat.Title, &genre, &bpm, &beat.Price,
		&beat.FilePath, &coverPath, &beat.PlayCount, &beat.State, &beat.CreatedAt, &beat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	beat.Genre = genre.String
	beat.BPM = int(bpm.Int64)
	beat.CoverPath = coverPath.String
	return beat, nil
}

// CreateBeat adds a new beat to the catalog.
func (r *mysqlBeatRepository) CreateBeat(ctx context.Context, beat *model.Beat) (int64, error) {
	query := `INSERT INTO beats (user_id, title, genre, bpm, price, file_path, cover_path, state, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	now := time.Now()
	res, err := r.db.ExecContext(ctx, query, beat.UserID, beat.Title, beat.Genre, beat.BPM,
		beat.Price, beat.FilePath, beat.CoverPath, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateBeat: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateBeat: %w", err)
	}
	return id, nil
}

// GetBeatByID retrieves a beat by its ID. Soft-deleted beats are not returned.
func (r *mysqlBeatRepository) GetBeatByID(ctx context.Context, id int64) (*model.Beat, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+beatColumns+" FROM beats WHERE id = ? AND state = 1", id)
	beat, err := scanBeat(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Beat not found
		}
		return nil, fmt.Errorf("failed to scan beat by ID %d: %w", id, err)
	}
	return beat, nil
}

func (r *mysqlBeatRepository) listBeats(ctx context.Context, query string, args ...interface{}) ([]*model.Beat, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query beats: %w", err)
	}
	defer rows.Close()

	beats := make([]*model.Beat, 0)
	for rows.Next() {
		beat, err := scanBeat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beat row: %w", err)
		}
		beats = append(beats, beat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during beats iteration: %w", err)
	}
	return beats, nil
}

// ListBeats returns the active catalog, optionally filtered by genre.
func (r *mysqlBeatRepository) ListBeats(ctx context.Context, genre string) ([]*model.Beat, error) {
	if genre != "" {
		return r.listBeats(ctx, "SELECT "+beatColumns+" FROM beats WHERE state = 1 AND genre = ? ORDER BY created_at DESC", genre)
	}
	return r.listBeats(ctx, "SELECT "+beatColumns+" FROM beats WHERE state = 1 ORDER BY created_at DESC")
}

// ListBeatsByCreator returns all active beats uploaded by a user.
func (r *mysqlBeatRepository) ListBeatsByCreator(ctx context.Context, userID int64) ([]*model.Beat, error) {
	return r.listBeats(ctx, "SELECT "+beatColumns+" FROM beats WHERE state = 1 AND user_id = ? ORDER BY created_at DESC", userID)
}

// UpdateBeat updates the editable fields of a beat.
func (r *mysqlBeatRepository) UpdateBeat(ctx context.Context, beat *model.Beat) error {
	query := `UPDATE beats SET title = ?, genre = ?, bpm = ?, price = ?, cover_path = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, beat.Title, beat.Genre, beat.BPM, beat.Price, beat.CoverPath, time.Now(), beat.ID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateBeat for ID %d: %w", beat.ID, err)
	}
	return nil
}

// SoftDeleteBeat hides a beat from the catalog without breaking purchase rows.
func (r *mysqlBeatRepository) SoftDeleteBeat(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE beats SET state = 0, updated_at = ? WHERE id = ?", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete beat %d: %w", id, err)
	}
	return nil
}

// AddPlayCount folds the Redis play counter delta into the durable column.
func (r *mysqlBeatRepository) AddPlayCount(ctx context.Context, id int64, delta int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE beats SET play_count = play_count + ? WHERE id = ?", delta, id)
	if err != nil {
		return fmt.Errorf("failed to add play count for beat %d: %w", id, err)
	}
	return nil
}

// AddFavorite stars a beat. Adding twice is a no-op.
func (r *mysqlBeatRepository) AddFavorite(ctx context.Context, userID, beatID int64) error {
	query := "INSERT IGNORE INTO beat_favorites (user_id, beat_id) VALUES (?, ?)"
	if _, err := r.db.ExecContext(ctx, query, userID, beatID); err != nil {
		return fmt.Errorf("failed to add favorite (%d, %d): %w", userID, beatID, err)
	}
	return nil
}

// RemoveFavorite unstars a beat.
func (r *mysqlBeatRepository) RemoveFavorite(ctx context.Context, userID, beatID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM beat_favorites WHERE user_id = ? AND beat_id = ?", userID, beatID); err != nil {
		return fmt.Errorf("failed to remove favorite (%d, %d): %w", userID, beatID, err)
	}
	return nil
}

// ListFavorites returns the user's starred beats, newest star first.
func (r *mysqlBeatRepository) ListFavorites(ctx context.Context, userID int64) ([]*model.Beat, error) {
	query := `SELECT b.id, b.user_id, b.title, b.genre, b.bpm, b.price, b.file_path, b.cover_path, b.play_count, b.state, b.created_at, b.updated_at
	           FROM beats b
	           JOIN beat_favorites f ON f.beat_id = b.id
	           WHERE f.user_id = ? AND b.state = 1
	           ORDER BY f.created_at DESC`
	return r.listBeats(ctx, query, userID)
}

package repository

import (
	"database/sql"
	"fmt"

	"BeatStudio/model"
)

// ChatRepository defines the interface for support chat data operations.
type ChatRepository interface {
	CreateMessage(message *model.ChatMessage) (int64, error)
	GetMessagesByUser(userID int64, limit int) ([]*model.ChatMessage, error)
	MarkRead(userID int64, side string) error
	CountUnread(userID int64, side string) (int64, error)
	ListConversations() ([]int64, error)
}

// mysqlChatRepository implements ChatRepository for MySQL.
type mysqlChatRepository struct {
	db *sql.DB
}

// NewMySQLChatRepository creates a new mysqlChatRepository.
func NewMySQLChatRepository(db *sql.DB) ChatRepository {
	return &mysqlChatRepository{db: db}
}

// CreateMessage inserts a new message. A message from the sender's own side
// starts out read for that side.
func (r *mysqlChatRepository) CreateMessage(message *model.ChatMessage) (int64, error) {
	readByUser := message.SenderRole == model.ChatSenderUser
	readByStaff := message.SenderRole == model.ChatSenderStaff

	query := "INSERT INTO chat_messages (user_id, sender_role, content, read_by_user, read_by_staff) VALUES (?, ?, ?, ?, ?)"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare create message statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(message.UserID, message.SenderRole, message.Content, readByUser, readByStaff)
	if err != nil {
		return 0, fmt.Errorf("failed to execute create message statement: %w", err)
	}

	messageID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for message: %w", err)
	}
	return messageID, nil
}

// GetMessagesByUser retrieves the latest messages of a conversation in
// chronological order.
func (r *mysqlChatRepository) GetMessagesByUser(userID int64, limit int) ([]*model.ChatMessage, error) {
	query := `SELECT id, user_id, sender_role, content, read_by_user, read_by_staff, created_at
	          FROM (SELECT * FROM chat_messages WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?) t
	          ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for user %d: %w", userID, err)
	}
	defer rows.Close()

	messages := make([]*model.ChatMessage, 0)
	for rows.Next() {
		m := &model.ChatMessage{}
		err := rows.Scan(&m.ID, &m.UserID, &m.SenderRole, &m.Content, &m.ReadByUser, &m.ReadByStaff, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkRead marks every message of a conversation as read for one side
// ("user" or "staff").
func (r *mysqlChatRepository) MarkRead(userID int64, side string) error {
	column, err := readColumn(side)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE chat_messages SET %s = TRUE WHERE user_id = ? AND %s = FALSE", column, column)
	if _, err := r.db.Exec(query, userID); err != nil {
		return fmt.Errorf("failed to mark messages read for user %d: %w", userID, err)
	}
	return nil
}

// CountUnread counts how many messages of a conversation one side has not
// read yet.
func (r *mysqlChatRepository) CountUnread(userID int64, side string) (int64, error) {
	column, err := readColumn(side)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM chat_messages WHERE user_id = ? AND %s = FALSE", column)
	var count int64
	if err := r.db.QueryRow(query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages for user %d: %w", userID, err)
	}
	return count, nil
}

// ListConversations returns the user IDs of all conversations, the ones with
// the freshest message first. Used by the staff inbox.
func (r *mysqlChatRepository) ListConversations() ([]int64, error) {
	query := "SELECT user_id FROM chat_messages GROUP BY user_id ORDER BY MAX(created_at) DESC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	userIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

// readColumn maps a chat side to its read flag column.
func readColumn(side string) (string, error) {
	switch side {
	case model.ChatSenderUser:
		return "read_by_user", nil
	case model.ChatSenderStaff:
		return "read_by_staff", nil
	default:
		return "", fmt.Errorf("unknown chat side: %s", side)
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			order_number TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			total_amount REAL NOT NULL,
			items TEXT NOT NULL DEFAULT '[]',
			shipping_address TEXT NOT NULL,
			tracking_number TEXT,
			estimated_delivery DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			transaction_id TEXT NOT NULL UNIQUE,
			amount REAL NOT NULL,
			status TEXT NOT NULL,
			method TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (order_id) REFERENCES orders(id),
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			payment_id INTEGER NOT NULL,
			invoice_number TEXT NOT NULL UNIQUE,
			amount REAL NOT NULL,
			status TEXT NOT NULL,
			issued_at DATETIME NOT NULL,
			due_date DATETIME NOT NULL,
			FOREIGN KEY (payment_id) REFERENCES payments(id)
		)`,
		`CREATE TABLE IF NOT EXISTS refunds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			payment_id INTEGER NOT NULL,
			amount REAL NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			processed_at DATETIME,
			FOREIGN KEY (payment_id) REFERENCES payments(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refunds_payment ON refunds(payment_id)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			agent_type TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			agent_type TEXT,
			token_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.UserID, user.Name, user.Email, user.Role, user.CreatedAt.UTC())
	return err
}

// GetUser retrieves a user by external ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, email, role, created_at FROM users WHERE user_id = ?`,
		userID).Scan(&user.UserID, &user.Name, &user.Email, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers lists all users with their record counts, oldest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]domain.UserOverview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.email, u.role, u.created_at,
			(SELECT COUNT(*) FROM orders o WHERE o.user_id = u.user_id),
			(SELECT COUNT(*) FROM payments p WHERE p.user_id = u.user_id),
			(SELECT COUNT(*) FROM conversations c WHERE c.user_id = u.user_id)
		FROM users u ORDER BY u.created_at ASC, u.user_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserOverview
	for rows.Next() {
		var u domain.UserOverview
		if err := rows.Scan(&u.UserID, &u.Name, &u.Email, &u.Role, &u.CreatedAt,
			&u.Stats.OrderCount, &u.Stats.PaymentCount, &u.Stats.ConversationCount); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUserStats counts the records owned by a user.
func (s *SQLiteStore) GetUserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	var stats domain.UserStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE user_id = ?),
			(SELECT COUNT(*) FROM payments WHERE user_id = ?),
			(SELECT COUNT(*) FROM conversations WHERE user_id = ?)`,
		userID, userID, userID).Scan(&stats.OrderCount, &stats.PaymentCount, &stats.ConversationCount)
	return stats, err
}

// CreateConversation creates a new conversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conversation *domain.Conversation) error {
	now := time.Now().UTC()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	if conversation.UpdatedAt.IsZero() {
		conversation.UpdatedAt = conversation.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, agent_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		conversation.ID, conversation.UserID, conversation.Title, nullAgent(conversation.AgentType),
		conversation.CreatedAt.UTC(), conversation.UpdatedAt.UTC())
	return err
}

// GetConversation retrieves a conversation by ID without its messages.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var agent sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, agent_type, created_at, updated_at FROM conversations WHERE id = ?`,
		conversationID).Scan(&conv.ID, &conv.UserID, &conv.Title, &agent, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	conv.AgentType = agentFromNull(agent)
	return &conv, nil
}

// ListConversations lists the most recently updated conversations of a user.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationSummary, error) {
	query := `SELECT id, user_id, title, agent_type, created_at, updated_at FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []domain.ConversationSummary{}
	for rows.Next() {
		var c domain.ConversationSummary
		var agent sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &agent, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.AgentType = agentFromNull(agent)
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// DeleteConversation deletes a conversation owned by userID together with its messages.
// It reports whether a conversation was deleted.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE id = ? AND user_id = ?)`,
		conversationID, userID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ? AND user_id = ?`, conversationID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateConversationAgentType stamps the agent that last answered.
func (s *SQLiteStore) UpdateConversationAgentType(ctx context.Context, conversationID, userID string, agent domain.AgentType) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET agent_type = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		string(agent), time.Now().UTC(), conversationID, userID)
	return err
}

// ListConversationsOverBudget returns conversations whose token sum exceeds maxTokens
// and that hold more than minMessages messages.
func (s *SQLiteStore) ListConversationsOverBudget(ctx context.Context, maxTokens, minMessages, limit int) ([]string, error) {
	query := `SELECT conversation_id FROM messages GROUP BY conversation_id HAVING SUM(token_count) > ? AND COUNT(*) > ? ORDER BY conversation_id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, maxTokens, minMessages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendMessage inserts a message into a conversation owned by userID and bumps
// the conversation's updated_at. Returns domain.ErrConversationNotFound when the
// conversation does not exist for that user.
func (s *SQLiteStore) AppendMessage(ctx context.Context, userID string, message *domain.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, agent_type, token_count, created_at)
		 SELECT ?, c.id, ?, ?, ?, ?, ? FROM conversations c WHERE c.id = ? AND c.user_id = ?`,
		message.ID, string(message.Role), message.Content, nullAgent(message.AgentType), message.TokenCount,
		message.CreatedAt.UTC(), message.ConversationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConversationNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		message.CreatedAt.UTC(), message.ConversationID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMessages returns the messages of a conversation in prompt order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, agent_type, token_count, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListRecentMessages returns the newest messages of a conversation owned by userID, newest first.
func (s *SQLiteStore) ListRecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error) {
	query := `SELECT m.id, m.conversation_id, m.role, m.content, m.agent_type, m.token_count, m.created_at
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE m.conversation_id = ? AND c.user_id = ?
		ORDER BY m.created_at DESC, m.rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, conversationID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetTokenCount sums the token counts of a conversation's messages.
func (s *SQLiteStore) GetTokenCount(ctx context.Context, conversationID string) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(token_count) FROM messages WHERE conversation_id = ?`,
		conversationID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

// ReplaceWithSummary deletes removeIDs from a conversation and inserts the summary
// message in a single transaction.
func (s *SQLiteStore) ReplaceWithSummary(ctx context.Context, conversationID string, removeIDs []string, summary *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(removeIDs) > 0 {
		placeholders := make([]string, len(removeIDs))
		args := make([]interface{}, 0, len(removeIDs)+1)
		args = append(args, conversationID)
		for i, id := range removeIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query := fmt.Sprintf(`DELETE FROM messages WHERE conversation_id = ? AND id IN (%s)`, strings.Join(placeholders, ","))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete compacted messages: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, agent_type, token_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, conversationID, string(summary.Role), summary.Content, nullAgent(summary.AgentType),
		summary.TokenCount, summary.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert summary message: %w", err)
	}

	return tx.Commit()
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var role string
		var agent sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &agent, &msg.TokenCount, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)
		msg.AgentType = agentFromNull(agent)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func nullAgent(agent *domain.AgentType) sql.NullString {
	if agent == nil || *agent == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*agent), Valid: true}
}

func agentFromNull(v sql.NullString) *domain.AgentType {
	if !v.Valid || v.String == "" {
		return nil
	}
	agent := domain.AgentType(v.String)
	return &agent
}

package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pantry-planner/internal/shopping"
)

// Session stores pending interaction state between a message and its inline
// callback. Telegram callback data is limited to 64 bytes, so a shortfall
// batch is stashed here and the callback carries only the session id.
type Session struct {
	ID          int64
	HouseholdID string
	SessionType string
	State       string
	ContextData string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionContextData holds structured data stored in the context_data JSON field.
type SessionContextData struct {
	MealID     string               `json:"meal_id,omitempty"`
	Shortfalls []shopping.Shortfall `json:"shortfalls,omitempty"`
}

// SessionRepository provides access to session persistence operations.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session and returns its ID.
func (sr *SessionRepository) Create(ctx context.Context, householdID, sessionType, state string, contextData SessionContextData, ttlSeconds int) (int64, error) {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(time.Duration(ttlSeconds) * time.Second)

	res, err := sr.db.ExecContext(ctx, `
		INSERT INTO sessions (household_id, session_type, state, context_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, sessionType, state, string(jsonData), expiresAt, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return res.LastInsertId()
}

// Get retrieves a session by ID, scoped to the household. Returns nil when
// the session does not exist or has expired.
func (sr *SessionRepository) Get(ctx context.Context, householdID string, id int64) (*Session, error) {
	var s Session
	err := sr.db.QueryRowContext(ctx, `
		SELECT id, household_id, session_type, state, context_data, expires_at, created_at
		FROM sessions WHERE id = ? AND household_id = ? AND expires_at > ?`,
		id, householdID, time.Now().UTC()).
		Scan(&s.ID, &s.HouseholdID, &s.SessionType, &s.State, &s.ContextData, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return &s, nil
}

// Claim atomically consumes a session: the row is deleted and returned in one
// statement, so of two concurrent claims exactly one gets the session and the
// other gets nil. Returns nil when the session does not exist or has expired.
func (sr *SessionRepository) Claim(ctx context.Context, householdID string, id int64) (*Session, error) {
	var s Session
	err := sr.db.QueryRowContext(ctx, `
		DELETE FROM sessions WHERE id = ? AND household_id = ? AND expires_at > ?
		RETURNING id, household_id, session_type, state, context_data, expires_at, created_at`,
		id, householdID, time.Now().UTC()).
		Scan(&s.ID, &s.HouseholdID, &s.SessionType, &s.State, &s.ContextData, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim session %d: %w", id, err)
	}
	return &s, nil
}

// GetContextData unmarshals the context_data JSON field.
func (s *Session) GetContextData() (SessionContextData, error) {
	var data SessionContextData
	err := json.Unmarshal([]byte(s.ContextData), &data)
	return data, err
}

// Delete removes a session.
func (sr *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

// CleanupExpired removes all expired sessions (optional maintenance task).
func (sr *SessionRepository) CleanupExpired(ctx context.Context) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	return err
}

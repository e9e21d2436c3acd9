package storage

import (
	"context"
	"time"

	"ap-tracker/internal/models"
)

// CreateUser creates a new user with the given username and password hash.
func (q *Queries) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	id, err := q.insert(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, toMillis(time.Now()),
	)
	if err != nil {
		return nil, err
	}
	return q.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return q.scanUser(q.queryRow(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?",
		id,
	))
}

// GetUserByUsername retrieves a user by username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return q.scanUser(q.queryRow(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username,
	))
}

func (q *Queries) scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt); err != nil {
		return nil, translateError(err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

// UserCount returns the number of users in the database.
func (q *Queries) UserCount(ctx context.Context) (int, error) {
	var count int
	err := q.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateSession creates a new session for a user.
func (q *Queries) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := q.exec(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, toMillis(expiresAt), toMillis(time.Now()),
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the associated user.
func (q *Queries) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	info, err := q.ValidateSessionWithInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (q *Queries) ValidateSessionWithInfo(ctx context.Context, token string) (*SessionInfo, error) {
	row := q.queryRow(ctx, `
		SELECT u.id, u.username, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, toMillis(time.Now()))

	var u models.User
	var createdAt, lastActivity, expiresAt int64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt, &lastActivity, &expiresAt); err != nil {
		return nil, translateError(err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &SessionInfo{
		User:         &u,
		LastActivity: fromMillis(lastActivity),
		ExpiresAt:    fromMillis(expiresAt),
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (q *Queries) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	_, err := q.exec(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		toMillis(time.Now()), toMillis(newExpiresAt), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.exec(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (q *Queries) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := q.exec(ctx, "DELETE FROM sessions WHERE expires_at <= ?", toMillis(time.Now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pavelanni/careerprep/internal/model"
)

// DefaultAuthSessionTTL applies when a login is created with a zero TTL.
const DefaultAuthSessionTTL = 7 * 24 * time.Hour

// maxUserAgentLen caps the stored client identification.
const maxUserAgentLen = 256

// CreateAuthSession issues a login token for a user that expires after ttl.
// userAgent identifies the client in session listings.
func (s *Store) CreateAuthSession(ctx context.Context, userID int64, userAgent string, ttl time.Duration) (*model.AuthSession, error) {
	if ttl <= 0 {
		ttl = DefaultAuthSessionTTL
	}
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	if len(userAgent) > maxUserAgentLen {
		userAgent = userAgent[:maxUserAgentLen]
	}
	now := time.Now().UTC()
	sess := &model.AuthSession{
		ID:        token,
		UserID:    userID,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, user_agent, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.UserAgent, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetAuthSession returns the live session for token, or nil. An expired
// session is deleted on sight.
func (s *Store) GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, user_agent, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.UserAgent, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(ctx, token)
		return nil, nil
	}
	return &sess, nil
}

// ListAuthSessions returns a user's unexpired logins, newest first.
func (s *Store) ListAuthSessions(ctx context.Context, userID int64) ([]model.AuthSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, user_agent, created_at, expires_at FROM auth_sessions
		 WHERE user_id = ? AND expires_at > ? ORDER BY created_at DESC`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuthSession
	for rows.Next() {
		var sess model.AuthSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.UserAgent, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAuthSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// RevokeAuthSessions logs a user out everywhere and returns how many tokens
// were removed.
func (s *Store) RevokeAuthSessions(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CleanupExpiredSessions removes expired logins and returns how many went.
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

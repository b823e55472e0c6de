package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/pavelanni/careerprep/internal/model"
)

// SetValue upserts a key-value pair.
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}

// GetValue returns the value for a key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// RemindersKey is the kv key holding a user's reminder list.
func RemindersKey(userID int64) string {
	return "reminders_" + strconv.FormatInt(userID, 10)
}

// ListReminders returns a user's reminders in creation order.
func (s *Store) ListReminders(ctx context.Context, userID int64) ([]model.StudyReminder, error) {
	raw, err := s.GetValue(ctx, RemindersKey(userID))
	if err != nil {
		return nil, err
	}
	reminders := []model.StudyReminder{}
	if err := decodeJSON(raw, &reminders); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	return reminders, nil
}

// AddReminder appends r to its owner's reminder list.
func (s *Store) AddReminder(ctx context.Context, r model.StudyReminder) error {
	return s.updateReminders(ctx, r.UserID, func(list []model.StudyReminder) ([]model.StudyReminder, error) {
		return append(list, r), nil
	})
}

// DeleteReminder removes a reminder by ID. It reports whether one was removed.
func (s *Store) DeleteReminder(ctx context.Context, userID int64, id string) (bool, error) {
	removed := false
	err := s.updateReminders(ctx, userID, func(list []model.StudyReminder) ([]model.StudyReminder, error) {
		out := list[:0]
		for _, r := range list {
			if r.ID == id {
				removed = true
				continue
			}
			out = append(out, r)
		}
		return out, nil
	})
	return removed, err
}

// updateReminders rewrites a user's reminder list inside one transaction.
func (s *Store) updateReminders(ctx context.Context, userID int64, fn func([]model.StudyReminder) ([]model.StudyReminder, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	key := RemindersKey(userID)
	var raw string
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	list := []model.StudyReminder{}
	if err := decodeJSON(raw, &list); err != nil {
		return fmt.Errorf("decode reminders: %w", err)
	}

	list, err = fn(list)
	if err != nil {
		return err
	}
	value, err := encodeJSON(orEmpty(list))
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

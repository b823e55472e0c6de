package store

import (
	"context"

	"github.com/pavelanni/careerprep/internal/model"
)

// UpsertStudyLog records the hours studied on a date, replacing any earlier
// entry for the same day, and sets l.ID.
func (s *Store) UpsertStudyLog(ctx context.Context, l *model.StudyLog) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO study_logs (user_id, hours, date) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET hours = excluded.hours
		 RETURNING id`,
		l.UserID, l.Hours, l.Date,
	).Scan(&l.ID)
	return err
}

// ListStudyLogs returns a user's logs on or after since (YYYY-MM-DD), oldest
// first. An empty since returns every log.
func (s *Store) ListStudyLogs(ctx context.Context, userID int64, since string) ([]model.StudyLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, hours, date FROM study_logs
		 WHERE user_id = ? AND date >= ? ORDER BY date`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := []model.StudyLog{}
	for rows.Next() {
		var l model.StudyLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Hours, &l.Date); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

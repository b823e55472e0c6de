package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/careerprep/internal/model"
)

// Dashboard summarizes a user's progress as of today. Study hours cover the
// seven days ending today.
func (s *Store) Dashboard(ctx context.Context, userID int64, today time.Time) (*model.Dashboard, error) {
	var d model.Dashboard

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(score), 0) FROM exam_results WHERE user_id = ?`, userID,
	).Scan(&d.ExamsTaken, &d.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("exam summary: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interview_sessions WHERE user_id = ?`, userID,
	).Scan(&d.InterviewsTaken)
	if err != nil {
		return nil, fmt.Errorf("interview summary: %w", err)
	}

	var latest int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM skill_gap_reports WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&latest)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("latest report: %w", err)
	default:
		d.LatestReportID = &latest
	}

	from := today.AddDate(0, 0, -6).Format(model.DateLayout)
	to := today.Format(model.DateLayout)
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(hours), 0) FROM study_logs WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, from, to,
	).Scan(&d.StudyHoursLastWeek)
	if err != nil {
		return nil, fmt.Errorf("study hours: %w", err)
	}

	reminders, err := s.ListReminders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reminders: %w", err)
	}
	for _, r := range reminders {
		if r.Enabled {
			d.ActiveReminderCount++
		}
	}
	return &d, nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/careerprep/internal/model"
)

// CreateExamResult inserts r and sets its ID and CreatedAt.
func (s *Store) CreateExamResult(ctx context.Context, r *model.ExamResult) error {
	weak, err := encodeJSON(orEmpty(r.WeakTopics))
	if err != nil {
		return fmt.Errorf("encode weak topics: %w", err)
	}
	outcomes, err := encodeJSON(orEmpty(r.Results))
	if err != nil {
		return fmt.Errorf("encode outcomes: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exam_results (user_id, exam_type, score, total_questions, accuracy, time_spent, ai_usage_percent, weak_topics, results, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.ExamType, r.Score, r.TotalQuestions, r.Accuracy, r.TimeSpent, r.AIUsagePercent, weak, outcomes, now,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// ListExamResults returns a user's exam results, newest first.
func (s *Store) ListExamResults(ctx context.Context, userID int64) ([]model.ExamResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, exam_type, score, total_questions, accuracy, time_spent, ai_usage_percent, weak_topics, results, created_at
		 FROM exam_results WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.ExamResult{}
	for rows.Next() {
		var (
			r              model.ExamResult
			weak, outcomes string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ExamType, &r.Score, &r.TotalQuestions, &r.Accuracy,
			&r.TimeSpent, &r.AIUsagePercent, &weak, &outcomes, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := decodeJSON(weak, &r.WeakTopics); err != nil {
			return nil, fmt.Errorf("decode exam result %d: %w", r.ID, err)
		}
		if err := decodeJSON(outcomes, &r.Results); err != nil {
			return nil, fmt.Errorf("decode exam result %d: %w", r.ID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CreateInterviewSession inserts is and sets its ID and CreatedAt.
func (s *Store) CreateInterviewSession(ctx context.Context, is *model.InterviewSession) error {
	feedback, err := encodeJSON(is.Feedback)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO interview_sessions (user_id, confidence_score, stress_level, clarity_score, feedback, duration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		is.UserID, is.ConfidenceScore, is.StressLevel, is.ClarityScore, feedback, is.Duration, now,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	is.ID = id
	is.CreatedAt = now
	return nil
}

// ListInterviewSessions returns a user's interview sessions, newest first.
func (s *Store) ListInterviewSessions(ctx context.Context, userID int64) ([]model.InterviewSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, confidence_score, stress_level, clarity_score, feedback, duration, created_at
		 FROM interview_sessions WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.InterviewSession{}
	for rows.Next() {
		var (
			is       model.InterviewSession
			feedback string
		)
		if err := rows.Scan(&is.ID, &is.UserID, &is.ConfidenceScore, &is.StressLevel, &is.ClarityScore,
			&feedback, &is.Duration, &is.CreatedAt); err != nil {
			return nil, err
		}
		if err := decodeJSON(feedback, &is.Feedback); err != nil {
			return nil, fmt.Errorf("decode interview session %d: %w", is.ID, err)
		}
		sessions = append(sessions, is)
	}
	return sessions, rows.Err()
}

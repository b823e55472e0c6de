package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/careerprep/internal/model"
)

// ExportUser collects every record owned by username. Returns nil if the
// user does not exist.
func (s *Store) ExportUser(ctx context.Context, username string) (*model.UserExport, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, nil
	}

	exp := &model.UserExport{Username: u.Username, ExportedAt: time.Now().UTC()}
	if exp.SkillGapReports, err = s.ListSkillGapReports(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if exp.ExamResults, err = s.ListExamResults(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	if exp.InterviewSessions, err = s.ListInterviewSessions(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("list interview sessions: %w", err)
	}
	if exp.Reminders, err = s.ListReminders(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	if exp.StudyLogs, err = s.ListStudyLogs(ctx, u.ID, ""); err != nil {
		return nil, fmt.Errorf("list study logs: %w", err)
	}
	return exp, nil
}

// Package service holds the domain façades that turn user input into a prompt,
// a single completion call, a normalized record and, where applicable, one
// persisted row. Nothing here retries; errors propagate with their kind intact.
package service

import (
	"context"
	"strings"

	"github.com/pavelanni/careerprep/internal/model"
)

// DefaultQuestionCount is the exam batch size when none is configured.
const DefaultQuestionCount = 5

// SkillGapStore persists skill-gap reports.
type SkillGapStore interface {
	CreateSkillGapReport(ctx context.Context, r *model.SkillGapReport) error
	GetSkillGapReport(ctx context.Context, id int64) (*model.SkillGapReport, error)
	ListSkillGapReports(ctx context.Context, userID int64) ([]model.SkillGapReport, error)
	UpdateRoadmap(ctx context.Context, reportID int64, roadmap []model.RoadmapPhase) error
}

// ExamResultStore persists finished exams.
type ExamResultStore interface {
	CreateExamResult(ctx context.Context, r *model.ExamResult) error
}

// InterviewStore persists reviewed interviews.
type InterviewStore interface {
	CreateInterviewSession(ctx context.Context, s *model.InterviewSession) error
}

// cleanList trims entries and drops blank ones. The result is never nil.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

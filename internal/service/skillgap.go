package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/llm"
	"github.com/pavelanni/careerprep/internal/llm/prompts"
	"github.com/pavelanni/careerprep/internal/model"
	"github.com/pavelanni/careerprep/internal/normalize"
)

// skillGapPayload mirrors the completion shape for structured output.
type skillGapPayload struct {
	Analysis   model.SkillAnalysis  `json:"analysis"`
	Roadmap    []model.RoadmapPhase `json:"roadmap"`
	Strategies []model.Strategy     `json:"strategies"`
}

var skillGapSchema = llm.SchemaFor(&skillGapPayload{})

// SkillGapService produces and maintains skill-gap reports.
type SkillGapService struct {
	llm   llm.Completer
	store SkillGapStore
}

func NewSkillGapService(c llm.Completer, st SkillGapStore) *SkillGapService {
	return &SkillGapService{llm: c, store: st}
}

// Analyze asks the model for a gap analysis of role against skills, merges
// the caller's inputs into the result and persists it exactly once.
func (s *SkillGapService) Analyze(ctx context.Context, userID int64, role string, skills []string, prepTime string) (*model.SkillGapReport, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, apperr.New(apperr.KindValidation, "target role is required")
	}
	skills = cleanList(skills)
	prepTime = strings.TrimSpace(prepTime)

	prompt, err := prompts.BuildSkillGap(role, skills, prepTime)
	if err != nil {
		return nil, fmt.Errorf("build skill gap prompt: %w", err)
	}
	raw, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompt,
		SchemaName:  "skill_gap",
		Schema:      skillGapSchema,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}
	report, err := normalize.SkillGap(raw)
	if err != nil {
		return nil, err
	}

	report.UserID = userID
	report.TargetRole = role
	report.CurrentSkills = skills
	report.PreparationTime = prepTime
	if err := s.store.CreateSkillGapReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save skill gap report: %w", err)
	}
	slog.InfoContext(ctx, "skill gap report created", "user_id", userID, "report_id", report.ID, "role", role)
	return report, nil
}

// List returns the user's reports, newest first.
func (s *SkillGapService) List(ctx context.Context, userID int64) ([]model.SkillGapReport, error) {
	reports, err := s.store.ListSkillGapReports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list skill gap reports: %w", err)
	}
	return reports, nil
}

// Latest returns the user's most recent report.
func (s *SkillGapService) Latest(ctx context.Context, userID int64) (*model.SkillGapReport, error) {
	reports, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no skill gap report yet")
	}
	return &reports[0], nil
}

// SetDeadline stores deadline on one roadmap phase. An empty deadline clears
// it. Nothing else about the report is recomputed.
func (s *SkillGapService) SetDeadline(ctx context.Context, userID, reportID int64, phase int, deadline string) (*model.SkillGapReport, error) {
	deadline = strings.TrimSpace(deadline)
	if deadline != "" {
		if _, err := time.Parse(model.DateLayout, deadline); err != nil {
			return nil, apperr.New(apperr.KindValidation, "deadline %q is not a YYYY-MM-DD date", deadline)
		}
	}

	report, err := s.store.GetSkillGapReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("get skill gap report: %w", err)
	}
	if report == nil || report.UserID != userID {
		return nil, apperr.New(apperr.KindNotFound, "skill gap report %d not found", reportID)
	}
	if phase < 0 || phase >= len(report.Roadmap) {
		return nil, apperr.New(apperr.KindValidation, "roadmap phase %d out of range", phase)
	}

	report.Roadmap[phase].Deadline = deadline
	if err := s.store.UpdateRoadmap(ctx, report.ID, report.Roadmap); err != nil {
		return nil, fmt.Errorf("update roadmap: %w", err)
	}
	return report, nil
}

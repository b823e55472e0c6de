package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/careerprep/internal/model"
)

const reportColumns = `id, user_id, target_role, current_skills, preparation_time, analysis, roadmap, strategies, created_at`

// CreateSkillGapReport inserts r and sets its ID and CreatedAt.
func (s *Store) CreateSkillGapReport(ctx context.Context, r *model.SkillGapReport) error {
	skills, err := encodeJSON(orEmpty(r.CurrentSkills))
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	analysis, err := encodeJSON(r.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	roadmap, err := encodeJSON(orEmpty(r.Roadmap))
	if err != nil {
		return fmt.Errorf("encode roadmap: %w", err)
	}
	strategies, err := encodeJSON(orEmpty(r.Strategies))
	if err != nil {
		return fmt.Errorf("encode strategies: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO skill_gap_reports (user_id, target_role, current_skills, preparation_time, analysis, roadmap, strategies, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.TargetRole, skills, r.PreparationTime, analysis, roadmap, strategies, now,
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

func scanReport(row rowScanner) (*model.SkillGapReport, error) {
	var r model.SkillGapReport
	var skills, analysis, roadmap, strategies string
	err := row.Scan(&r.ID, &r.UserID, &r.TargetRole, &skills, &r.PreparationTime, &analysis, &roadmap, &strategies, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw string
		v   any
	}{
		{skills, &r.CurrentSkills},
		{analysis, &r.Analysis},
		{roadmap, &r.Roadmap},
		{strategies, &r.Strategies},
	} {
		if err := decodeJSON(f.raw, f.v); err != nil {
			return nil, fmt.Errorf("decode report %d: %w", r.ID, err)
		}
	}
	return &r, nil
}

// GetSkillGapReport returns a report by ID, or nil if there is none.
func (s *Store) GetSkillGapReport(ctx context.Context, id int64) (*model.SkillGapReport, error) {
	return scanReport(s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM skill_gap_reports WHERE id = ?`, id))
}

// ListSkillGapReports returns a user's reports, newest first.
func (s *Store) ListSkillGapReports(ctx context.Context, userID int64) ([]model.SkillGapReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM skill_gap_reports WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reports := []model.SkillGapReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// UpdateRoadmap replaces the roadmap of a report.
func (s *Store) UpdateRoadmap(ctx context.Context, reportID int64, roadmap []model.RoadmapPhase) error {
	raw, err := encodeJSON(orEmpty(roadmap))
	if err != nil {
		return fmt.Errorf("encode roadmap: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE skill_gap_reports SET roadmap = ? WHERE id = ?`, raw, reportID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("skill gap report %d not found", reportID)
	}
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/model"
)

// PlannerStore persists reminders and study logs and summarizes progress.
type PlannerStore interface {
	ListReminders(ctx context.Context, userID int64) ([]model.StudyReminder, error)
	AddReminder(ctx context.Context, r model.StudyReminder) error
	DeleteReminder(ctx context.Context, userID int64, id string) (bool, error)
	UpsertStudyLog(ctx context.Context, l *model.StudyLog) error
	Dashboard(ctx context.Context, userID int64, today time.Time) (*model.Dashboard, error)
}

// PlannerService manages study reminders, study logs and the dashboard.
type PlannerService struct {
	store PlannerStore
	now   func() time.Time
}

func NewPlannerService(st PlannerStore) *PlannerService {
	return &PlannerService{store: st, now: time.Now}
}

// AddReminder validates r and stores it with a fresh ID. A reminder repeats
// on Days (0 = Sunday) or fires once on Date.
func (s *PlannerService) AddReminder(ctx context.Context, userID int64, r model.StudyReminder) (*model.StudyReminder, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return nil, apperr.New(apperr.KindValidation, "reminder title is required")
	}
	if _, err := time.Parse("15:04", r.Time); err != nil {
		return nil, apperr.New(apperr.KindValidation, "reminder time %q is not HH:MM", r.Time)
	}
	for _, d := range r.Days {
		if d < 0 || d > 6 {
			return nil, apperr.New(apperr.KindValidation, "reminder day %d is not in 0-6", d)
		}
	}
	slices.Sort(r.Days)
	r.Days = slices.Compact(r.Days)
	if r.Date != "" {
		if _, err := time.Parse(model.DateLayout, r.Date); err != nil {
			return nil, apperr.New(apperr.KindValidation, "reminder date %q is not YYYY-MM-DD", r.Date)
		}
	}
	if len(r.Days) == 0 && r.Date == "" {
		return nil, apperr.New(apperr.KindValidation, "reminder needs days or a date")
	}
	if r.Days == nil {
		r.Days = []int{}
	}

	r.ID = uuid.NewString()
	r.UserID = userID
	r.CreatedAt = s.now().UTC()
	if err := s.store.AddReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("add reminder: %w", err)
	}
	return &r, nil
}

// Reminders lists the user's reminders.
func (s *PlannerService) Reminders(ctx context.Context, userID int64) ([]model.StudyReminder, error) {
	list, err := s.store.ListReminders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return list, nil
}

// DeleteReminder removes one of the user's reminders.
func (s *PlannerService) DeleteReminder(ctx context.Context, userID int64, id string) error {
	removed, err := s.store.DeleteReminder(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if !removed {
		return apperr.New(apperr.KindNotFound, "reminder %q not found", id)
	}
	return nil
}

// LogStudy records hours studied on date (today when empty).
func (s *PlannerService) LogStudy(ctx context.Context, userID int64, hours float64, date string) (*model.StudyLog, error) {
	if hours <= 0 || hours > 24 {
		return nil, apperr.New(apperr.KindValidation, "hours must be in (0, 24]")
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().Format(model.DateLayout)
	} else if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperr.New(apperr.KindValidation, "date %q is not YYYY-MM-DD", date)
	}

	l := &model.StudyLog{UserID: userID, Hours: hours, Date: date}
	if err := s.store.UpsertStudyLog(ctx, l); err != nil {
		return nil, fmt.Errorf("log study: %w", err)
	}
	return l, nil
}

// Dashboard summarizes the user's progress as of now.
func (s *PlannerService) Dashboard(ctx context.Context, userID int64) (*model.Dashboard, error) {
	d, err := s.store.Dashboard(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return d, nil
}

package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/careerprep/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), model.User{
		Username:     username,
		DisplayName:  "User " + username,
		PasswordHash: "hash",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return id
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Missing user is nil, not an error.
	u, err := s.GetUserByUsername(ctx, "nobody")
	if err != nil || u != nil {
		t.Fatalf("GetUserByUsername(missing) = %v, %v", u, err)
	}

	id := createTestUser(t, s, "alice")
	u, err = s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.ID != id || u.DisplayName != "User alice" || !u.Active {
		t.Errorf("user = %+v", u)
	}

	// Duplicate username fails.
	if _, err := s.CreateUser(ctx, model.User{Username: "alice", PasswordHash: "x"}); err == nil {
		t.Error("expected error for duplicate username")
	}

	if err := s.SetUserActive(ctx, id, false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	u, _ = s.GetUserByID(ctx, id)
	if u.Active {
		t.Error("user should be inactive")
	}

	createTestUser(t, s, "bob")
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Errorf("ListUsers() = %d users, %v", len(users), err)
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	uid := createTestUser(t, s, "alice")

	sess, err := s.CreateAuthSession(ctx, uid, "curl/8.0", time.Hour)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(sess.ID) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.ID))
	}
	if d := sess.ExpiresAt.Sub(sess.CreatedAt); d != time.Hour {
		t.Errorf("ttl = %v, want 1h", d)
	}

	got, err := s.GetAuthSession(ctx, sess.ID)
	if err != nil || got == nil || got.UserID != uid || got.UserAgent != "curl/8.0" {
		t.Fatalf("GetAuthSession = %+v, %v", got, err)
	}

	if err := s.DeleteAuthSession(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetAuthSession(ctx, sess.ID)
	if err != nil || got != nil {
		t.Errorf("deleted session = %+v, %v", got, err)
	}

	// Expired sessions are not returned.
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := s.db.Exec(`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		"expired", uid, past.Add(-time.Hour), past); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetAuthSession(ctx, "expired")
	if err != nil || got != nil {
		t.Errorf("expired session = %+v, %v", got, err)
	}
}

func TestAuthSessionDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	uid := createTestUser(t, s, "alice")

	sess, err := s.CreateAuthSession(ctx, uid, strings.Repeat("x", 1000), 0)
	if err != nil {
		t.Fatal(err)
	}
	if d := sess.ExpiresAt.Sub(sess.CreatedAt); d != DefaultAuthSessionTTL {
		t.Errorf("ttl = %v, want %v", d, DefaultAuthSessionTTL)
	}
	got, err := s.GetAuthSession(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("GetAuthSession = %+v, %v", got, err)
	}
	if len(got.UserAgent) != maxUserAgentLen {
		t.Errorf("user agent length = %d, want %d", len(got.UserAgent), maxUserAgentLen)
	}
}

func TestListAndRevokeAuthSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	for _, ua := range []string{"laptop", "phone"} {
		if _, err := s.CreateAuthSession(ctx, alice, ua, time.Hour); err != nil {
			t.Fatal(err)
		}
	}
	bobSess, err := s.CreateAuthSession(ctx, bob, "tablet", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := s.db.Exec(`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		"stale", alice, past.Add(-time.Hour), past); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListAuthSessions(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("ListAuthSessions = %d, want 2 live logins", len(list))
	}

	n, err := s.CleanupExpiredSessions(ctx)
	if err != nil || n != 1 {
		t.Errorf("CleanupExpiredSessions = %d, %v, want 1", n, err)
	}

	n, err = s.RevokeAuthSessions(ctx, alice)
	if err != nil || n != 2 {
		t.Errorf("RevokeAuthSessions = %d, %v, want 2", n, err)
	}
	if list, _ := s.ListAuthSessions(ctx, alice); len(list) != 0 {
		t.Errorf("alice still has %d logins", len(list))
	}
	if got, err := s.GetAuthSession(ctx, bobSess.ID); err != nil || got == nil {
		t.Errorf("bob's login was revoked: %+v, %v", got, err)
	}
}

func testReport(userID int64) *model.SkillGapReport {
	return &model.SkillGapReport{
		UserID:          userID,
		TargetRole:      "Backend Engineer",
		CurrentSkills:   []string{"Go"},
		PreparationTime: "3 months",
		Analysis:        model.SkillAnalysis{RequiredSkills: []string{"Go", "SQL"}, MissingSkills: []string{"SQL"}},
		Roadmap: []model.RoadmapPhase{
			{Phase: "SQL basics", Topics: []string{"joins"}, Duration: "2 weeks"},
			{Phase: "Projects", Topics: []string{}, Duration: "1 month"},
		},
		Strategies: []model.Strategy{{Phase: "SQL basics", Strategy: "drills", TimeAllocation: "1h/day"}},
	}
}

func TestSkillGapReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	missing, err := s.GetSkillGapReport(ctx, 1)
	if err != nil || missing != nil {
		t.Fatalf("GetSkillGapReport(missing) = %v, %v", missing, err)
	}

	first := testReport(1)
	if err := s.CreateSkillGapReport(ctx, first); err != nil {
		t.Fatalf("CreateSkillGapReport: %v", err)
	}
	if first.ID == 0 || first.CreatedAt.IsZero() {
		t.Errorf("id/created not set: %+v", first)
	}
	second := testReport(1)
	second.TargetRole = "SRE"
	if err := s.CreateSkillGapReport(ctx, second); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSkillGapReport(ctx, testReport(2)); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSkillGapReport(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSkillGapReport: %v", err)
	}
	if got.TargetRole != "Backend Engineer" || got.Analysis.MissingSkills[0] != "SQL" ||
		len(got.Roadmap) != 2 || got.Strategies[0].Strategy != "drills" || got.CurrentSkills[0] != "Go" {
		t.Errorf("round trip = %+v", got)
	}

	list, err := s.ListSkillGapReports(ctx, 1)
	if err != nil {
		t.Fatalf("ListSkillGapReports: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("list = %d reports, first id %d; want 2 with newest first", len(list), list[0].ID)
	}

	got.Roadmap[1].Deadline = "2026-11-30"
	if err := s.UpdateRoadmap(ctx, got.ID, got.Roadmap); err != nil {
		t.Fatalf("UpdateRoadmap: %v", err)
	}
	got, _ = s.GetSkillGapReport(ctx, first.ID)
	if got.Roadmap[1].Deadline != "2026-11-30" || got.Roadmap[0].Deadline != "" {
		t.Errorf("roadmap after update = %+v", got.Roadmap)
	}
	if err := s.UpdateRoadmap(ctx, 999, nil); err == nil {
		t.Error("expected error updating a missing report")
	}
}

func TestExamResultsAndInterviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &model.ExamResult{
		UserID: 1, ExamType: "DSA", Score: 60, TotalQuestions: 5, Accuracy: 60,
		TimeSpent: 120, AIUsagePercent: 30, WeakTopics: []string{"coding", "mcq"},
		Results: []model.QuestionOutcome{{QuestionID: "q1", UserAnswer: "a", IsCorrect: true}},
	}
	if err := s.CreateExamResult(ctx, r); err != nil {
		t.Fatalf("CreateExamResult: %v", err)
	}
	results, err := s.ListExamResults(ctx, 1)
	if err != nil || len(results) != 1 {
		t.Fatalf("ListExamResults = %v, %v", results, err)
	}
	got := results[0]
	if got.ID != r.ID || got.Score != 60 || got.Accuracy != 60 || len(got.WeakTopics) != 2 || got.Results[0].QuestionID != "q1" {
		t.Errorf("exam result round trip = %+v", got)
	}
	if others, _ := s.ListExamResults(ctx, 2); len(others) != 0 {
		t.Errorf("other user sees %d results", len(others))
	}

	is := &model.InterviewSession{
		UserID: 1, ConfidenceScore: 70, StressLevel: 30, ClarityScore: 80, Duration: 95,
		Feedback: model.InterviewFeedback{Strengths: []string{"calm"}, Weaknesses: []string{}, Tips: []string{"STAR"}},
	}
	if err := s.CreateInterviewSession(ctx, is); err != nil {
		t.Fatalf("CreateInterviewSession: %v", err)
	}
	sessions, err := s.ListInterviewSessions(ctx, 1)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListInterviewSessions = %v, %v", sessions, err)
	}
	if sessions[0].Duration != 95 || sessions[0].Feedback.Tips[0] != "STAR" {
		t.Errorf("interview round trip = %+v", sessions[0])
	}
}

func TestKeyValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Missing key returns empty string.
	v, err := s.GetValue(ctx, "k")
	if err != nil || v != "" {
		t.Fatalf("GetValue(missing) = %q, %v", v, err)
	}
	if err := s.SetValue(ctx, "k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetValue(ctx, "k", "two"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetValue(ctx, "k"); v != "two" {
		t.Errorf("GetValue = %q, want two", v)
	}
}

func TestReminders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.ListReminders(ctx, 1)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("ListReminders(empty) = %#v, %v", list, err)
	}

	for _, r := range []model.StudyReminder{
		{ID: "a", UserID: 1, Title: "Graphs", Time: "19:00", Days: []int{1, 3}, Enabled: true},
		{ID: "b", UserID: 1, Title: "SQL", Time: "08:30", Date: "2026-11-01"},
		{ID: "c", UserID: 2, Title: "Other", Time: "10:00", Enabled: true},
	} {
		if err := s.AddReminder(ctx, r); err != nil {
			t.Fatalf("AddReminder: %v", err)
		}
	}

	list, _ = s.ListReminders(ctx, 1)
	if len(list) != 2 || list[0].ID != "a" || list[1].Date != "2026-11-01" {
		t.Errorf("reminders = %+v", list)
	}
	raw, _ := s.GetValue(ctx, RemindersKey(1))
	if raw == "" {
		t.Error("reminders should live under the reminders_<userId> key")
	}

	removed, err := s.DeleteReminder(ctx, 1, "a")
	if err != nil || !removed {
		t.Fatalf("DeleteReminder = %t, %v", removed, err)
	}
	removed, _ = s.DeleteReminder(ctx, 1, "a")
	if removed {
		t.Error("second delete should report nothing removed")
	}
	list, _ = s.ListReminders(ctx, 1)
	if len(list) != 1 || list[0].ID != "b" {
		t.Errorf("reminders after delete = %+v", list)
	}
}

func TestStudyLogsAndDashboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	d, err := s.Dashboard(ctx, 1, today)
	if err != nil {
		t.Fatalf("Dashboard(empty): %v", err)
	}
	if d.ExamsTaken != 0 || d.LatestReportID != nil || d.StudyHoursLastWeek != 0 {
		t.Errorf("empty dashboard = %+v", d)
	}

	for _, l := range []model.StudyLog{
		{UserID: 1, Hours: 2, Date: "2026-10-15"},
		{UserID: 1, Hours: 1.5, Date: "2026-10-09"},
		{UserID: 1, Hours: 4, Date: "2026-10-08"}, // outside the window
		{UserID: 2, Hours: 9, Date: "2026-10-15"},
	} {
		if err := s.UpsertStudyLog(ctx, &l); err != nil {
			t.Fatalf("UpsertStudyLog: %v", err)
		}
		if l.ID == 0 {
			t.Error("UpsertStudyLog should set ID")
		}
	}
	// Same day replaces the earlier entry.
	again := model.StudyLog{UserID: 1, Hours: 3, Date: "2026-10-15"}
	if err := s.UpsertStudyLog(ctx, &again); err != nil {
		t.Fatal(err)
	}

	logs, err := s.ListStudyLogs(ctx, 1, "")
	if err != nil || len(logs) != 3 {
		t.Fatalf("ListStudyLogs = %+v, %v", logs, err)
	}
	if logs[0].Date != "2026-10-08" {
		t.Errorf("logs should be oldest first, got %+v", logs)
	}

	for _, score := range []int{60, 80} {
		if err := s.CreateExamResult(ctx, &model.ExamResult{UserID: 1, ExamType: "SQL", Score: score, Accuracy: score, TotalQuestions: 5}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateInterviewSession(ctx, &model.InterviewSession{UserID: 1}); err != nil {
		t.Fatal(err)
	}
	rep := testReport(1)
	if err := s.CreateSkillGapReport(ctx, rep); err != nil {
		t.Fatal(err)
	}
	if err := s.AddReminder(ctx, model.StudyReminder{ID: "r", UserID: 1, Title: "x", Time: "09:00", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddReminder(ctx, model.StudyReminder{ID: "s", UserID: 1, Title: "y", Time: "09:00"}); err != nil {
		t.Fatal(err)
	}

	d, err = s.Dashboard(ctx, 1, today)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.ExamsTaken != 2 || d.AverageScore != 70 || d.InterviewsTaken != 1 {
		t.Errorf("dashboard counts = %+v", d)
	}
	if d.LatestReportID == nil || *d.LatestReportID != rep.ID {
		t.Errorf("LatestReportID = %v, want %d", d.LatestReportID, rep.ID)
	}
	if d.StudyHoursLastWeek != 4.5 {
		t.Errorf("StudyHoursLastWeek = %v, want 4.5", d.StudyHoursLastWeek)
	}
	if d.ActiveReminderCount != 1 {
		t.Errorf("ActiveReminderCount = %d, want 1", d.ActiveReminderCount)
	}
}

func TestExportUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exp, err := s.ExportUser(ctx, "ghost")
	if err != nil || exp != nil {
		t.Fatalf("ExportUser(missing) = %v, %v", exp, err)
	}

	uid := createTestUser(t, s, "alice")
	if err := s.CreateSkillGapReport(ctx, testReport(uid)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateExamResult(ctx, &model.ExamResult{UserID: uid, ExamType: "DBMS", Score: 40, Accuracy: 40, TotalQuestions: 5}); err != nil {
		t.Fatal(err)
	}

	exp, err = s.ExportUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ExportUser: %v", err)
	}
	if exp.Username != "alice" || len(exp.SkillGapReports) != 1 || len(exp.ExamResults) != 1 {
		t.Errorf("export = %+v", exp)
	}
	if exp.InterviewSessions == nil || exp.Reminders == nil || exp.StudyLogs == nil {
		t.Error("empty collections should export as empty lists")
	}
}

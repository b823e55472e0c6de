package model

import (
	"context"
	"slices"
	"time"
)

// DateLayout is the calendar-date format used for deadlines, reminders and study logs.
const DateLayout = "2006-01-02"

// User represents an account that owns reports, results and sessions.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuthSession is one login token. UserAgent records the client that
// logged in.
type AuthSession struct {
	ID        string    `json:"-"`
	UserID    int64     `json:"userId"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Subjects lists the exam subjects questions can be generated for.
var Subjects = []string{"DSA", "SQL", "Computer Networks", "DBMS", "Operating Systems"}

// IsSupportedSubject reports whether s is one of Subjects.
func IsSupportedSubject(s string) bool {
	return slices.Contains(Subjects, s)
}

// InterviewQuestion is the behavioral prompt shown during every mock interview.
const InterviewQuestion = "Describe a situation where you had to work with a difficult team member. How did you handle it and what was the outcome?"

// QuestionKind distinguishes multiple-choice from free-form questions.
type QuestionKind string

const (
	KindMCQ    QuestionKind = "mcq"
	KindCoding QuestionKind = "coding"
)

// Question is one exam item. Options is only set for multiple-choice questions.
type Question struct {
	ID            string       `json:"id"`
	Kind          QuestionKind `json:"type"`
	Text          string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// CodeVerdict is the model's judgement of a free-form coding answer.
type CodeVerdict struct {
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// SkillAnalysis is the required/missing split of a skill-gap report.
type SkillAnalysis struct {
	RequiredSkills []string `json:"requiredSkills"`
	MissingSkills  []string `json:"missingSkills"`
}

// RoadmapPhase is one step of a preparation roadmap. An empty Deadline means
// no deadline has been set.
type RoadmapPhase struct {
	Phase    string   `json:"phase"`
	Topics   []string `json:"topics"`
	Duration string   `json:"duration"`
	Deadline string   `json:"deadline,omitempty"`
}

// Overdue reports whether the phase has a deadline strictly before today.
// Unparseable deadlines are never overdue.
func (p RoadmapPhase) Overdue(today time.Time) bool {
	if p.Deadline == "" {
		return false
	}
	d, err := time.Parse(DateLayout, p.Deadline)
	if err != nil {
		return false
	}
	y, m, day := today.Date()
	return d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
}

// Strategy maps a roadmap phase to a tactic.
type Strategy struct {
	Phase          string `json:"phase"`
	Strategy       string `json:"strategy"`
	TimeAllocation string `json:"timeAllocation"`
}

// SkillGapReport is one gap analysis for a user and target role.
type SkillGapReport struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"userId"`
	TargetRole      string         `json:"targetRole"`
	CurrentSkills   []string       `json:"currentSkills"`
	PreparationTime string         `json:"preparationTime"`
	Analysis        SkillAnalysis  `json:"analysis"`
	Roadmap         []RoadmapPhase `json:"roadmap"`
	Strategies      []Strategy     `json:"strategies"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// QuestionOutcome is the graded answer to one question of an exam.
type QuestionOutcome struct {
	QuestionID    string       `json:"questionId"`
	QuestionText  string       `json:"questionText,omitempty"`
	QuestionType  QuestionKind `json:"questionType,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	UserAnswer    string       `json:"userAnswer"`
	IsCorrect     bool         `json:"isCorrect"`
	Explanation   string       `json:"explanation"`
}

// ExamResult is the scored outcome of one exam session. Accuracy always
// mirrors Score.
type ExamResult struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"userId"`
	ExamType       string            `json:"examType"`
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	Accuracy       int               `json:"accuracy"`
	TimeSpent      int               `json:"timeSpent"`
	AIUsagePercent int               `json:"aiUsagePercent"`
	WeakTopics     []string          `json:"weakTopics"`
	Results        []QuestionOutcome `json:"results"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// InterviewFeedback holds the ordered lists of an interview review.
type InterviewFeedback struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Tips       []string `json:"tips"`
}

// InterviewSession is the scored outcome of one mock interview.
type InterviewSession struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"userId"`
	ConfidenceScore int               `json:"confidenceScore"`
	StressLevel     int               `json:"stressLevel"`
	ClarityScore    int               `json:"clarityScore"`
	Feedback        InterviewFeedback `json:"feedback"`
	Duration        int               `json:"duration,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// StudyReminder is a recurring or one-time study reminder.
type StudyReminder struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Time      string    `json:"time"`
	Days      []int     `json:"days"`
	Date      string    `json:"date,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// StudyLog records hours studied on a given day.
type StudyLog struct {
	ID     int64   `json:"id"`
	UserID int64   `json:"userId"`
	Hours  float64 `json:"hours"`
	Date   string  `json:"date"`
}

// Dashboard summarizes a user's progress.
type Dashboard struct {
	ExamsTaken          int     `json:"examsTaken"`
	AverageScore        float64 `json:"averageScore"`
	InterviewsTaken     int     `json:"interviewsTaken"`
	LatestReportID      *int64  `json:"latestReportId,omitempty"`
	StudyHoursLastWeek  float64 `json:"studyHoursLastWeek"`
	ActiveReminderCount int     `json:"activeReminderCount"`
}

package model

import "time"

// UserExport is the top-level JSON structure written by the export command.
type UserExport struct {
	Username          string             `json:"username"`
	ExportedAt        time.Time          `json:"exportedAt"`
	SkillGapReports   []SkillGapReport   `json:"skillGapReports"`
	ExamResults       []ExamResult       `json:"examResults"`
	InterviewSessions []InterviewSession `json:"interviewSessions"`
	Reminders         []StudyReminder    `json:"reminders"`
	StudyLogs         []StudyLog         `json:"studyLogs"`
}

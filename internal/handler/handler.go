package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/careerprep/internal/llm"
	"github.com/pavelanni/careerprep/internal/metrics"
	"github.com/pavelanni/careerprep/internal/service"
	"github.com/pavelanni/careerprep/internal/session"
	"github.com/pavelanni/careerprep/internal/store"
)

// Config holds HTTP-layer settings.
type Config struct {
	SecureCookies bool
	// SessionTTL is the lifetime of a login token. Zero uses
	// store.DefaultAuthSessionTTL.
	SessionTTL time.Duration
	// RateLimit is the sustained number of /api/ai requests per minute
	// allowed per user. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// QuestionCount is the size of a generated exam batch.
	QuestionCount int
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	skillGap  *service.SkillGapService
	exam      *service.ExamService
	interview *service.InterviewService
	planner   *service.PlannerService
	sessions  *session.Registry
	limiter   *userLimiter
	config    Config
}

// New wires the domain services around s and c.
func New(s *store.Store, c llm.Completer, cfg Config, opts ...session.Option) *Handler {
	exam := service.NewExamService(c, cfg.QuestionCount)
	interview := service.NewInterviewService(c)
	return &Handler{
		store:     s,
		skillGap:  service.NewSkillGapService(c, s),
		exam:      exam,
		interview: interview,
		planner:   service.NewPlannerService(s),
		sessions:  session.NewRegistry(exam, interview, s, s, opts...),
		limiter:   newUserLimiter(cfg.RateLimit, cfg.RateBurst),
		config:    cfg,
	}
}

// Close releases any media captures held by live interview sessions.
func (h *Handler) Close() {
	h.sessions.Close()
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(metrics.Middleware)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/api/auth/login", h.handleLogin)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/sessions", h.handleListLogins)

		r.Route("/ai", func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/skill-gap", h.handleSkillGap)
			r.Post("/generate-exam", h.handleGenerateExam)
			r.Post("/interview-feedback", h.handleInterviewFeedback)
			r.Post("/explanation", h.handleExplanation)
		})

		r.Get("/skill-gap", h.handleListReports)
		r.Get("/skill-gap/latest", h.handleLatestReport)
		r.Patch("/skill-gap/{reportID}/roadmap/{phase}", h.handleSetDeadline)

		r.Route("/exam", func(r chi.Router) {
			r.Get("/", h.handleExamView)
			r.Get("/results", h.handleExamResults)
			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit)
				r.Post("/start", h.handleExamStart)
			})
			r.Post("/answer", h.handleExamAnswer)
			r.Post("/keystroke", h.handleExamKeystroke)
			r.Post("/next", h.handleExamNext)
			r.Post("/previous", h.handleExamPrevious)
			r.Post("/finish", h.handleExamFinish)
			r.Post("/reset", h.handleExamReset)
		})

		r.Route("/interview", func(r chi.Router) {
			r.Get("/", h.handleInterviewView)
			r.Get("/sessions", h.handleInterviewSessions)
			r.Post("/start", h.handleInterviewStart)
			r.Post("/retake", h.handleInterviewRetake)
			r.Group(func(r chi.Router) {
				r.Use(h.rateLimit)
				r.Post("/finish", h.handleInterviewFinish)
				r.Post("/retry", h.handleInterviewRetry)
			})
		})

		r.Get("/reminders", h.handleListReminders)
		r.Post("/reminders", h.handleAddReminder)
		r.Delete("/reminders/{id}", h.handleDeleteReminder)
		r.Post("/study-logs", h.handleLogStudy)
		r.Get("/dashboard", h.handleDashboard)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

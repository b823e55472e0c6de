package handler

import (
	"net/http"

	"github.com/pavelanni/careerprep/internal/session"
)

// interviewAction runs fn against the caller's interview controller and
// answers with the resulting view.
func (h *Handler) interviewAction(w http.ResponseWriter, r *http.Request, fn func(*session.Interview) error) {
	iv := h.sessions.Interview(userID(r))
	if err := fn(iv); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, iv.View())
}

func (h *Handler) handleInterviewView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Interview(userID(r)).View())
}

// handleInterviewStart takes the camera and microphone grants the client
// obtained from the user.
func (h *Handler) handleInterviewStart(w http.ResponseWriter, r *http.Request) {
	var media session.DeclaredMedia
	if err := decodeBody(w, r, &media); err != nil {
		writeError(w, r, err)
		return
	}
	h.interviewAction(w, r, func(iv *session.Interview) error {
		return iv.Start(r.Context(), media)
	})
}

func (h *Handler) handleInterviewFinish(w http.ResponseWriter, r *http.Request) {
	h.interviewAction(w, r, func(iv *session.Interview) error {
		return iv.Finish(r.Context())
	})
}

func (h *Handler) handleInterviewRetry(w http.ResponseWriter, r *http.Request) {
	h.interviewAction(w, r, func(iv *session.Interview) error {
		return iv.RetryFeedback(r.Context())
	})
}

func (h *Handler) handleInterviewRetake(w http.ResponseWriter, r *http.Request) {
	h.interviewAction(w, r, (*session.Interview).Retake)
}

func (h *Handler) handleInterviewSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListInterviewSessions(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

package handler

import (
	"net/http"

	"github.com/pavelanni/careerprep/internal/session"
)

type examStartRequest struct {
	Subject string `json:"subject"`
}

type examAnswerRequest struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type keystrokeRequest struct {
	Count int `json:"count"`
}

// examAction runs fn against the caller's exam machine and answers with the
// resulting view.
func (h *Handler) examAction(w http.ResponseWriter, r *http.Request, fn func(*session.Exam) error) {
	e := h.sessions.Exam(userID(r))
	if err := fn(e); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (h *Handler) handleExamView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Exam(userID(r)).View())
}

func (h *Handler) handleExamStart(w http.ResponseWriter, r *http.Request) {
	var req examStartRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.examAction(w, r, func(e *session.Exam) error {
		return e.Start(r.Context(), req.Subject)
	})
}

func (h *Handler) handleExamAnswer(w http.ResponseWriter, r *http.Request) {
	var req examAnswerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.examAction(w, r, func(e *session.Exam) error {
		return e.Answer(req.QuestionID, req.Answer)
	})
}

func (h *Handler) handleExamKeystroke(w http.ResponseWriter, r *http.Request) {
	req := keystrokeRequest{Count: 1}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.examAction(w, r, func(e *session.Exam) error {
		return e.Keystroke(req.Count)
	})
}

func (h *Handler) handleExamNext(w http.ResponseWriter, r *http.Request) {
	h.examAction(w, r, (*session.Exam).Next)
}

func (h *Handler) handleExamPrevious(w http.ResponseWriter, r *http.Request) {
	h.examAction(w, r, (*session.Exam).Previous)
}

func (h *Handler) handleExamReset(w http.ResponseWriter, r *http.Request) {
	h.examAction(w, r, func(e *session.Exam) error {
		e.BackToSelection()
		return nil
	})
}

func (h *Handler) handleExamFinish(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Exam(userID(r)).Finish(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExamResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListExamResults(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

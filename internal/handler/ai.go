package handler

import "net/http"

type skillGapRequest struct {
	Role   string   `json:"role"`
	Skills []string `json:"skills"`
	Time   string   `json:"time"`
}

func (h *Handler) handleSkillGap(w http.ResponseWriter, r *http.Request) {
	var req skillGapRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.skillGap.Analyze(r.Context(), userID(r), req.Role, req.Skills, req.Time)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type generateExamRequest struct {
	Type string `json:"type"`
}

func (h *Handler) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	var req generateExamRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	questions, err := h.exam.Questions(r.Context(), req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleInterviewFeedback(w http.ResponseWriter, r *http.Request) {
	s, err := h.interview.Feedback(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type explanationRequest struct {
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correctAnswer"`
	Validate      bool   `json:"validate"`
}

type explanationResponse struct {
	Explanation string `json:"explanation"`
	IsCorrect   *bool  `json:"isCorrect,omitempty"`
}

// handleExplanation explains an answer. With validate set it also judges a
// free-form answer.
func (h *Handler) handleExplanation(w http.ResponseWriter, r *http.Request) {
	var req explanationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Validate {
		v, err := h.exam.ValidateCode(r.Context(), req.Question, req.Answer, req.CorrectAnswer)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, explanationResponse{Explanation: v.Explanation, IsCorrect: &v.IsCorrect})
		return
	}

	text, err := h.exam.Explain(r.Context(), req.Question, req.Answer, req.CorrectAnswer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, explanationResponse{Explanation: text})
}

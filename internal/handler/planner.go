package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/model"
)

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.skillGap.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.skillGap.Latest(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type deadlineRequest struct {
	Deadline string `json:"deadline"`
}

func (h *Handler) handleSetDeadline(w http.ResponseWriter, r *http.Request) {
	reportID, err := strconv.ParseInt(chi.URLParam(r, "reportID"), 10, 64)
	if err != nil {
		writeError(w, r, apperr.New(apperr.KindValidation, "invalid report ID"))
		return
	}
	phase, err := strconv.Atoi(chi.URLParam(r, "phase"))
	if err != nil {
		writeError(w, r, apperr.New(apperr.KindValidation, "invalid phase index"))
		return
	}
	var req deadlineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.skillGap.SetDeadline(r.Context(), userID(r), reportID, phase, req.Deadline)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleListReminders(w http.ResponseWriter, r *http.Request) {
	list, err := h.planner.Reminders(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleAddReminder(w http.ResponseWriter, r *http.Request) {
	var req model.StudyReminder
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rem, err := h.planner.AddReminder(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (h *Handler) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeleteReminder(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type studyLogRequest struct {
	Hours float64 `json:"hours"`
	Date  string  `json:"date"`
}

func (h *Handler) handleLogStudy(w http.ResponseWriter, r *http.Request) {
	var req studyLogRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.planner.LogStudy(r.Context(), userID(r), req.Hours, req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.planner.Dashboard(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

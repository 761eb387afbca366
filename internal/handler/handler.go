// Package handler exposes the practice pipeline over a small JSON API.
// Per the degradation policy, clients only ever see generic success or
// failure messages; the quota/network/parsing distinction stays in the
// logs.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizforge/internal/i18n"
	"quizforge/internal/model"
	"quizforge/internal/practice"
	"quizforge/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	service *practice.Service
}

// New creates a new Handler.
func New(s *store.Store, svc *practice.Service) *Handler {
	return &Handler{store: s, service: svc}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/courses/{courseID}/documents", h.handleRegisterDocument)
		r.Get("/courses/{courseID}/documents", h.handleListDocuments)
		r.Delete("/documents/{documentID}", h.handleDeleteDocument)

		r.Post("/courses/{courseID}/practice", h.handleGeneratePractice)
		r.Get("/practice/{sessionID}", h.handleGetSession)
		r.Post("/practice/{sessionID}/submit", h.handleSubmitAnswers)
		r.Get("/courses/{courseID}/stats", h.handleCourseStats)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func (h *Handler) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var doc model.CourseDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": i18n.T(r.Context(), "invalid_request")})
		return
	}
	if err := h.store.PutDocument(r.Context(), courseID, doc); err != nil {
		slog.Error("register document", "course_id", courseID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": i18n.T(r.Context(), "invalid_request")})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": i18n.T(r.Context(), "document_registered"),
		"id":      doc.ID,
	})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	docs, err := h.store.ListByCourse(r.Context(), courseID)
	if err != nil {
		slog.Error("list documents", "course_id", courseID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": i18n.T(r.Context(), "practice_failed")})
		return
	}
	if docs == nil {
		docs = []model.CourseDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if err := h.store.DeleteDocument(r.Context(), documentID); err != nil {
		slog.Error("delete document", "document_id", documentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": i18n.T(r.Context(), "practice_failed")})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": i18n.T(r.Context(), "document_deleted")})
}

type generateRequest struct {
	CourseName string             `json:"course_name"`
	OwnerID    string             `json:"owner_id"`
	Kind       model.PracticeKind `json:"kind"`
	Count      int                `json:"count"`
}

func (h *Handler) handleGeneratePractice(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": i18n.T(r.Context(), "invalid_request")})
		return
	}
	if req.Count <= 0 || req.OwnerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": i18n.T(r.Context(), "invalid_request")})
		return
	}
	if req.Kind == "" {
		req.Kind = model.PracticeMixed
	}

	session, err := h.service.GeneratePractice(r.Context(), courseID, req.CourseName, req.OwnerID, req.Kind, req.Count)
	if err != nil {
		slog.Error("practice generation failed", "course_id", courseID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": i18n.T(r.Context(), "practice_failed")})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": i18n.Tp(r.Context(), "practice_generated", len(session.Questions)),
		"session": session,
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": i18n.T(r.Context(), "not_found")})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type submitRequest struct {
	Answers []string `json:"answers"`
}

func (h *Handler) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": i18n.T(r.Context(), "invalid_request")})
		return
	}

	result, err := h.service.SubmitAnswers(r.Context(), sessionID, req.Answers)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		slog.Warn("submit answers failed", "session_id", sessionID, "error", err)
		writeJSON(w, status, map[string]string{"error": i18n.T(r.Context(), "invalid_request")})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": i18n.T(r.Context(), "practice_submitted"),
		"result":  result,
	})
}

func (h *Handler) handleCourseStats(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	ownerID := r.URL.Query().Get("user")
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": i18n.T(r.Context(), "invalid_request")})
		return
	}

	stats, err := h.service.CourseStats(r.Context(), courseID, ownerID)
	if err != nil {
		slog.Error("course stats failed", "course_id", courseID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": i18n.T(r.Context(), "practice_failed")})
		return
	}
	if stats.TopWeakTopics == nil {
		stats.TopWeakTopics = []string{}
	}
	writeJSON(w, http.StatusOK, stats)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chineduoko/exam-rag/internal/exam"
	"github.com/chineduoko/exam-rag/internal/material"
)

type Handler struct {
	generator *exam.Generator
	grader    *exam.GradingService
	store     *material.Store
}

func NewHandler(generator *exam.Generator, grader *exam.GradingService, store *material.Store) *Handler {
	return &Handler{generator: generator, grader: grader, store: store}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) SupportedProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"llm_providers":       exam.SupportedLLMProviders,
		"embedding_providers": exam.SupportedEmbeddingProviders,
	})
}

func (h *Handler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req exam.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	resp, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GradeAnswer(w http.ResponseWriter, r *http.Request) {
	var req exam.GradingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := h.grader.Grade(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) BatchGradeAnswers(w http.ResponseWriter, r *http.Request) {
	var req exam.BatchGradingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	// Per-item failures live inside the items; the batch itself only
	// fails on a malformed request.
	items := h.grader.GradeBatch(r.Context(), req.Answers)
	writeJSON(w, http.StatusOK, items)
}

type uploadMaterialsRequest struct {
	CourseID          string                 `json:"course_id"`
	PDFURLs           []string               `json:"pdf_urls"`
	EmbeddingProvider exam.EmbeddingProvider `json:"embedding_provider"`
}

func (h *Handler) UploadCourseMaterials(w http.ResponseWriter, r *http.Request) {
	var req uploadMaterialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.CourseID == "" || len(req.PDFURLs) == 0 {
		writeError(w, http.StatusBadRequest, "course_id and pdf_urls are required")
		return
	}

	result, err := h.store.Ingest(r.Context(), req.CourseID, req.PDFURLs, req.EmbeddingProvider)
	if err != nil {
		// Partial ingestion is possible: report what was stored next to
		// the failure instead of hiding it.
		writeJSON(w, statusFor(err), map[string]any{
			"error":       err.Error(),
			"stored_urls": result.StoredURLs,
			"chunk_count": result.ChunkCount,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type updateMaterialRequest struct {
	CourseID          string                 `json:"course_id"`
	PDFURL            string                 `json:"pdf_url"`
	EmbeddingProvider exam.EmbeddingProvider `json:"embedding_provider"`
}

func (h *Handler) UpdateCourseMaterial(w http.ResponseWriter, r *http.Request) {
	var req updateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.CourseID == "" || req.PDFURL == "" {
		writeError(w, http.StatusBadRequest, "course_id and pdf_url are required")
		return
	}

	result, err := h.store.Update(r.Context(), req.CourseID, req.PDFURL, req.EmbeddingProvider)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteCourseMaterials(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["courseID"]
	if courseID == "" {
		writeError(w, http.StatusBadRequest, "courseID is required")
		return
	}

	if err := h.store.Delete(r.Context(), courseID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"course_id": courseID, "status": "deleted"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, exam.ErrValidation), errors.Is(err, exam.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, exam.ErrFetch), errors.Is(err, exam.ErrProviderCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

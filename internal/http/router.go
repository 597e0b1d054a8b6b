package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/supported-providers", h.SupportedProviders).Methods(http.MethodGet)

	r.HandleFunc("/generate-questions", h.GenerateQuestions).Methods(http.MethodPost)
	r.HandleFunc("/grade-answer", h.GradeAnswer).Methods(http.MethodPost)
	r.HandleFunc("/batch-grade-answers", h.BatchGradeAnswers).Methods(http.MethodPost)

	r.HandleFunc("/course-materials", h.UploadCourseMaterials).Methods(http.MethodPost)
	r.HandleFunc("/course-materials", h.UpdateCourseMaterial).Methods(http.MethodPut)
	r.HandleFunc("/course-materials/{courseID}", h.DeleteCourseMaterials).Methods(http.MethodDelete)

	return r
}

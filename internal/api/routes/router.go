package routes

import (
	"net/http"

	"github.com/zatekoja/doctorconsole/internal/api/handlers"
	"github.com/zatekoja/doctorconsole/internal/api/middleware"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	queueHandler        *handlers.QueueHandler
	recordingHandler    *handlers.RecordingHandler
	consultationHandler *handlers.ConsultationHandler
	sseHandler          *handlers.SSEHandler

	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(
	queueHandler *handlers.QueueHandler,
	recordingHandler *handlers.RecordingHandler,
	consultationHandler *handlers.ConsultationHandler,
	sseHandler *handlers.SSEHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		queueHandler:        queueHandler,
		recordingHandler:    recordingHandler,
		consultationHandler: consultationHandler,
		sseHandler:          sseHandler,
		metrics:             metrics,
		allowedOrigins:      allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Queue endpoints
	r.mux.HandleFunc("GET /api/doctors/{doctorId}/queue", r.queueHandler.GetQueue)
	r.mux.HandleFunc("POST /api/doctors/{doctorId}/queue/advance", r.queueHandler.AdvanceQueue)

	// Recording endpoints
	r.mux.HandleFunc("GET /api/recordings/current", r.recordingHandler.GetCurrent)
	r.mux.HandleFunc("POST /api/recordings", r.recordingHandler.StartRecording)
	r.mux.HandleFunc("POST /api/recordings/current/audio", r.recordingHandler.WriteAudio)
	r.mux.HandleFunc("POST /api/recordings/current/stop", r.recordingHandler.StopRecording)
	r.mux.HandleFunc("POST /api/recordings/current/upload", r.recordingHandler.UploadRecording)
	r.mux.HandleFunc("DELETE /api/recordings/current", r.recordingHandler.DiscardRecording)

	// Consultation endpoints
	r.mux.HandleFunc("GET /api/consultations/{appointmentId}/draft", r.consultationHandler.GetDraft)
	r.mux.HandleFunc("PATCH /api/consultations/{appointmentId}/draft", r.consultationHandler.UpdateDraft)
	r.mux.HandleFunc("DELETE /api/consultations/{appointmentId}/draft", r.consultationHandler.DiscardDraft)
	r.mux.HandleFunc("POST /api/consultations/{appointmentId}/draft/prescriptions", r.consultationHandler.AddPrescription)
	r.mux.HandleFunc("PATCH /api/consultations/{appointmentId}/draft/prescriptions/{id}", r.consultationHandler.UpdatePrescription)
	r.mux.HandleFunc("DELETE /api/consultations/{appointmentId}/draft/prescriptions/{id}", r.consultationHandler.RemovePrescription)
	r.mux.HandleFunc("POST /api/consultations/{appointmentId}/submit", r.consultationHandler.SubmitConsultation)

	// Real-time events
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/recordings", r.sseHandler.StreamRecordings)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

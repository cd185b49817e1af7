package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/doctorconsole/internal/application/services"
	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/observability"
)

const heartbeatInterval = 30 * time.Second

// SSEHandler streams recording, consultation and queue events to console screens
type SSEHandler struct {
	eventBus   providers.EventBus
	recordings *services.RecordingService
	clients    map[chan *entities.ClinicEvent]struct{}
	mu         sync.RWMutex
	heartbeat  time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus, recordings *services.RecordingService) *SSEHandler {
	return &SSEHandler{
		eventBus:   eventBus,
		recordings: recordings,
		clients:    make(map[chan *entities.ClinicEvent]struct{}),
		heartbeat:  heartbeatInterval,
	}
}

// StreamRecordings handles SSE connections for a console screen. The current
// recording status is sent right after connecting so a reloaded screen can
// resume its indicator.
// GET /api/stream/recordings?doctor_id=X
func (h *SSEHandler) StreamRecordings(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)
	doctorID := r.URL.Query().Get("doctor_id")

	channels := []string{providers.EventChannelRecording, providers.EventChannelConsultation}
	if doctorID != "" {
		channels = append(channels, providers.GetDoctorChannel(doctorID))
	}

	clientChan := make(chan *entities.ClinicEvent, 32)
	h.registerClient(clientChan)
	defer h.unregisterClient(clientChan)

	for _, channel := range channels {
		eventChan, err := h.eventBus.Subscribe(ctx, channel)
		if err != nil {
			logger.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to channel")
			respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}
		go h.forwardEvents(ctx, eventChan, clientChan)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", map[string]interface{}{
		"doctor_id": doctorID,
		"timestamp": time.Now(),
	})
	h.sendEvent(w, string(entities.ClinicEventRecordingStatus),
		entities.NewRecordingStatusEvent(h.recordings.Status()))
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("doctor_id", doctorID).Msg("Client disconnected from console stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents forwards events from the event bus to a client channel
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.ClinicEvent, clientChan chan<- *entities.ClinicEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				// client is behind, drop
			}
		}
	}
}

func (h *SSEHandler) registerClient(clientChan chan *entities.ClinicEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[clientChan] = struct{}{}
}

func (h *SSEHandler) unregisterClient(clientChan chan *entities.ClinicEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, clientChan)
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("event", eventType).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/Lang-lll/lll-cognitive-core/internal/gateway"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Lifecycle event types accepted on POST /api/events.
const (
	EventWakeUp = "wake_up"
	EventSleep  = "sleep"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	core   *cognitive.Core
	gw     *gateway.Gateway
	logger *zap.Logger
}

// NewHandler creates a new API handler. gw may be nil when no chat
// adapters are configured.
func NewHandler(core *cognitive.Core, gw *gateway.Gateway, logger *zap.Logger) *Handler {
	return &Handler{core: core, gw: gw, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/status", h.systemStatus)

		r.Post("/events", h.receiveEvent)
		r.Get("/events", h.recentEvents)
		r.Post("/wake", h.wakeUp)
		r.Post("/sleep", h.sleep)

		r.Get("/plugins", h.listPlugins)
		r.Get("/goals", h.listGoals)
		r.Put("/goals", h.setGoals)

		r.Get("/gateway/status", h.gatewayStatus)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": h.core.State().String()})
}

func (h *Handler) systemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Status())
}

type eventRequest struct {
	Type   string `json:"type"`
	Data   string `json:"data"`
	Source string `json:"source"`
}

func (h *Handler) receiveEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Type {
	case "":
		writeError(w, http.StatusBadRequest, "type is required")
		return
	case EventWakeUp:
		h.core.WakeUp()
	case EventSleep:
		h.core.Sleep()
	default:
		if req.Data == "" {
			writeError(w, http.StatusBadRequest, "data is required")
			return
		}
		if req.Source == "" {
			req.Source = "api"
		}
		h.core.ReceiveEvent(req.Type, req.Data, req.Source)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": h.core.State().String()})
}

func (h *Handler) recentEvents(w http.ResponseWriter, r *http.Request) {
	events := h.core.RecentEvents()
	if events == nil {
		events = []cognitive.CognitiveEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) wakeUp(w http.ResponseWriter, r *http.Request) {
	h.core.WakeUp()
	writeJSON(w, http.StatusOK, map[string]string{"status": h.core.State().String()})
}

func (h *Handler) sleep(w http.ResponseWriter, r *http.Request) {
	h.core.Sleep()
	writeJSON(w, http.StatusOK, map[string]string{"status": h.core.State().String()})
}

func (h *Handler) listPlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"slots":      cognitive.SlotNames(),
		"registered": h.core.Plugins(),
	})
}

func (h *Handler) listGoals(w http.ResponseWriter, r *http.Request) {
	goals := h.core.ActiveGoals()
	if goals == nil {
		goals = []cognitive.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *Handler) setGoals(w http.ResponseWriter, r *http.Request) {
	var goals []cognitive.Goal
	if err := json.NewDecoder(r.Body).Decode(&goals); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.core.SetGoals(goals)
	h.logger.Info("Goals updated", zap.Int("count", len(goals)))
	writeJSON(w, http.StatusOK, map[string]int{"goals": len(goals)})
}

func (h *Handler) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	if h.gw == nil {
		writeJSON(w, http.StatusOK, []gateway.AdapterStatus{})
		return
	}
	writeJSON(w, http.StatusOK, h.gw.Statuses())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

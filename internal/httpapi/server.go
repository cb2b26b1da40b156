// Package httpapi is the HTTP surface named in spec.md §6: the health
// probe, channel lifecycle, the SSE turn endpoints, and runtime status.
// Registration and auth-guard wiring follow the teacher's internal/api
// idiom (route tables bound through a Handler, security.Guard gating
// everything but the liveness probe).
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/events"
	"github.com/personalagent/runtime/internal/idgen"
	"github.com/personalagent/runtime/internal/security"
	"github.com/personalagent/runtime/internal/turns"
)

// defaultSessionTokenCapacity bounds every session created by
// createChannel; there is no per-agent override. SPEC_FULL.md leaves the exact
// figure to the runtime; this matches a typical single-call context
// window for the providers named in spec.md §6.
const defaultSessionTokenCapacity = 200_000

// StatusProvider reports the Dispatch Loop's liveness for /runtime/status.
type StatusProvider interface {
	Running() bool
}

// Handler holds every dependency the HTTP surface needs.
type Handler struct {
	guard    *security.Guard
	channels domain.ChannelStore
	sessions domain.SessionStore
	pipeline *turns.Pipeline
	hub      *events.Hub
	ids      idgen.Generator
	clock    clock.Clock
	status   StatusProvider

	ontologyVersion     string
	architectureVersion string
	branch              string
}

// Config bundles Handler's construction-time dependencies.
type Config struct {
	Guard               *security.Guard
	Channels            domain.ChannelStore
	Sessions            domain.SessionStore
	Pipeline            *turns.Pipeline
	Hub                 *events.Hub
	IDs                 idgen.Generator
	Clock               clock.Clock
	Status              StatusProvider
	OntologyVersion     string
	ArchitectureVersion string
	Branch              string
}

// Register wires every route in spec.md §6's HTTP surface table onto mux.
func Register(mux *http.ServeMux, cfg Config) {
	if cfg.IDs == nil {
		cfg.IDs = idgen.UUIDGenerator{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	h := &Handler{
		guard:               cfg.Guard,
		channels:            cfg.Channels,
		sessions:            cfg.Sessions,
		pipeline:            cfg.Pipeline,
		hub:                 cfg.Hub,
		ids:                 cfg.IDs,
		clock:               cfg.Clock,
		status:              cfg.Status,
		ontologyVersion:     cfg.OntologyVersion,
		architectureVersion: cfg.ArchitectureVersion,
		branch:              cfg.Branch,
	}

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /runtime/status", h.wrap(h.runtimeStatus))
	mux.HandleFunc("POST /channels/{channelId}/create", h.wrap(h.createChannel))
	mux.HandleFunc("POST /channels/{channelId}/messages", h.wrap(h.sendChannelMessage))
	mux.HandleFunc("POST /sessions/{sessionId}/turns", h.wrap(h.submitTurn))
}

// wrap gates a route behind the auth guard, mirroring the teacher's
// Handler.wrap in internal/api/api.go.
func (h *Handler) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.guard.CheckOrigin(r); err != nil {
			writeError(w, http.StatusForbidden, "ORIGIN_DENIED", "request origin is not allowed")
			return
		}
		if err := h.guard.RequireAuth(r); err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token")
			return
		}
		next(w, r)
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) runtimeStatus(w http.ResponseWriter, _ *http.Request) {
	phase := "serving"
	if h.status != nil && !h.status.Running() {
		phase = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":             "personal-agent",
		"phase":               phase,
		"ontologyVersion":     h.ontologyVersion,
		"architectureVersion": h.architectureVersion,
		"branch":              h.branch,
		"liveSubscribers":     h.hub.SubscriberCount(),
	})
}

func logHandlerError(msg string, err error) {
	slog.Default().Error(msg, "error", err)
}

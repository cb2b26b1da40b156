package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/personalagent/runtime/internal/domain"
)

// streamTurnEvents frames every event from ch as an SSE record — "event:
// <type>\ndata: <json>\n\n" per spec.md §6 — flushing after each one so
// the client observes deltas as they arrive rather than buffered.
//
// If the ResponseWriter does not support http.Flusher, a 500
// STREAMING_UNSUPPORTED error is written instead and no event is sent.
func streamTurnEvents(w http.ResponseWriter, r *http.Request, ch <-chan domain.TurnStreamEvent) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			writeSSEFrame(w, event)
			flusher.Flush()
			if event.Type == domain.EventTurnFailed {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSEFrame(w http.ResponseWriter, event domain.TurnStreamEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		logHandlerError("failed to marshal turn stream event", err)
		return
	}
	_, _ = w.Write([]byte("event: " + string(event.Type) + "\n"))
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n\n"))
}

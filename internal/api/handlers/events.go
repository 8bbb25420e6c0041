package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/orrery-labs/orrery/internal/gateway"
	"github.com/orrery-labs/orrery/internal/infra/eventbus"
)

// EventsHandler streams gateway events to clients over Server-Sent Events.
type EventsHandler struct {
	bus eventbus.EventBus
}

func NewEventsHandler(bus eventbus.EventBus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// Stream subscribes to the relay topics and forwards each event as an
// SSE message until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	calls := h.bus.Subscribe(gateway.TopicCallRelayed)
	exits := h.bus.Subscribe(gateway.TopicProcExited)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// announce the stream so clients know the subscription is live
	fmt.Fprintf(w, "event: connected\ndata: {}\n\n") //nolint:errcheck
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case evt := <-calls:
			writeSSE(w, flusher, evt)
		case evt := <-exits:
			writeSSE(w, flusher, evt)
		case <-ctx.Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, evt eventbus.Event) {
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		data = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, data) //nolint:errcheck
	flusher.Flush()
}

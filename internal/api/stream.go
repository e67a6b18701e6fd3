package api

import (
	"fmt"
	"net/http"
	"strings"
)

// handleEventStream streams decision-engine events over Server-Sent
// Events. ?events=a,b filters to specific event types.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Parse event type filters
	eventFilter := r.URL.Query().Get("events")
	var eventTypes []string
	if eventFilter != "" {
		eventTypes = strings.Split(eventFilter, ",")
	}

	ch := s.bus.Subscribe(eventTypes...)
	defer s.bus.Unsubscribe(ch)

	// Send initial connection event
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			sseData, err := event.SSEFormat()
			if err != nil {
				continue
			}
			w.Write(sseData)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

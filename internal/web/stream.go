package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleRunStream serves a Server-Sent Events stream of a run's state.
// Each message is the full folded state as JSON; when the run reaches
// a terminal state a "done" event follows and the stream closes.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request, simulationID string) {
	f, ok := s.hub.get(simulationID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present

	send := func(u any) {
		payload, err := json.Marshal(u)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	latest, updates := f.subscribe()
	defer f.unsubscribe(updates)

	send(latest)
	for {
		select {
		case <-r.Context().Done():
			return
		case u, open := <-updates:
			if !open {
				fmt.Fprintf(w, "event: done\ndata: complete\n\n")
				flusher.Flush()
				return
			}
			send(u)
		}
	}
}

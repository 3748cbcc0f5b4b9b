package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultKeepAlive is the interval between SSE comment pings.
const DefaultKeepAlive = 25 * time.Second

// SSEHandler streams events as server-sent events. Clients may filter
// feeds with ?feeds=chart1,chart2. A non-positive keepAlive disables pings.
func SSEHandler(broker *Broker, keepAlive time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch := broker.Subscribe(ParseFeeds(r.URL.Query().Get("feeds"))...)
		defer broker.Unsubscribe(id)

		var ping <-chan time.Time
		if keepAlive > 0 {
			t := time.NewTicker(keepAlive)
			defer t.Stop()
			ping = t.C
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ping:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case evt, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(evt)
				if err != nil {
					slog.Debug("sse marshal failed", "feed", evt.Feed, "kind", evt.Kind, "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data)
				flusher.Flush()
			}
		}
	}
}

// ParseFeeds splits a comma-separated feed list, dropping blanks.
func ParseFeeds(q string) []string {
	var out []string
	for _, f := range strings.Split(q, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

package stream

import (
	"net/http"

	"go.uber.org/zap"
)

// HTTPHandler serves the raw I/Q stream over chunked HTTP. Each connection
// subscribes to the broadcaster and receives unframed CU8 blocks, the same
// bytes a file sink would get.
type HTTPHandler struct {
	broadcaster *Broadcaster
	log         *zap.Logger
}

// NewHTTPHandler creates an HTTP stream handler.
func NewHTTPHandler(b *Broadcaster, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{broadcaster: b, log: log}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	h.log.Info("stream listener connected",
		zap.String("remote", r.RemoteAddr),
		zap.Int("total", h.broadcaster.ListenerCount()))
	defer h.log.Info("stream listener disconnected",
		zap.String("remote", r.RemoteAddr))

	for {
		select {
		case <-r.Context().Done():
			return
		case <-listener.done:
			return
		case block, ok := <-listener.C:
			if !ok {
				return
			}
			if _, err := w.Write(block); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

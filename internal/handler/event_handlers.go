package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mrsawy/task-management/internal/middleware"
)

// handleEvents streams the authenticated user's task events over SSE.
// The subscription is always scoped to the caller's own channel; there is no
// way to request someone else's.
// @Summary Stream task events
// @Description Server-sent event stream of the authenticated user's task notifications
// @Tags events
// @Produce text/event-stream
// @Success 200
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /events [get]
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Streaming not supported")
		return
	}

	sub, err := h.broadcaster.Subscribe(ctx, user.ID, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Info("event stream opened", "channel", sub.Channel())

	for {
		select {
		case <-ctx.Done():
			slog.Info("event stream closed", "channel", sub.Channel())
			return
		case env, open := <-sub.Events():
			if !open {
				// Broadcaster shut down; the client reconnects and refetches.
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				slog.Error("failed to encode event envelope", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mrsawy/task-management/internal/broadcast"
	"github.com/mrsawy/task-management/internal/handler/dto"
	"github.com/mrsawy/task-management/internal/middleware"
	"github.com/mrsawy/task-management/internal/repository"
	"github.com/mrsawy/task-management/internal/service"
	"github.com/mrsawy/task-management/internal/static"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pinger         Pinger
	taskService    *service.TaskService
	broadcaster    *broadcast.Broadcaster
	authMiddleware *middleware.AuthMiddleware
}

// New creates a new Handler instance with all dependencies wired against the
// given connection pool. Day boundaries are evaluated in loc.
func New(pool *pgxpool.Pool, loc *time.Location) *Handler {
	// Create repositories
	taskRepo := repository.NewTaskRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Create broadcaster and services
	broadcaster := broadcast.New(broadcast.SameRecipient())
	resolver := service.NewStatusResolver(loc)
	taskService := service.NewTaskService(taskRepo, userRepo, broadcaster, resolver)

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	return &Handler{
		pinger:         pool,
		taskService:    taskService,
		broadcaster:    broadcaster,
		authMiddleware: authMiddleware,
	}
}

// NewWithDeps creates a Handler from pre-built dependencies (used for testing).
func NewWithDeps(pinger Pinger, taskService *service.TaskService, broadcaster *broadcast.Broadcaster, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		pinger:         pinger,
		taskService:    taskService,
		broadcaster:    broadcaster,
		authMiddleware: authMiddleware,
	}
}

// Broadcaster exposes the event fan-out for lifecycle management.
func (h *Handler) Broadcaster() *broadcast.Broadcaster {
	return h.broadcaster
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// Live-updates debug page
	mux.HandleFunc("GET /{$}", h.handleIndex)

	// API v1 routes with authentication
	mux.Handle("GET /api/v1/tasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleListAssigned)))
	mux.Handle("POST /api/v1/tasks", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleCreateTask)))
	mux.Handle("GET /api/v1/tasks/created", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleListCreated)))
	mux.Handle("GET /api/v1/tasks/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleGetTask)))
	mux.Handle("PUT /api/v1/tasks/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleUpdateTask)))
	mux.Handle("DELETE /api/v1/tasks/{id}", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleDeleteTask)))
	mux.Handle("PUT /api/v1/tasks/{id}/assign", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleReassignTask)))
	mux.Handle("PUT /api/v1/tasks/{id}/complete", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleToggleComplete)))
	mux.Handle("GET /api/v1/events", h.authMiddleware.Authenticate(http.HandlerFunc(h.handleEvents)))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pinger.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleIndex serves the embedded live-updates page.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(static.IndexHTML))
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps a domain error onto the wire and writes it.
func respondDomainError(w http.ResponseWriter, err error) {
	status, body := dto.MapDomainError(err)
	respondJSON(w, status, body)
}

// extractTaskID extracts and validates task ID from path parameter.
// Returns (taskID, true) if valid, ("", false) if invalid (error already sent to client).
func extractTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := r.PathValue("id")
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id is required")
		return "", false
	}

	if _, err := uuid.Parse(taskID); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id must be a valid UUID")
		return "", false
	}

	return taskID, true
}

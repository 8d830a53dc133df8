package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mrsawy/task-management/internal/domain"
	"github.com/mrsawy/task-management/internal/handler/dto"
	"github.com/mrsawy/task-management/internal/middleware"
	"github.com/mrsawy/task-management/internal/service"
)

// handleCreateTask creates a new task assigned by email.
// @Summary Create a new task
// @Description Creates a task and notifies the assignee, resolved by email.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.CreateTaskRequest true "Task creation request"
// @Success 201 {object} dto.TaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	var dueDate time.Time
	if req.DueDate != "" {
		dueDate, err = h.parseDueDate(req.DueDate)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "due_date must be an RFC 3339 timestamp or a YYYY-MM-DD date")
			return
		}
	}

	task, err := h.taskService.Create(ctx, user.ID, service.CreateTaskParams{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       dueDate,
		Priority:      domain.TaskPriority(req.Priority),
		AssigneeEmail: req.AssigneeEmail,
		Meta:          req.Meta,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToTaskResponse(task, h.taskService.Status(task)))
}

// handleGetTask returns a single task with its derived status.
// @Summary Get task details
// @Description Get a task readable by the authenticated user
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(ctx, user.ID, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task, h.taskService.Status(task)))
}

// handleUpdateTask applies a partial content edit.
// @Summary Update a task
// @Description Partially updates a task. Only the assignee may update. Absent fields are left unchanged.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.UpdateTaskRequest true "Task update request"
// @Success 200 {object} dto.TaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	params := service.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
		Meta:        req.Meta,
	}
	if req.DueDate != nil {
		dueDate, err := h.parseDueDate(*req.DueDate)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "due_date must be an RFC 3339 timestamp or a YYYY-MM-DD date")
			return
		}
		params.DueDate = &dueDate
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		params.Priority = &priority
	}

	task, err := h.taskService.Update(ctx, user.ID, taskID, params)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task, h.taskService.Status(task)))
}

// handleDeleteTask removes a task permanently.
// @Summary Delete a task
// @Description Deletes a task. Creator or assignee may delete.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(ctx, user.ID, taskID); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Task deleted"})
}

// handleReassignTask hands the task to a new assignee.
// @Summary Reassign a task
// @Description Reassigns the task to a new user, resolved by email. Only the creator may reassign.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.ReassignTaskRequest true "Reassignment request"
// @Success 200 {object} dto.TaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/assign [put]
func (h *Handler) handleReassignTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.ReassignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.taskService.Reassign(ctx, user.ID, taskID, req.AssigneeEmail)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task, h.taskService.Status(task)))
}

// handleToggleComplete flips the completion flag.
// @Summary Toggle task completion
// @Description Atomically flips the completion flag. Only the assignee may toggle.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/complete [put]
func (h *Handler) handleToggleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.ToggleComplete(ctx, user.ID, taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task, h.taskService.Status(task)))
}

// handleListAssigned returns tasks assigned to the authenticated user.
// @Summary List assigned tasks
// @Description Get the tasks assigned to the authenticated user with optional filters
// @Tags tasks
// @Produce json
// @Param status query string false "Filter by completion: completed or pending"
// @Param priority query string false "Filter by priority: low, medium or high"
// @Param sort_by query string false "Sort field: due_date, priority, created_at or title"
// @Param sort_order query string false "Sort direction: asc or desc"
// @Success 200 {object} dto.TasksListResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *Handler) handleListAssigned(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, service.RoleAssignee)
}

// handleListCreated returns tasks created by the authenticated user.
// @Summary List created tasks
// @Description Get the tasks created by the authenticated user with optional filters
// @Tags tasks
// @Produce json
// @Param status query string false "Filter by completion: completed or pending"
// @Param priority query string false "Filter by priority: low, medium or high"
// @Param sort_by query string false "Sort field: due_date, priority, created_at or title"
// @Param sort_order query string false "Sort direction: asc or desc"
// @Success 200 {object} dto.TasksListResponse
// @Security BearerAuth
// @Router /tasks/created [get]
func (h *Handler) handleListCreated(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, service.RoleCreator)
}

// handleList is the shared listing path for both relationship roles.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, role service.ListRole) {
	ctx := r.Context()

	user, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return
	}

	tasks, err := h.taskService.List(ctx, user.ID, role, parseListFilters(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	response := dto.TasksListResponse{
		Tasks: make([]dto.TaskResponse, len(tasks)),
		Total: len(tasks),
	}
	for i, task := range tasks {
		response.Tasks[i] = dto.ToTaskResponse(task, h.taskService.Status(task))
	}

	respondJSON(w, http.StatusOK, response)
}

// parseListFilters reads the lenient listing filters from query parameters.
// Unrecognized values are ignored rather than rejected.
func parseListFilters(r *http.Request) service.ListFilters {
	query := r.URL.Query()

	filters := service.ListFilters{
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}

	switch query.Get("status") {
	case "completed":
		completed := true
		filters.Completed = &completed
	case "pending":
		completed := false
		filters.Completed = &completed
	}

	if priority := domain.TaskPriority(query.Get("priority")); priority.IsValid() {
		filters.Priority = &priority
	}

	return filters
}

// parseDueDate accepts an RFC 3339 timestamp or a plain date. Plain dates are
// anchored to midnight in the service timezone so day-boundary status checks
// agree with what the caller meant.
func (h *Handler) parseDueDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, h.taskService.Location())
}

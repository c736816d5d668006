// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jamesstopford/big-dilly/internal/auth"
)

const maxRequestBodyBytes = 1 << 20

// HTTPHandlers provides HTTP handlers for the todo, template, tracker and account API
type HTTPHandlers struct {
	service *AppService
	auth    *SessionAuth
	logger  *slog.Logger
}

// NewHTTPHandlers creates a new instance of API handlers
func NewHTTPHandlers(service *AppService, sessionAuth *SessionAuth, logger *slog.Logger) *HTTPHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandlers{
		service: service,
		auth:    sessionAuth,
		logger:  logger,
	}
}

// Register mounts every API route on mux
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	protected := func(fn http.HandlerFunc) http.Handler {
		return h.auth.Middleware(fn)
	}

	mux.HandleFunc("GET /api/health", h.HandleHealth)

	mux.HandleFunc("POST /api/auth/register", h.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", h.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.HandleLogout)
	mux.Handle("GET /api/auth/me", protected(h.HandleMe))
	mux.HandleFunc("POST /api/auth/forgot-password", h.HandleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.HandleResetPassword)

	mux.Handle("PUT /api/user/theme", protected(h.HandleUpdateTheme))
	mux.Handle("GET /api/user/profile", protected(h.HandleProfile))

	mux.Handle("GET /api/todos", protected(h.HandleListTodos))
	mux.Handle("POST /api/todos", protected(h.HandleCreateTodo))
	mux.Handle("PUT /api/todos/reorder", protected(h.HandleReorderTodos))
	mux.Handle("PUT /api/todos/{id}", protected(h.HandleUpdateTodo))
	mux.Handle("DELETE /api/todos/{id}", protected(h.HandleDeleteTodo))

	mux.Handle("GET /api/template", protected(h.HandleGetTemplate))
	mux.Handle("POST /api/template/save", protected(h.HandleSaveTemplate))
	mux.Handle("POST /api/template/reset", protected(h.HandleResetTemplate))

	mux.Handle("GET /api/trackers", protected(h.HandleListTrackers))
	mux.Handle("POST /api/trackers", protected(h.HandleCreateTracker))
	mux.Handle("PUT /api/trackers/{id}", protected(h.HandleUpdateTracker))
	mux.Handle("DELETE /api/trackers/{id}", protected(h.HandleDeleteTracker))
	mux.Handle("POST /api/trackers/{id}/reset", protected(h.HandleResetTracker))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "Not found")
	})
}

// HandleHealth is the liveness probe
func (h *HTTPHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "Service unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// ---- accounts ----

func (h *HTTPHandlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create account")
		return
	}
	if err := h.auth.StartSession(r.Context(), w, user.ID); err != nil {
		h.writeServiceError(w, err, "Failed to create account")
		return
	}
	h.writeJSON(w, http.StatusCreated, AuthResponse{Message: "Account created successfully", User: user.Public()})
}

func (h *HTTPHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to log in")
		return
	}
	if err := h.auth.StartSession(r.Context(), w, user.ID); err != nil {
		h.writeServiceError(w, err, "Failed to log in")
		return
	}
	h.writeJSON(w, http.StatusOK, AuthResponse{Message: "Logged in successfully", User: user.Public()})
}

func (h *HTTPHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.EndSession(r.Context(), w, r)
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *HTTPHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	h.writeJSON(w, http.StatusOK, UserResponse{User: User{ID: identity.UserID, Email: identity.Email, Theme: identity.Theme}})
}

func (h *HTTPHandlers) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, err, "Failed to process request")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandlers) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		h.writeServiceError(w, err, "Failed to reset password")
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully. Please log in with your new password."})
}

func (h *HTTPHandlers) HandleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	var req ThemeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateTheme(r.Context(), userID, req.Theme); err != nil {
		h.writeServiceError(w, err, "Failed to update theme")
		return
	}
	h.writeJSON(w, http.StatusOK, ThemeResponse{Message: "Theme updated successfully", Theme: req.Theme})
}

func (h *HTTPHandlers) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get profile")
		return
	}
	h.writeJSON(w, http.StatusOK, UserResponse{User: *user})
}

// ---- todos ----

func (h *HTTPHandlers) HandleListTodos(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	todos, err := h.service.ListTodos(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to fetch todos")
		return
	}
	h.writeJSON(w, http.StatusOK, TodoListResponse{Todos: nonNil(todos)})
}

func (h *HTTPHandlers) HandleCreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	var req CreateTodoRequest
	if !h.decode(w, r, &req) {
		return
	}
	todo, err := h.service.CreateTodo(r.Context(), userID, req.Text)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create todo")
		return
	}
	h.writeJSON(w, http.StatusCreated, TodoResponse{Todo: *todo})
}

func (h *HTTPHandlers) HandleReorderTodos(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	var req ReorderTodosRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ReorderTodos(r.Context(), userID, req.TodoIDs); err != nil {
		h.writeServiceError(w, err, "Failed to reorder todos")
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Todos reordered successfully"})
}

func (h *HTTPHandlers) HandleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	todoID, ok := h.pathID(w, r, "Invalid todo ID")
	if !ok {
		return
	}
	var req UpdateTodoRequest
	if !h.decode(w, r, &req) {
		return
	}
	todo, err := h.service.UpdateTodo(r.Context(), userID, todoID, req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update todo")
		return
	}
	h.writeJSON(w, http.StatusOK, TodoResponse{Todo: *todo})
}

func (h *HTTPHandlers) HandleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	todoID, ok := h.pathID(w, r, "Invalid todo ID")
	if !ok {
		return
	}
	if err := h.service.DeleteTodo(r.Context(), userID, todoID); err != nil {
		h.writeServiceError(w, err, "Failed to delete todo")
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Todo deleted successfully"})
}

// ---- template ----

func (h *HTTPHandlers) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	items, err := h.service.GetTemplate(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to fetch template")
		return
	}
	h.writeJSON(w, http.StatusOK, TemplateResponse{Items: nonNil(items)})
}

func (h *HTTPHandlers) HandleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	items, err := h.service.SaveTemplate(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to save template")
		return
	}
	h.writeJSON(w, http.StatusOK, SaveTemplateResponse{
		Message: "Template saved successfully",
		Items:   nonNil(items),
		Count:   len(items),
	})
}

func (h *HTTPHandlers) HandleResetTemplate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	todos, err := h.service.ResetToTemplate(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to reset to template")
		return
	}
	h.writeJSON(w, http.StatusOK, ResetTemplateResponse{Message: "Todos reset to template successfully", Todos: nonNil(todos)})
}

// ---- trackers ----

func (h *HTTPHandlers) HandleListTrackers(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	trackers, err := h.service.ListTrackers(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to fetch trackers")
		return
	}
	h.writeJSON(w, http.StatusOK, TrackerListResponse{Trackers: nonNil(trackers)})
}

func (h *HTTPHandlers) HandleCreateTracker(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	var req CreateTrackerRequest
	if !h.decode(w, r, &req) {
		return
	}
	tracker, err := h.service.CreateTracker(r.Context(), userID, req.Name, req.Icon)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create tracker")
		return
	}
	h.writeJSON(w, http.StatusCreated, TrackerResponse{Tracker: *tracker})
}

func (h *HTTPHandlers) HandleUpdateTracker(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	trackerID, ok := h.pathID(w, r, "Invalid tracker ID")
	if !ok {
		return
	}
	var req UpdateTrackerRequest
	if !h.decode(w, r, &req) {
		return
	}
	tracker, err := h.service.UpdateTracker(r.Context(), userID, trackerID, req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update tracker")
		return
	}
	h.writeJSON(w, http.StatusOK, TrackerResponse{Tracker: *tracker})
}

func (h *HTTPHandlers) HandleDeleteTracker(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	trackerID, ok := h.pathID(w, r, "Invalid tracker ID")
	if !ok {
		return
	}
	if err := h.service.DeleteTracker(r.Context(), userID, trackerID); err != nil {
		h.writeServiceError(w, err, "Failed to delete tracker")
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: "Tracker deleted successfully"})
}

func (h *HTTPHandlers) HandleResetTracker(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	trackerID, ok := h.pathID(w, r, "Invalid tracker ID")
	if !ok {
		return
	}
	tracker, err := h.service.ResetTracker(r.Context(), userID, trackerID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to reset tracker")
		return
	}
	h.writeJSON(w, http.StatusOK, TrackerResponse{Tracker: *tracker})
}

// ---- helpers ----

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (h *HTTPHandlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *HTTPHandlers) pathID(w http.ResponseWriter, r *http.Request, message string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}

func (h *HTTPHandlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// writeServiceError renders HTTPError values as-is and hides everything else behind fallback
func (h *HTTPHandlers) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		h.writeError(w, httpErr.Status, httpErr.Message)
		return
	}
	h.logger.Error(fallback, "error", err)
	h.writeError(w, http.StatusInternalServerError, fallback)
}

// writeError writes a standardized error response
func (h *HTTPHandlers) writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSONError(w, h.logger, statusCode, message)
}

func writeJSONError(w http.ResponseWriter, logger *slog.Logger, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}

	logger.Debug("HTTP error response",
		"status_code", statusCode,
		"message", message)
}

// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jamesstopford/big-dilly/dillyapi"
)

// Typed endpoint wrappers. Calls with side effects that must not be repeated
// (register, login, logout, password reset) are sent without retries.

const (
	noRetry   = false
	withRetry = true
)

// ---- auth ----

func (c *Client) Register(ctx context.Context, email, password string) (*dillyapi.User, error) {
	var resp dillyapi.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", dillyapi.CredentialsRequest{Email: email, Password: password}, &resp, noRetry); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*dillyapi.User, error) {
	var resp dillyapi.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", dillyapi.CredentialsRequest{Email: email, Password: password}, &resp, noRetry); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, nil, noRetry)
}

func (c *Client) Me(ctx context.Context) (*dillyapi.User, error) {
	var resp dillyapi.UserResponse
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*dillyapi.ForgotPasswordResponse, error) {
	var resp dillyapi.ForgotPasswordResponse
	if err := c.call(ctx, http.MethodPost, "/auth/forgot-password", dillyapi.ForgotPasswordRequest{Email: email}, &resp, noRetry); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.call(ctx, http.MethodPost, "/auth/reset-password", dillyapi.ResetPasswordRequest{Token: token, Password: password}, nil, noRetry)
}

// ---- user ----

func (c *Client) UpdateTheme(ctx context.Context, theme string) error {
	return c.call(ctx, http.MethodPut, "/user/theme", dillyapi.ThemeRequest{Theme: theme}, nil, withRetry)
}

func (c *Client) Profile(ctx context.Context) (*dillyapi.User, error) {
	var resp dillyapi.UserResponse
	if err := c.call(ctx, http.MethodGet, "/user/profile", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ---- todos ----

func (c *Client) ListTodos(ctx context.Context) ([]dillyapi.Todo, error) {
	var resp dillyapi.TodoListResponse
	if err := c.call(ctx, http.MethodGet, "/todos", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return resp.Todos, nil
}

func (c *Client) CreateTodo(ctx context.Context, text string) (*dillyapi.Todo, error) {
	var resp dillyapi.TodoResponse
	if err := c.call(ctx, http.MethodPost, "/todos", dillyapi.CreateTodoRequest{Text: text}, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp.Todo, nil
}

func (c *Client) UpdateTodo(ctx context.Context, id int64, patch dillyapi.UpdateTodoRequest) (*dillyapi.Todo, error) {
	var resp dillyapi.TodoResponse
	if err := c.call(ctx, http.MethodPut, "/todos/"+strconv.FormatInt(id, 10), patch, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp.Todo, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "/todos/"+strconv.FormatInt(id, 10), nil, nil, withRetry)
}

func (c *Client) ReorderTodos(ctx context.Context, ids []int64) error {
	return c.call(ctx, http.MethodPut, "/todos/reorder", dillyapi.ReorderTodosRequest{TodoIDs: ids}, nil, withRetry)
}

// ---- template ----

func (c *Client) GetTemplate(ctx context.Context) ([]dillyapi.TemplateItem, error) {
	var resp dillyapi.TemplateResponse
	if err := c.call(ctx, http.MethodGet, "/template", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) SaveTemplate(ctx context.Context) ([]dillyapi.TemplateItem, error) {
	var resp dillyapi.SaveTemplateResponse
	if err := c.call(ctx, http.MethodPost, "/template/save", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) ResetTemplate(ctx context.Context) ([]dillyapi.Todo, error) {
	var resp dillyapi.ResetTemplateResponse
	if err := c.call(ctx, http.MethodPost, "/template/reset", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return resp.Todos, nil
}

// ---- trackers ----

func (c *Client) ListTrackers(ctx context.Context) ([]dillyapi.Tracker, error) {
	var resp dillyapi.TrackerListResponse
	if err := c.call(ctx, http.MethodGet, "/trackers", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return resp.Trackers, nil
}

func (c *Client) CreateTracker(ctx context.Context, name, icon string) (*dillyapi.Tracker, error) {
	var resp dillyapi.TrackerResponse
	if err := c.call(ctx, http.MethodPost, "/trackers", dillyapi.CreateTrackerRequest{Name: name, Icon: icon}, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp.Tracker, nil
}

func (c *Client) UpdateTracker(ctx context.Context, id int64, patch dillyapi.UpdateTrackerRequest) (*dillyapi.Tracker, error) {
	var resp dillyapi.TrackerResponse
	if err := c.call(ctx, http.MethodPut, "/trackers/"+strconv.FormatInt(id, 10), patch, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp.Tracker, nil
}

func (c *Client) DeleteTracker(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "/trackers/"+strconv.FormatInt(id, 10), nil, nil, withRetry)
}

func (c *Client) ResetTracker(ctx context.Context, id int64) (*dillyapi.Tracker, error) {
	var resp dillyapi.TrackerResponse
	if err := c.call(ctx, http.MethodPost, "/trackers/"+strconv.FormatInt(id, 10)+"/reset", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp.Tracker, nil
}

// ---- health ----

func (c *Client) Health(ctx context.Context) (*dillyapi.HealthResponse, error) {
	var resp dillyapi.HealthResponse
	if err := c.call(ctx, http.MethodGet, "/health", nil, &resp, withRetry); err != nil {
		return nil, err
	}
	return &resp, nil
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/idilsaglam/neontodo/internal/model"
)

// Login exchanges credentials for a session. Blank credentials never leave
// the process.
func (c *Client) Login(ctx context.Context, email, password string) (model.Session, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return model.Session{}, ErrMissingCredentials
	}
	var s model.Session
	err := c.do(ctx, http.MethodPost, "/auth", map[string]string{"email": email, "password": password}, &s)
	if err != nil {
		return model.Session{}, err
	}
	if s.Token == "" {
		return model.Session{}, &StatusError{Method: http.MethodPost, Path: "/auth", Status: http.StatusBadGateway, Detail: "login response carried no token"}
	}
	return s, nil
}

// ListTodos fetches the caller's tasks.
func (c *Client) ListTodos(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/todos", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTodo creates a task. New tasks are always sent as not completed.
func (c *Client) CreateTodo(ctx context.Context, d model.Draft) (model.Task, error) {
	d.Completed = false
	var t model.Task
	if err := c.do(ctx, http.MethodPost, "/todos", d, &t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// UpdateTodo sends the fields set in p and returns the server's record.
func (c *Client) UpdateTodo(ctx context.Context, id string, p model.Patch) (model.Task, error) {
	var t model.Task
	if err := c.do(ctx, http.MethodPut, todoPath(id), p, &t); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// DeleteTodo asks the server to soft-delete a task.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil)
}

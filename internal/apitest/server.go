// Package apitest runs an in-memory stand-in for the to-do backend on an
// httptest server. It mints HS256 tokens for any non-empty credentials,
// scopes tasks per user, soft-deletes, understands a few chat phrases, and
// lets tests inject failures.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/idilsaglam/neontodo/internal/model"
)

const secret = "apitest-shared-secret-at-least-32-chars"

type storedTask struct {
	model.Task
	owner string
}

type storedChat struct {
	model.ChatRecord
	owner string
}

type failure struct {
	method string
	prefix string
	status int
	detail string
}

// Server is a fake backend. Zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tasks    []*storedTask // newest first
	chats    []storedChat
	failures []failure
	calls    map[string]int
	revoked  bool

	// Now stamps created_at/updated_at. Tests may replace it before use.
	Now func() time.Time
}

// New starts a fake backend. Callers must Close it.
func New() *Server {
	s := &Server{calls: map[string]int{}, Now: time.Now}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", s.login)
	mux.HandleFunc("GET /todos", s.authed(s.listTodos))
	mux.HandleFunc("POST /todos", s.authed(s.createTodo))
	mux.HandleFunc("PUT /todos/{id}", s.authed(s.updateTodo))
	mux.HandleFunc("DELETE /todos/{id}", s.authed(s.deleteTodo))
	mux.HandleFunc("POST /chatbot/process", s.authed(s.processChat))
	mux.HandleFunc("GET /chatbot/history", s.authed(s.chatHistory))
	s.Server = httptest.NewServer(s.intercept(mux))
	return s
}

// Token mints a valid token for email without going through /auth.
func (s *Server) Token(email string) string {
	tok, err := mint(email, time.Now())
	if err != nil {
		panic(err)
	}
	return tok
}

// Seed stores tasks for owner. Missing IDs and created_at are filled in.
// The returned copies are what the server now holds.
func (s *Server) Seed(owner string, tasks ...model.Task) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt == nil {
			now := s.Now().UTC()
			t.CreatedAt = &now
		}
		s.tasks = append([]*storedTask{{Task: t.Clone(), owner: owner}}, s.tasks...)
		out = append(out, t.Clone())
	}
	return out
}

// Task returns the server's copy of a task.
func (s *Server) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.tasks {
		if st.ID == id {
			return st.Task.Clone(), true
		}
	}
	return model.Task{}, false
}

// FailNext makes the next request whose method matches and whose path
// starts with prefix answer status with detail. Failures queue in order.
func (s *Server) FailNext(method, prefix string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status, detail: detail})
}

// Revoke makes every authenticated endpoint answer 401 from now on.
func (s *Server) Revoke() {
	s.mu.Lock()
	s.revoked = true
	s.mu.Unlock()
}

// Calls counts requests seen for "METHOD /path".
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// TotalCalls counts every request seen.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		for i, f := range s.failures {
			if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				s.mu.Unlock()
				writeJSON(w, f.status, map[string]string{"detail": f.detail})
				return
			}
		}
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		revoked := s.revoked
		s.mu.Unlock()
		user, err := verify(r.Header.Get("Authorization"))
		if revoked || err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		h(w, r, user)
	}
}

// ---------------------------------------------------
// auth
// ---------------------------------------------------

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || strings.TrimSpace(body.Password) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	tok, err := mint(email, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, model.Session{Token: tok, User: model.User{Email: email, ID: email}})
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func mint(email string, now time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	})
	return t.SignedString([]byte(secret))
}

func verify(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("missing bearer token")
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// ---------------------------------------------------
// todos
// ---------------------------------------------------

func (s *Server) listTodos(w http.ResponseWriter, _ *http.Request, user string) {
	s.mu.Lock()
	out := []model.Task{}
	for _, st := range s.tasks {
		if st.owner == user {
			out = append(out, st.Task.Clone())
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request, user string) {
	var d model.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || strings.TrimSpace(d.Title) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "title is required"})
		return
	}
	t := s.insert(user, d.Title, d.Description, d.Completed)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) insert(user, title, desc string, completed bool) model.Task {
	now := s.Now().UTC()
	t := model.Task{ID: uuid.NewString(), Title: title, Description: desc, Completed: completed, CreatedAt: &now}
	s.mu.Lock()
	s.tasks = append([]*storedTask{{Task: t.Clone(), owner: user}}, s.tasks...)
	s.mu.Unlock()
	return t
}

func (s *Server) find(user, id string) *storedTask {
	for _, st := range s.tasks {
		if st.ID == id && st.owner == user {
			return st
		}
	}
	return nil
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request, user string) {
	var p model.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.find(user, r.PathValue("id"))
	if st == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Todo not found"})
		return
	}
	if p.Title != nil {
		st.Title = *p.Title
	}
	if p.Description != nil {
		st.Description = *p.Description
	}
	if p.Completed != nil {
		st.Completed = *p.Completed
	}
	now := s.Now().UTC()
	st.UpdatedAt = &now
	writeJSON(w, http.StatusOK, st.Task.Clone())
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.find(user, r.PathValue("id"))
	if st == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Todo not found"})
		return
	}
	st.IsDeleted = true
	writeJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted"})
}

// ---------------------------------------------------
// chat
// ---------------------------------------------------

var (
	createRe = regexp.MustCompile(`(?i)^\s*(?:add|create)(?: a)?(?: task| todo)?(?: to)?\s+(.+)$`)
	updateRe = regexp.MustCompile(`(?i)^\s*(?:complete|finish|mark)\s+(.+?)(?:\s+as\s+(?:done|complete))?\s*$`)
	deleteRe = regexp.MustCompile(`(?i)^\s*(?:delete|remove)\s+(.+)$`)
)

func (s *Server) processChat(w http.ResponseWriter, r *http.Request, user string) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	msg := body.Message
	resp := map[string]any{"success": true}
	var intent string
	switch {
	case createRe.MatchString(msg):
		title := strings.TrimSpace(createRe.FindStringSubmatch(msg)[1])
		t := s.insert(user, title, "", false)
		intent = string(model.IntentCreate)
		resp["response"] = fmt.Sprintf("I've added '%s' to your list.", title)
		resp["action_result"] = withOwner(t, user)
	case updateRe.MatchString(msg):
		intent = string(model.IntentUpdate)
		title := updateRe.FindStringSubmatch(msg)[1]
		if t, ok := s.mutateByTitle(user, title, func(st *storedTask) { st.Completed = true }); ok {
			resp["response"] = fmt.Sprintf("Marked '%s' as complete.", t.Title)
			resp["action_result"] = withOwner(t, user)
		} else {
			resp["response"] = fmt.Sprintf("I couldn't find a task named '%s' to update.", title)
		}
	case deleteRe.MatchString(msg):
		intent = string(model.IntentDelete)
		title := deleteRe.FindStringSubmatch(msg)[1]
		if t, ok := s.mutateByTitle(user, title, func(st *storedTask) { st.IsDeleted = true }); ok {
			resp["response"] = fmt.Sprintf("Moved '%s' to the trash.", t.Title)
			resp["action_result"] = withOwner(t, user)
		} else {
			resp["response"] = fmt.Sprintf("I couldn't find a task named '%s' to delete.", title)
		}
	default:
		intent = "QUERY"
		resp["response"] = fmt.Sprintf("You have %d active tasks.", s.activeCount(user))
	}
	resp["intent"] = intent

	now := s.Now().UTC()
	s.mu.Lock()
	s.chats = append(s.chats, storedChat{
		ChatRecord: model.ChatRecord{ID: uuid.NewString(), Message: msg, Response: resp["response"].(string), Intent: model.Intent(intent), CreatedAt: &now},
		owner:      user,
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) mutateByTitle(user, title string, fn func(*storedTask)) (model.Task, bool) {
	needle := strings.ToLower(strings.TrimSpace(title))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.tasks {
		if st.owner == user && !st.IsDeleted && strings.Contains(strings.ToLower(st.Title), needle) {
			fn(st)
			now := s.Now().UTC()
			st.UpdatedAt = &now
			return st.Task.Clone(), true
		}
	}
	return model.Task{}, false
}

func (s *Server) activeCount(user string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.tasks {
		if st.owner == user && !st.Completed && !st.IsDeleted {
			n++
		}
	}
	return n
}

// chatHistory answers newest first, like the backend.
func (s *Server) chatHistory(w http.ResponseWriter, _ *http.Request, user string) {
	s.mu.Lock()
	msgs := []map[string]any{}
	for i := len(s.chats) - 1; i >= 0; i-- {
		c := s.chats[i]
		if c.owner != user {
			continue
		}
		msgs = append(msgs, map[string]any{
			"id":         c.ID,
			"user_id":    user,
			"message":    c.Message,
			"intent":     c.Intent,
			"response":   c.Response,
			"created_at": c.CreatedAt.Format("2006-01-02T15:04:05.000000"),
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// withOwner mimics the backend, whose action_result dictionaries carry user_id.
func withOwner(t model.Task, user string) map[string]any {
	b, _ := json.Marshal(t)
	m := map[string]any{}
	_ = json.Unmarshal(b, &m)
	m["user_id"] = user
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

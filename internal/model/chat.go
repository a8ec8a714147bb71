package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Intent classifies which CRUD effect a chat command already caused server-side.
type Intent string

const (
	IntentCreate Intent = "CREATE"
	IntentUpdate Intent = "UPDATE"
	IntentDelete Intent = "DELETE"
)

// Mutates reports whether the intent carries a task side effect.
func (i Intent) Mutates() bool {
	switch Intent(strings.ToUpper(string(i))) {
	case IntentCreate, IntentUpdate, IntentDelete:
		return true
	}
	return false
}

// Normalize upper-cases the intent the way the API spells it.
func (i Intent) Normalize() Intent { return Intent(strings.ToUpper(strings.TrimSpace(string(i)))) }

// ChatReply is the chat API's answer to one command.
type ChatReply struct {
	Success      bool   `json:"success"`
	Response     string `json:"response"`
	Intent       Intent `json:"intent,omitempty"`
	ActionResult *Task  `json:"action_result,omitempty"`
}

// ChatRecord is one stored exchange from the chat history.
type ChatRecord struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Response  string     `json:"response"`
	Intent    Intent     `json:"intent,omitempty"`
	CreatedAt *time.Time `json:"-"`
}

// UnmarshalJSON reads created_at with the same leniency as Task.
func (r *ChatRecord) UnmarshalJSON(b []byte) error {
	type alias ChatRecord
	aux := struct {
		*alias
		CreatedAt *string `json:"created_at"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	ts, err := parseOptionalTime(aux.CreatedAt)
	if err != nil {
		return err
	}
	r.CreatedAt = ts
	return nil
}

// User identifies the signed-in account.
type User struct {
	Email string `json:"email"`
	ID    string `json:"id"`
}

// Session is what a successful login yields.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/idilsaglam/neontodo/internal/model"
)

// taskSchema describes an action_result record. The chat endpoint builds
// those from loosely typed dictionaries, so they are checked before they
// reach the task cache. Extra keys such as user_id are allowed.
const taskSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title"],
  "properties": {
    "id":          {"type": "string", "minLength": 1},
    "title":       {"type": "string", "minLength": 1},
    "description": {"type": ["string", "null"]},
    "completed":   {"type": "boolean"},
    "is_deleted":  {"type": "boolean"},
    "created_at":  {"type": ["string", "null"]},
    "updated_at":  {"type": ["string", "null"]}
  }
}`

var compiledTaskSchema = jsonschema.MustCompileString("task.schema.json", taskSchema)

// ValidateTask checks a raw JSON record against the task schema.
func ValidateTask(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("parse action_result: %w", err)
	}
	if err := compiledTaskSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid action_result: %w", err)
	}
	return nil
}

type chatReplyWire struct {
	Success      bool            `json:"success"`
	Response     string          `json:"response"`
	Intent       *string         `json:"intent"`
	ActionResult json.RawMessage `json:"action_result"`
}

// ProcessChat sends one free-text command. The backend performs any task
// mutation itself; the returned ActionResult is the record it touched.
// A malformed action_result is dropped (and logged) rather than failing
// the whole reply.
func (c *Client) ProcessChat(ctx context.Context, message string) (model.ChatReply, error) {
	var wire chatReplyWire
	if err := c.do(ctx, http.MethodPost, "/chatbot/process", map[string]string{"message": message}, &wire); err != nil {
		return model.ChatReply{}, err
	}
	reply := model.ChatReply{Success: wire.Success, Response: wire.Response}
	if wire.Intent != nil {
		reply.Intent = model.Intent(*wire.Intent).Normalize()
	}
	raw := bytes.TrimSpace(wire.ActionResult)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return reply, nil
	}
	if err := ValidateTask(raw); err != nil {
		c.logger.Warn("dropping chat action result", "intent", reply.Intent, "err", err)
		return reply, nil
	}
	var t model.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		c.logger.Warn("dropping chat action result", "intent", reply.Intent, "err", err)
		return reply, nil
	}
	reply.ActionResult = &t
	return reply, nil
}

// ChatHistory returns stored exchanges in server order, newest first.
func (c *Client) ChatHistory(ctx context.Context) ([]model.ChatRecord, error) {
	var body struct {
		Messages []model.ChatRecord `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chatbot/history", nil, &body); err != nil {
		return nil, err
	}
	return body.Messages, nil
}

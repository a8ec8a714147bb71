// Package chat relays natural-language commands to the assistant endpoint
// and keeps the conversation transcript.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/idilsaglam/neontodo/internal/api"
	"github.com/idilsaglam/neontodo/internal/logging"
	"github.com/idilsaglam/neontodo/internal/model"
)

// Welcome is the first entry of every transcript.
const Welcome = "Hello! I'm your AI Todo Assistant. I can help you manage your tasks. " +
	"Try asking 'Add a task to buy milk' or 'Show my tasks'."

const (
	welcomeID    = "welcome-msg"
	emptyReply   = "I processed your request successfully."
	offlineReply = "Sorry, I'm having trouble connecting to the AI service. Is the backend running?"
)

var (
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrBusy         = errors.New("a command is already in flight")
	ErrSignedOut    = errors.New("not signed in")
	ErrSettled      = errors.New("command already settled")
)

// Sender is who wrote an entry.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Entry is one line of the transcript.
type Entry struct {
	ID     string
	Sender Sender
	Text   string
	At     time.Time
}

// API is the chat half of the backend.
type API interface {
	ProcessChat(ctx context.Context, message string) (model.ChatReply, error)
	ChatHistory(ctx context.Context) ([]model.ChatRecord, error)
}

// Applier folds server-side task changes into the local list.
type Applier interface {
	ApplyRemote(intent model.Intent, t model.Task) bool
}

type Session interface {
	Authenticated() bool
	Teardown() error
	OnTeardown(fn func())
}

type Notifier interface {
	Success(text string)
}

// Relay owns the transcript. At most one command is in flight.
type Relay struct {
	api    API
	tasks  Applier
	sess   Session
	note   Notifier
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []Entry
	busy    bool
}

type Option func(*Relay)

func WithLogger(l *log.Logger) Option { return func(r *Relay) { r.logger = l } }

func WithClock(now func() time.Time) Option { return func(r *Relay) { r.now = now } }

// New returns a relay holding only the welcome entry. The transcript is
// reset when the session ends.
func New(backend API, tasks Applier, sess Session, note Notifier, opts ...Option) *Relay {
	r := &Relay{api: backend, tasks: tasks, sess: sess, note: note, logger: logging.Discard(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	r.entries = []Entry{r.welcome()}
	sess.OnTeardown(r.reset)
	return r
}

func (r *Relay) welcome() Entry {
	return Entry{ID: welcomeID, Sender: SenderAssistant, Text: Welcome, At: r.now()}
}

func (r *Relay) reset() {
	r.mu.Lock()
	r.entries = []Entry{r.welcome()}
	r.mu.Unlock()
}

// Entries returns a copy of the transcript, oldest first.
func (r *Relay) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Busy reports whether a command is in flight.
func (r *Relay) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// LoadHistory replaces the transcript with the welcome entry followed by
// the stored exchanges. On failure the transcript is left alone.
func (r *Relay) LoadHistory(ctx context.Context) error {
	if !r.sess.Authenticated() {
		return ErrSignedOut
	}
	records, err := r.api.ChatHistory(ctx)
	if err != nil {
		r.logger.Warn("chat history", "err", err)
		r.unauthorized(err)
		return fmt.Errorf("load history: %w", err)
	}
	records = oldestFirst(records)
	entries := make([]Entry, 0, 1+2*len(records))
	entries = append(entries, r.welcome())
	for _, rec := range records {
		at := r.now()
		if rec.CreatedAt != nil {
			at = *rec.CreatedAt
		}
		entries = append(entries,
			Entry{ID: "user-" + rec.ID, Sender: SenderUser, Text: rec.Message, At: at},
			Entry{ID: "ai-" + rec.ID, Sender: SenderAssistant, Text: rec.Response, At: at},
		)
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	r.logger.Debug("chat history loaded", "exchanges", len(records))
	return nil
}

// oldestFirst orders history for the transcript. The backend answers newest
// first; a record without a timestamp keeps its place after the record
// before it.
func oldestFirst(records []model.ChatRecord) []model.ChatRecord {
	type keyed struct {
		rec model.ChatRecord
		at  time.Time
	}
	ks := make([]keyed, len(records))
	var last time.Time
	for i := range records {
		rec := records[len(records)-1-i]
		if rec.CreatedAt != nil {
			last = *rec.CreatedAt
		}
		ks[i] = keyed{rec: rec, at: last}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int { return a.at.Compare(b.at) })
	out := make([]model.ChatRecord, len(ks))
	for i, k := range ks {
		out[i] = k.rec
	}
	return out
}

// Pending is a command whose user entry is already in the transcript.
type Pending struct {
	r    *Relay
	text string
	once sync.Once
}

// Text is the submitted message.
func (p *Pending) Text() string { return p.text }

// Begin appends the user's entry and marks the relay busy.
func (r *Relay) Begin(text string) (*Pending, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !r.sess.Authenticated() {
		return nil, ErrSignedOut
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return nil, ErrBusy
	}
	r.busy = true
	r.entries = append(r.entries, Entry{ID: uuid.NewString(), Sender: SenderUser, Text: text, At: r.now()})
	return &Pending{r: r, text: text}, nil
}

// Submit sends text and waits for the reply.
func (r *Relay) Submit(ctx context.Context, text string) (Entry, error) {
	p, err := r.Begin(text)
	if err != nil {
		return Entry{}, err
	}
	return p.Settle(ctx)
}

// Settle posts the command and appends the assistant's entry, which on
// failure carries an explanation. The busy state always clears.
func (p *Pending) Settle(ctx context.Context) (Entry, error) {
	var (
		reply Entry
		err   = ErrSettled
	)
	p.once.Do(func() { reply, err = p.r.settle(ctx, p.text) })
	return reply, err
}

func (r *Relay) settle(ctx context.Context, text string) (Entry, error) {
	res, err := r.api.ProcessChat(ctx, text)

	var reply string
	switch {
	case err == nil:
		reply = res.Response
		if strings.TrimSpace(reply) == "" {
			reply = emptyReply
		}
	case api.IsTransport(err):
		reply = offlineReply
	default:
		if se, ok := api.AsStatus(err); ok {
			reply = se.Detail
			if reply == "" {
				reply = fmt.Sprintf("Error: %d - %s. Backend might not be running or AI service not configured.",
					se.Status, http.StatusText(se.Status))
			}
		} else {
			reply = offlineReply
		}
	}

	entry := Entry{ID: uuid.NewString(), Sender: SenderAssistant, Text: reply, At: r.now()}
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.busy = false
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("chat command failed", "err", err)
		r.unauthorized(err)
		return entry, fmt.Errorf("chat: %w", err)
	}
	r.logger.Debug("chat reply", "intent", res.Intent)
	r.apply(res)
	return entry, nil
}

func (r *Relay) apply(res model.ChatReply) {
	if res.ActionResult == nil || !res.Intent.Mutates() {
		return
	}
	if !r.tasks.ApplyRemote(res.Intent, *res.ActionResult) {
		return
	}
	switch res.Intent.Normalize() {
	case model.IntentCreate:
		r.note.Success("Task added successfully!")
	case model.IntentUpdate:
		r.note.Success("Task updated successfully!")
	case model.IntentDelete:
		r.note.Success("Task moved to Trash!")
	}
}

func (r *Relay) unauthorized(err error) {
	if !errors.Is(err, api.ErrUnauthorized) {
		return
	}
	if terr := r.sess.Teardown(); terr != nil {
		r.logger.Error("session teardown", "err", terr)
	}
}

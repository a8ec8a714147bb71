// Package notify implements the transient status line shown after every
// task mutation.
//
// There is a single slot: a new message replaces the current one and
// cancels its pending auto-clear, and every message clears itself after a
// fixed delay no matter what happens in between.
package notify

import (
	"sync"
	"time"
)

// DefaultDelay is how long a message stays visible.
const DefaultDelay = 3 * time.Second

// Kind tells success from failure.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "success"
}

// Message is what the status line shows.
type Message struct {
	Kind Kind
	Text string
	At   time.Time
	seq  uint64
}

// Notifier owns the slot. Safe for concurrent use.
type Notifier struct {
	mu       sync.Mutex
	delay    time.Duration
	cur      *Message
	timer    *time.Timer
	seq      uint64
	onChange []func(Message, bool)
}

// New returns a notifier whose messages clear after delay
// (DefaultDelay when delay <= 0).
func New(delay time.Duration) *Notifier {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Notifier{delay: delay}
}

// Delay is the auto-clear delay.
func (n *Notifier) Delay() time.Duration { return n.delay }

// Success shows a success message.
func (n *Notifier) Success(text string) { n.post(KindSuccess, text) }

// Error shows an error message.
func (n *Notifier) Error(text string) { n.post(KindError, text) }

func (n *Notifier) post(kind Kind, text string) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	seq := n.seq
	msg := Message{Kind: kind, Text: text, At: time.Now(), seq: seq}
	n.cur = &msg
	n.timer = time.AfterFunc(n.delay, func() { n.expire(seq) })
	hooks := n.onChange
	n.mu.Unlock()

	for _, fn := range hooks {
		fn(msg, true)
	}
}

// expire clears the slot only if it still holds message seq; a timer that
// lost the race with Stop must not wipe a newer message.
func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	if n.cur == nil || n.cur.seq != seq {
		n.mu.Unlock()
		return
	}
	old := *n.cur
	if n.timer != nil {
		n.timer.Stop()
	}
	n.cur, n.timer = nil, nil
	hooks := n.onChange
	n.mu.Unlock()

	for _, fn := range hooks {
		fn(old, false)
	}
}

// Current returns the visible message, if any.
func (n *Notifier) Current() (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cur == nil {
		return Message{}, false
	}
	return *n.cur, true
}

// Dismiss clears the slot early.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.cur == nil {
		n.mu.Unlock()
		return
	}
	seq := n.cur.seq
	n.mu.Unlock()
	n.expire(seq)
}

// Stop cancels any pending timer and clears the slot without notifying.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.cur, n.timer = nil, nil
}

// OnChange registers fn, called with (msg, true) when a message appears
// and (msg, false) when it clears. fn runs outside the notifier's lock,
// possibly on a timer goroutine.
func (n *Notifier) OnChange(fn func(msg Message, visible bool)) {
	n.mu.Lock()
	n.onChange = append(n.onChange, fn)
	n.mu.Unlock()
}

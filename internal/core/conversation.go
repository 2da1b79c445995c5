package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"careboard/internal/clock"
	"careboard/pkg"
)

// EventKind names the part of a controller's state that changed.
type EventKind string

const (
	EventMessage EventKind = "message"
	EventSummary EventKind = "summary"
)

// Event is delivered to a controller's OnChange hook after each state change,
// whether caused by a user action or by a deferred callback.
type Event struct {
	Kind EventKind `json:"kind"`
}

// ChatOptions carries the collaborators shared by both chat controllers.
// Zero values select the real clock, a no-op logger and no change hook.
type ChatOptions struct {
	Clock    clock.Clock
	Logger   *zerolog.Logger
	OnChange func(Event)
}

// conversation is the state shared by the doctor and patient controllers: an
// append-only history, the input buffer, and the deferred callbacks that are
// released on Close.
type conversation struct {
	mu       sync.Mutex
	clock    clock.Clock
	log      zerolog.Logger
	onChange func(Event)
	ctx      context.Context
	cancel   context.CancelFunc

	history []pkg.ChatMessage
	draft   string
	closed  bool
	nextID  uint64
	timers  map[uint64]clock.Timer
}

func (c *conversation) init(seed []pkg.ChatMessage, opts ChatOptions) {
	c.clock = opts.Clock
	if c.clock == nil {
		c.clock = clock.New()
	}
	c.log = zerolog.Nop()
	if opts.Logger != nil {
		c.log = *opts.Logger
	}
	c.onChange = opts.OnChange
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.history = append([]pkg.ChatMessage(nil), seed...)
	c.timers = make(map[uint64]clock.Timer)
}

// History returns the current history.  The returned slice is never modified
// by the controller; every append produces a new slice.
func (c *conversation) History() []pkg.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history
}

// SetDraft stores the text currently typed in the input field.
func (c *conversation) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Draft returns the input buffer.
func (c *conversation) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Pending returns the number of deferred callbacks not yet fired.
func (c *conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Closed reports whether Close has been called.
func (c *conversation) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops every pending deferred callback and cancels in-flight
// collaborator calls.  It is safe to call more than once.
func (c *conversation) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.cancel()
	return nil
}

// submit appends label+trimmed text when the trimmed text is non-empty and
// clears the draft.  It returns the history as it was before the append.
func (c *conversation) submit(sender pkg.Sender, label, text string) (prior []pkg.ChatMessage, trimmed string, ok bool) {
	trimmed = strings.TrimSpace(text)
	if trimmed == "" {
		return nil, "", false
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, "", false
	}
	prior = c.history
	c.appendLocked(pkg.ChatMessage{Sender: sender, Text: label + trimmed})
	c.draft = ""
	c.mu.Unlock()

	c.emit(EventMessage)
	return prior, trimmed, true
}

func (c *conversation) appendLocked(m pkg.ChatMessage) {
	next := make([]pkg.ChatMessage, len(c.history)+1)
	copy(next, c.history)
	next[len(c.history)] = m
	c.history = next
}

// appendMessage is used by deferred callbacks.  It reports false when the
// controller was closed in the meantime.
func (c *conversation) appendMessage(m pkg.ChatMessage) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.appendLocked(m)
	c.mu.Unlock()

	c.emit(EventMessage)
	return true
}

// after runs fn once d has elapsed unless the controller is closed first.
// Each call registers an independent timer.
func (c *conversation) after(d time.Duration, fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.nextID++
	id := c.nextID
	c.timers[id] = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		delete(c.timers, id)
		ctx := c.ctx
		c.mu.Unlock()
		fn(ctx)
	})
}

func (c *conversation) emit(kind EventKind) {
	if c.onChange != nil {
		c.onChange(Event{Kind: kind})
	}
}

package session

import (
	"context"
	"sync"

	"careboard/internal/core"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind
// before further events are dropped for it.  Subscribers re-read the full
// state on every event, so dropping intermediate events loses nothing.
const subscriberBuffer = 16

// Notifier fans out controller change events to the stream subscribers of a
// session.  Publishing never blocks.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]map[chan core.Event]struct{}
}

// NewNotifier constructs an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[chan core.Event]struct{})}
}

// Notify delivers e to every subscriber of sessionID.
func (n *Notifier) Notify(sessionID string, e core.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[sessionID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Listen subscribes to the events of sessionID.  The returned channel is
// closed when ctx is done or when the session is closed.
func (n *Notifier) Listen(ctx context.Context, sessionID string) <-chan core.Event {
	ch := make(chan core.Event, subscriberBuffer)
	n.mu.Lock()
	if n.subs[sessionID] == nil {
		n.subs[sessionID] = make(map[chan core.Event]struct{})
	}
	n.subs[sessionID][ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.unsubscribe(sessionID, ch)
	}()
	return ch
}

// Subscribers returns the number of live subscribers of sessionID.
func (n *Notifier) Subscribers(sessionID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[sessionID])
}

// CloseSession closes every subscriber channel of sessionID.
func (n *Notifier) CloseSession(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[sessionID] {
		close(ch)
	}
	delete(n.subs, sessionID)
}

func (n *Notifier) unsubscribe(sessionID string, ch chan core.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(n.subs, sessionID)
	}
}

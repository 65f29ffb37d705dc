package replication

import (
	"sync"

	"github.com/korpimaa/nightexpress/internal/broker"
	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
	"github.com/korpimaa/nightexpress/internal/store"
)

// SubscriptionHandle owns the three change listeners registered by Subscribe.
// Close deterministically unregisters them and is safe to call more than once.
type SubscriptionHandle struct {
	sub       *broker.Subscription[store.ChangeEvent]
	done      chan struct{}
	closeOnce sync.Once
}

// Close unregisters the listeners. Idempotent.
func (h *SubscriptionHandle) Close() {
	h.closeOnce.Do(func() {
		h.sub.Close()
		<-h.done
	})
}

// Subscribe registers three independent change listeners for the bound
// session: one for session-record updates, one for journal inserts, one for
// chat inserts. Each fires once per remote mutation of the matching kind, in
// arrival order, on a single goroutine. Session events reconcile the local
// mirror before the callback sees them. Nil callbacks are skipped.
func (c *Client) Subscribe(
	onSessionChange func(models.Session),
	onJournalInsert func(models.JournalEntry),
	onChatInsert func(models.ChatMessage),
) (*SubscriptionHandle, error) {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return nil, errors.Wrap(ErrNoSession, "subscribe")
	}
	sessionID := c.session.ID
	c.mu.Unlock()

	sub := c.store.Subscribe()
	if sub == nil {
		return nil, errors.Wrap(store.ErrTransport, "store change feed stopped")
	}
	handle := &SubscriptionHandle{
		sub:  sub,
		done: make(chan struct{}),
	}

	go func() {
		defer close(handle.done)
		for event := range sub.C {
			if event.SessionID != sessionID {
				continue
			}
			switch event.Table {
			case store.TableRooms:
				if event.Room == nil {
					continue
				}
				c.reconcile(*event.Room)
				if onSessionChange != nil {
					onSessionChange(*event.Room)
				}
			case store.TableJournal:
				if event.Journal != nil && onJournalInsert != nil {
					onJournalInsert(*event.Journal)
				}
			case store.TableChat:
				if event.Chat != nil && onChatInsert != nil {
					onChatInsert(*event.Chat)
				}
			}
		}
	}()

	c.mu.Lock()
	c.handles = append(c.handles, handle)
	c.mu.Unlock()
	return handle, nil
}

// UnsubscribeAll releases every handle created since the last call. Must be
// invoked before re-subscribing to a different session to avoid duplicate
// delivery.
func (c *Client) UnsubscribeAll() {
	c.mu.Lock()
	handles := c.handles
	c.handles = nil
	c.mu.Unlock()

	for _, handle := range handles {
		handle.Close()
	}
}

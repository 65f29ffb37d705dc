// Package replication keeps a local in-memory mirror of one shared session
// and its journal and chat streams consistent with the session store.
//
// Writes go through field-level partial updates: the mirror is updated
// optimistically and tagged with a tentative version, then reconciled when the
// authoritative echo arrives through the change subscription. Echoes staler
// than the tentative version are discarded so a slow echo can never clobber a
// newer local write.
package replication

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/korpimaa/nightexpress/internal/broker"
	"github.com/korpimaa/nightexpress/internal/casefile"
	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
	"github.com/korpimaa/nightexpress/internal/random"
	"github.com/korpimaa/nightexpress/internal/store"
)

// codeRetryBudget bounds join-code collision retries during session creation.
const codeRetryBudget = 10

// ErrNoSession is returned by operations that need a bound session before
// CreateSession or JoinSession has succeeded.
var ErrNoSession = errors.NewSentinel("no session bound")

// SessionStore is the slice of the store the replication layer depends on.
// *store.Store implements it.
type SessionStore interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	CreateRoom(ctx context.Context, room models.Session) (models.Session, error)
	GetRoomByCode(ctx context.Context, code string) (models.Session, error)
	BindStudent(ctx context.Context, id, studentID string) (models.Session, error)
	UpdateRoom(ctx context.Context, id string, patch models.SessionPatch) (models.Session, error)
	InsertJournal(ctx context.Context, entry models.JournalEntry) (models.JournalEntry, error)
	InsertChat(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error)
	ListJournal(ctx context.Context, roomID string) ([]models.JournalEntry, error)
	ListChat(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	Subscribe() *broker.Subscription[store.ChangeEvent]
}

// Client is one side's replication endpoint. A teacher client creates the
// session; a student client joins it; both then write partial updates and
// receive the other side's mutations as change events.
type Client struct {
	store    SessionStore
	identity string
	logger   *slog.Logger

	mu               sync.Mutex
	session          models.Session
	bound            bool
	tentativeVersion int64
	handles          []*SubscriptionHandle
}

// NewClient creates a replication client for the given identity. The identity
// is an opaque per-client id; it becomes the teacher id on CreateSession or
// the student id on JoinSession.
func NewClient(st SessionStore, identity string, logger *slog.Logger) *Client {
	return &Client{
		store:    st,
		identity: identity,
		logger:   logger.With("source", "replication.Client", "identity", identity),
	}
}

// CreateSession generates a join code, retries on collision up to the retry
// budget, and writes the full initial session record. The killer is chosen by
// uniform random selection from the case's suspect roster. On code
// exhaustion no partial write has happened.
func (c *Client) CreateSession(ctx context.Context, bundle *casefile.Bundle) (models.Session, error) {
	suspectIDs := bundle.SuspectIDs()
	if len(suspectIDs) == 0 {
		return models.Session{}, errors.Wrap(store.ErrValidation, "case has no suspects",
			slog.String("case", bundle.ID))
	}

	code, err := c.freshCode(ctx)
	if err != nil {
		return models.Session{}, err
	}

	killerIndex, err := random.Index(len(suspectIDs))
	if err != nil {
		return models.Session{}, errors.Wrap(err, "choose killer")
	}

	suspects := make(map[string][]string, len(suspectIDs))
	for _, id := range suspectIDs {
		suspects[id] = []string{}
	}

	room := models.Session{
		ID:          uuid.NewString(),
		Code:        code,
		Scene:       models.SceneMenu,
		Locked:      false,
		LensCharges: models.InitialLensCharges,
		KillerID:    suspectIDs[killerIndex],
		TeacherID:   c.identity,
		Difficulty:  models.DifficultyIntermediate,
		Inventory:   []string{},
		Suspects:    suspects,
	}
	created, err := c.store.CreateRoom(ctx, room)
	if err != nil {
		return models.Session{}, err
	}

	c.bind(created)
	c.logger.LogAttrs(ctx, slog.LevelInfo, "session created",
		slog.String("session_id", created.ID), slog.String("code", created.Code))
	return created, nil
}

// freshCode draws candidate join codes with a read-before-write existence
// check until one is free or the retry budget runs out.
func (c *Client) freshCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeRetryBudget; attempt++ {
		code, err := random.JoinCode()
		if err != nil {
			return "", err
		}
		taken, err := c.store.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.Wrap(store.ErrCodeExhaustion, "no free join code",
		slog.Int("attempts", codeRetryBudget))
}

// JoinSession looks the session up by code and binds this client's identity
// as the student. Re-invoking with the same identity is idempotent; a second
// distinct student fails.
func (c *Client) JoinSession(ctx context.Context, code string) (models.Session, error) {
	room, err := c.store.GetRoomByCode(ctx, code)
	if err != nil {
		return models.Session{}, err
	}
	bound, err := c.store.BindStudent(ctx, room.ID, c.identity)
	if err != nil {
		return models.Session{}, err
	}

	c.bind(bound)
	c.logger.LogAttrs(ctx, slog.LevelInfo, "session joined", slog.String("session_id", bound.ID))
	return bound, nil
}

func (c *Client) bind(room models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = room
	c.bound = true
	c.tentativeVersion = room.Version
}

// Session returns a copy of the local mirror.
func (c *Client) Session() (models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.bound
}

// UpdateSession writes only the supplied fields. The mirror is updated
// optimistically before the round trip; the authoritative state reconciles it
// afterwards (a no-op when the change subscription got there first). Failures
// are returned to the caller and never retried here — the optimistic value
// stays in place until the next authoritative observation.
func (c *Client) UpdateSession(ctx context.Context, patch models.SessionPatch) error {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return errors.Wrap(ErrNoSession, "update session")
	}
	sessionID := c.session.ID
	patch.Apply(&c.session)
	c.tentativeVersion++
	c.mu.Unlock()

	updated, err := c.store.UpdateRoom(ctx, sessionID, patch)
	if err != nil {
		return err
	}
	c.reconcile(updated)
	return nil
}

// reconcile applies an authoritative session state unless it is staler than
// the tentative local version.
func (c *Client) reconcile(remote models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.bound || remote.ID != c.session.ID {
		return
	}
	if remote.Version < c.tentativeVersion {
		// Stale echo of an older write; a newer local write is in flight.
		return
	}
	c.session = remote
	c.tentativeVersion = remote.Version
}

// AppendJournal inserts a journal entry. Pure insert; entries are never
// updated or deleted.
func (c *Client) AppendJournal(ctx context.Context, actor, text string) (models.JournalEntry, error) {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return models.JournalEntry{}, errors.Wrap(ErrNoSession, "append journal")
	}
	sessionID := c.session.ID
	c.mu.Unlock()

	return c.store.InsertJournal(ctx, models.JournalEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Actor:     actor,
		Text:      text,
	})
}

// AppendChat inserts a chat message into the session's chat stream.
func (c *Client) AppendChat(ctx context.Context, sender, message string) (models.ChatMessage, error) {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return models.ChatMessage{}, errors.Wrap(ErrNoSession, "append chat")
	}
	sessionID := c.session.ID
	c.mu.Unlock()

	return c.store.InsertChat(ctx, models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Message:   message,
	})
}

// Journal reads the session's full journal from the store.
func (c *Client) Journal(ctx context.Context) ([]models.JournalEntry, error) {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return nil, errors.Wrap(ErrNoSession, "read journal")
	}
	sessionID := c.session.ID
	c.mu.Unlock()
	return c.store.ListJournal(ctx, sessionID)
}

// Chat reads the session's full chat stream from the store.
func (c *Client) Chat(ctx context.Context) ([]models.ChatMessage, error) {
	c.mu.Lock()
	if !c.bound {
		c.mu.Unlock()
		return nil, errors.Wrap(ErrNoSession, "read chat")
	}
	sessionID := c.session.ID
	c.mu.Unlock()
	return c.store.ListChat(ctx, sessionID)
}

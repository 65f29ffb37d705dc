package store

import "github.com/korpimaa/nightexpress/internal/models"

// Table identifies which record kind a change event concerns.
type Table string

const (
	TableRooms   Table = "rooms"
	TableJournal Table = "journal_entries"
	TableChat    Table = "chat_messages"
)

// ChangeKind distinguishes inserts from updates. The streams only ever see
// inserts; the room record only ever sees inserts and updates.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
)

// ChangeEvent is the row-level change notification published after every
// committed mutation. It carries the mutated row's full current field set so
// that subscribers can apply latest-value semantics without a read-back.
type ChangeEvent struct {
	Table     Table
	Kind      ChangeKind
	SessionID string

	// Exactly one of the following is set, matching Table.
	Room    *models.Session
	Journal *models.JournalEntry
	Chat    *models.ChatMessage
}

package models

import "time"

// ActorSystem marks journal entries authored by the difficulty controller or
// the rule engine rather than a human player.
const ActorSystem = "System"

// JournalEntry is an append-only fact record in the shared detective journal.
// Entries are never mutated or deleted; created_at orders them for display.
type JournalEntry struct {
	ID        string
	SessionID string
	Actor     string
	Text      string
	CreatedAt time.Time
}

// ChatMessage is an append-only message in the teacher↔student chat stream.
type ChatMessage struct {
	ID        string
	SessionID string
	Sender    string
	Message   string
	CreatedAt time.Time
}

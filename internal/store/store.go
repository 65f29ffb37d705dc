package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/korpimaa/nightexpress/internal/broker"
	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
	"github.com/korpimaa/nightexpress/internal/sqlite"
)

// Store is the durable multi-writer session record both clients read and
// write. Every committed mutation is fanned out as a ChangeEvent so that each
// attached replication client can keep its mirror current.
type Store struct {
	dbs    *sqlite.Database
	logger *slog.Logger
	fanout *broker.Fanout[ChangeEvent]
	now    func() time.Time
}

// NewStore wires a store on top of the given database and starts its change
// fan-out. Call Close to stop the fan-out; the database is owned by the caller.
func NewStore(dbs *sqlite.Database, logger *slog.Logger) *Store {
	fanout := broker.NewFanout[ChangeEvent]()
	go fanout.Start()
	return &Store{
		dbs:    dbs,
		logger: logger.With("source", "Store"),
		fanout: fanout,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close stops the change fan-out and closes every subscriber channel.
func (s *Store) Close() {
	s.fanout.Stop()
}

// Subscribe attaches a change-event listener. The returned subscription's
// Close is idempotent.
func (s *Store) Subscribe() *broker.Subscription[ChangeEvent] {
	subscriberBuffer := 256
	return s.fanout.Subscribe(subscriberBuffer)
}

// CodeExists reports whether a join code is already taken. Session creation
// performs this read before writing so a collision never clobbers an
// existing room.
func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	stmt := `SELECT COUNT(*) FROM rooms WHERE code = ?`
	if err := s.dbs.ReadOnly.GetContext(ctx, &count, stmt, code); err != nil {
		return false, errors.Wrap(errors.Join(ErrTransport, err), "check code existence", slog.String("code", code))
	}
	return count > 0, nil
}

// CreateRoom inserts the full initial session record and publishes the insert.
func (s *Store) CreateRoom(ctx context.Context, room models.Session) (models.Session, error) {
	inventory, err := encodeInventory(room.Inventory)
	if err != nil {
		return models.Session{}, err
	}
	suspects, err := encodeSuspects(room.Suspects)
	if err != nil {
		return models.Session{}, err
	}

	now := s.now()
	room.Version = 1
	room.CreatedAt = now
	room.UpdatedAt = now

	stmt := `INSERT INTO rooms (id, code, scene, locked, lens_charges, killer_id, teacher_id, student_id,
                   difficulty, inventory, suspects, version, created_at, updated_at)
VALUES (@id, @code, @scene, @locked, @lens_charges, @killer_id, @teacher_id, @student_id,
        @difficulty, @inventory, @suspects, @version, @created_at, @updated_at)`
	params := []any{
		sql.Named("id", room.ID),
		sql.Named("code", room.Code),
		sql.Named("scene", string(room.Scene)),
		sql.Named("locked", room.Locked),
		sql.Named("lens_charges", models.ClampLensCharges(room.LensCharges)),
		sql.Named("killer_id", room.KillerID),
		sql.Named("teacher_id", room.TeacherID),
		sql.Named("student_id", room.StudentID),
		sql.Named("difficulty", string(room.Difficulty)),
		sql.Named("inventory", inventory),
		sql.Named("suspects", suspects),
		sql.Named("version", room.Version),
		sql.Named("created_at", room.CreatedAt),
		sql.Named("updated_at", room.UpdatedAt),
	}
	if _, err = s.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return models.Session{}, errors.Wrap(errors.Join(ErrTransport, err), "insert room", slog.String("room_id", room.ID))
	}

	s.publishRoom(ChangeInsert, room)
	return room, nil
}

// GetRoom reads a session by id.
func (s *Store) GetRoom(ctx context.Context, id string) (models.Session, error) {
	return s.getRoomWhere(ctx, "id = ?", id)
}

// GetRoomByCode reads a session by its join code.
func (s *Store) GetRoomByCode(ctx context.Context, code string) (models.Session, error) {
	return s.getRoomWhere(ctx, "code = ?", code)
}

func (s *Store) getRoomWhere(ctx context.Context, where string, arg any) (models.Session, error) {
	var row roomRow
	stmt := `SELECT id, code, scene, locked, lens_charges, killer_id, teacher_id, student_id,
       difficulty, inventory, suspects, version, created_at, updated_at
FROM rooms WHERE ` + where
	if err := s.dbs.ReadOnly.GetContext(ctx, &row, stmt, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, errors.Wrap(ErrNotFound, "room lookup", slog.Any("key", arg))
		}
		return models.Session{}, errors.Wrap(errors.Join(ErrTransport, err), "read room", slog.Any("key", arg))
	}
	room, err := row.decode()
	if err != nil {
		return models.Session{}, errors.Wrap(err, "malformed room row", slog.String("room_id", row.ID))
	}
	return room, nil
}

// UpdateRoom writes only the fields carried by the patch, bumps the version,
// and publishes the updated row. Unspecified fields are never echoed back, so
// concurrent remote writes to other fields survive.
func (s *Store) UpdateRoom(ctx context.Context, id string, patch models.SessionPatch) (models.Session, error) {
	if patch.IsZero() {
		return s.GetRoom(ctx, id)
	}

	sets := []string{"version = version + 1", "updated_at = @updated_at"}
	params := []any{
		sql.Named("id", id),
		sql.Named("updated_at", s.now()),
	}
	if patch.Scene != nil {
		sets = append(sets, "scene = @scene")
		params = append(params, sql.Named("scene", string(*patch.Scene)))
	}
	if patch.Locked != nil {
		sets = append(sets, "locked = @locked")
		params = append(params, sql.Named("locked", *patch.Locked))
	}
	if patch.LensCharges != nil {
		// Clamp instead of rejecting; the [0,5] bound is a session invariant.
		sets = append(sets, "lens_charges = @lens_charges")
		params = append(params, sql.Named("lens_charges", models.ClampLensCharges(*patch.LensCharges)))
	}
	if patch.StudentID != nil {
		sets = append(sets, "student_id = @student_id")
		params = append(params, sql.Named("student_id", *patch.StudentID))
	}
	if patch.Difficulty != nil {
		if !patch.Difficulty.Valid() {
			return models.Session{}, errors.Wrap(ErrValidation, "unknown difficulty level",
				slog.String("difficulty", string(*patch.Difficulty)))
		}
		sets = append(sets, "difficulty = @difficulty")
		params = append(params, sql.Named("difficulty", string(*patch.Difficulty)))
	}
	if patch.Inventory != nil {
		inventory, err := encodeInventory(*patch.Inventory)
		if err != nil {
			return models.Session{}, err
		}
		sets = append(sets, "inventory = @inventory")
		params = append(params, sql.Named("inventory", inventory))
	}
	if patch.Suspects != nil {
		suspects, err := encodeSuspects(*patch.Suspects)
		if err != nil {
			return models.Session{}, err
		}
		sets = append(sets, "suspects = @suspects")
		params = append(params, sql.Named("suspects", suspects))
	}

	stmt := "UPDATE rooms SET " + strings.Join(sets, ", ") + " WHERE id = @id"
	result, err := s.dbs.ReadWrite.ExecContext(ctx, stmt, params...)
	if err != nil {
		return models.Session{}, errors.Wrap(errors.Join(ErrTransport, err), "update room", slog.String("room_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Session{}, errors.Wrap(errors.Join(ErrTransport, err), "rows affected", slog.String("room_id", id))
	}
	if affected == 0 {
		return models.Session{}, errors.Wrap(ErrNotFound, "update missed room", slog.String("room_id", id))
	}

	room, err := s.readRoomAuthoritative(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	s.publishRoom(ChangeUpdate, room)
	return room, nil
}

// BindStudent binds studentID as the session's student, first writer wins.
// Rebinding the same identity is a no-op; a different identity on an occupied
// seat fails with ErrValidation.
func (s *Store) BindStudent(ctx context.Context, id, studentID string) (models.Session, error) {
	if studentID == "" {
		return models.Session{}, errors.Wrap(ErrValidation, "empty student identity")
	}
	stmt := `UPDATE rooms
SET student_id = @student_id, version = version + 1, updated_at = @updated_at
WHERE id = @id AND (student_id = '' OR student_id = @student_id)`
	params := []any{
		sql.Named("id", id),
		sql.Named("student_id", studentID),
		sql.Named("updated_at", s.now()),
	}
	result, err := s.dbs.ReadWrite.ExecContext(ctx, stmt, params...)
	if err != nil {
		return models.Session{}, errors.Wrap(errors.Join(ErrTransport, err), "bind student", slog.String("room_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Session{}, errors.Wrap(errors.Join(ErrTransport, err), "rows affected", slog.String("room_id", id))
	}
	if affected == 0 {
		// Either the room is gone or another student holds the seat.
		room, getErr := s.readRoomAuthoritative(ctx, id)
		if getErr != nil {
			return models.Session{}, getErr
		}
		return models.Session{}, errors.Wrap(ErrValidation, "student seat taken",
			slog.String("room_id", id), slog.String("student_id", room.StudentID))
	}

	room, err := s.readRoomAuthoritative(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	s.publishRoom(ChangeUpdate, room)
	return room, nil
}

// InsertJournal appends to the journal stream and publishes the insert.
func (s *Store) InsertJournal(ctx context.Context, entry models.JournalEntry) (models.JournalEntry, error) {
	entry.CreatedAt = s.now()
	stmt := `INSERT INTO journal_entries (id, room_id, actor, text, created_at)
VALUES (@id, @room_id, @actor, @text, @created_at)`
	params := []any{
		sql.Named("id", entry.ID),
		sql.Named("room_id", entry.SessionID),
		sql.Named("actor", entry.Actor),
		sql.Named("text", entry.Text),
		sql.Named("created_at", entry.CreatedAt),
	}
	if _, err := s.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return models.JournalEntry{}, errors.Wrap(errors.Join(ErrTransport, err), "insert journal entry", slog.String("room_id", entry.SessionID))
	}
	s.fanout.Publish(ChangeEvent{
		Table:     TableJournal,
		Kind:      ChangeInsert,
		SessionID: entry.SessionID,
		Journal:   &entry,
	})
	return entry, nil
}

// InsertChat appends to the chat stream and publishes the insert.
func (s *Store) InsertChat(ctx context.Context, message models.ChatMessage) (models.ChatMessage, error) {
	message.CreatedAt = s.now()
	stmt := `INSERT INTO chat_messages (id, room_id, sender, message, created_at)
VALUES (@id, @room_id, @sender, @message, @created_at)`
	params := []any{
		sql.Named("id", message.ID),
		sql.Named("room_id", message.SessionID),
		sql.Named("sender", message.Sender),
		sql.Named("message", message.Message),
		sql.Named("created_at", message.CreatedAt),
	}
	if _, err := s.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return models.ChatMessage{}, errors.Wrap(errors.Join(ErrTransport, err), "insert chat message", slog.String("room_id", message.SessionID))
	}
	s.fanout.Publish(ChangeEvent{
		Table:     TableChat,
		Kind:      ChangeInsert,
		SessionID: message.SessionID,
		Chat:      &message,
	})
	return message, nil
}

// ListJournal returns the room's journal ordered by creation time.
func (s *Store) ListJournal(ctx context.Context, roomID string) ([]models.JournalEntry, error) {
	var rows []journalRow
	stmt := `SELECT id, room_id, actor, text, created_at
FROM journal_entries WHERE room_id = ? ORDER BY created_at, id`
	if err := s.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, roomID); err != nil {
		return nil, errors.Wrap(errors.Join(ErrTransport, err), "list journal", slog.String("room_id", roomID))
	}
	entries := make([]models.JournalEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.decode())
	}
	return entries, nil
}

// ListChat returns the room's chat ordered by creation time.
func (s *Store) ListChat(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	var rows []chatRow
	stmt := `SELECT id, room_id, sender, message, created_at
FROM chat_messages WHERE room_id = ? ORDER BY created_at, id`
	if err := s.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, roomID); err != nil {
		return nil, errors.Wrap(errors.Join(ErrTransport, err), "list chat", slog.String("room_id", roomID))
	}
	messages := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.decode())
	}
	return messages, nil
}

// readRoomAuthoritative reads through the read-write connection so a write
// immediately followed by its read-back cannot race the read pool's view.
func (s *Store) readRoomAuthoritative(ctx context.Context, id string) (models.Session, error) {
	var row roomRow
	stmt := `SELECT id, code, scene, locked, lens_charges, killer_id, teacher_id, student_id,
       difficulty, inventory, suspects, version, created_at, updated_at
FROM rooms WHERE id = ?`
	if err := s.dbs.ReadWrite.GetContext(ctx, &row, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, errors.Wrap(ErrNotFound, "room lookup", slog.String("room_id", id))
		}
		return models.Session{}, errors.Wrap(errors.Join(ErrTransport, err), "read room", slog.String("room_id", id))
	}
	room, err := row.decode()
	if err != nil {
		return models.Session{}, errors.Wrap(err, "malformed room row", slog.String("room_id", row.ID))
	}
	return room, nil
}

func (s *Store) publishRoom(kind ChangeKind, room models.Session) {
	s.fanout.Publish(ChangeEvent{
		Table:     TableRooms,
		Kind:      kind,
		SessionID: room.ID,
		Room:      &room,
	})
}

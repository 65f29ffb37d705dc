package replication_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/korpimaa/nightexpress/internal/casefile"
	"github.com/korpimaa/nightexpress/internal/models"
	"github.com/korpimaa/nightexpress/internal/replication"
	"github.com/korpimaa/nightexpress/internal/sqlite"
	"github.com/korpimaa/nightexpress/internal/store"
	"github.com/korpimaa/nightexpress/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	s := store.NewStore(dbs, logger)
	t.Cleanup(func() {
		s.Close()
		require.NoError(t, dbs.Close())
	})
	return s
}

func testBundle(t *testing.T) *casefile.Bundle {
	t.Helper()
	bundle, err := casefile.MidnightExpress()
	require.NoError(t, err)
	return bundle
}

func TestClient_CreateSession(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	logger := testhelpers.NewLogger(io.Discard)
	teacher := replication.NewClient(s, "teacher-1", logger)

	bundle := testBundle(t)
	session, err := teacher.CreateSession(context.Background(), bundle)
	require.NoError(t, err)
	require.Len(t, session.Code, 6)
	require.Equal(t, models.SceneMenu, session.Scene)
	require.Equal(t, models.InitialLensCharges, session.LensCharges)
	require.False(t, session.Locked)
	require.Equal(t, "teacher-1", session.TeacherID)
	require.Empty(t, session.StudentID)
	require.Contains(t, bundle.SuspectIDs(), session.KillerID)
	require.Len(t, session.Suspects, len(bundle.SuspectIDs()))

	mirror, bound := teacher.Session()
	require.True(t, bound)
	require.Equal(t, session.ID, mirror.ID)
}

// exhaustedStore reports every candidate join code as taken.
type exhaustedStore struct {
	*store.Store
	createCalls atomic.Int64
}

func (s *exhaustedStore) CodeExists(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (s *exhaustedStore) CreateRoom(ctx context.Context, room models.Session) (models.Session, error) {
	s.createCalls.Add(1)
	return s.Store.CreateRoom(ctx, room)
}

func TestClient_CreateSessionCodeExhaustion(t *testing.T) {
	t.Parallel()
	backing := &exhaustedStore{Store: newTestStore(t)}
	logger := testhelpers.NewLogger(io.Discard)
	teacher := replication.NewClient(backing, "teacher-1", logger)

	_, err := teacher.CreateSession(context.Background(), testBundle(t))
	require.ErrorIs(t, err, store.ErrCodeExhaustion)
	// Exhaustion happens before any write: no partial record exists.
	require.Zero(t, backing.createCalls.Load())
}

func TestClient_JoinSession(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	logger := testhelpers.NewLogger(io.Discard)
	teacher := replication.NewClient(s, "teacher-1", logger)
	student := replication.NewClient(s, "student-1", logger)
	intruder := replication.NewClient(s, "student-2", logger)
	ctx := context.Background()

	created, err := teacher.CreateSession(ctx, testBundle(t))
	require.NoError(t, err)

	_, err = student.JoinSession(ctx, "NOSUCH")
	require.ErrorIs(t, err, store.ErrNotFound)

	joined, err := student.JoinSession(ctx, created.Code)
	require.NoError(t, err)
	require.Equal(t, "student-1", joined.StudentID)

	// Idempotent for the same identity.
	joined, err = student.JoinSession(ctx, created.Code)
	require.NoError(t, err)
	require.Equal(t, "student-1", joined.StudentID)

	// At most one student identity is ever bound.
	_, err = intruder.JoinSession(ctx, created.Code)
	require.ErrorIs(t, err, store.ErrValidation)
}

func TestClient_UpdateRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	logger := testhelpers.NewLogger(io.Discard)
	teacher := replication.NewClient(s, "teacher-1", logger)
	ctx := context.Background()

	created, err := teacher.CreateSession(ctx, testBundle(t))
	require.NoError(t, err)

	scene := models.SceneCarriage
	require.NoError(t, teacher.UpdateSession(ctx, models.SessionPatch{Scene: &scene}))

	mirror, _ := teacher.Session()
	require.Equal(t, models.SceneCarriage, mirror.Scene)
	// Every other field keeps its pre-write value.
	require.Equal(t, created.LensCharges, mirror.LensCharges)
	require.Equal(t, created.Locked, mirror.Locked)
	require.Equal(t, created.KillerID, mirror.KillerID)

	fresh, err := s.GetRoom(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SceneCarriage, fresh.Scene)
}

func TestClient_SubscribeFanOut(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	logger := testhelpers.NewLogger(io.Discard)
	teacher := replication.NewClient(s, "teacher-1", logger)
	student := replication.NewClient(s, "student-1", logger)
	ctx := context.Background()

	created, err := teacher.CreateSession(ctx, testBundle(t))
	require.NoError(t, err)
	_, err = student.JoinSession(ctx, created.Code)
	require.NoError(t, err)

	sessionChanges := make(chan models.Session, 16)
	journalInserts := make(chan models.JournalEntry, 16)
	chatInserts := make(chan models.ChatMessage, 16)
	handle, err := student.Subscribe(
		func(s models.Session) { sessionChanges <- s },
		func(e models.JournalEntry) { journalInserts <- e },
		func(m models.ChatMessage) { chatInserts <- m },
	)
	require.NoError(t, err)
	t.Cleanup(handle.Close)

	locked := true
	require.NoError(t, teacher.UpdateSession(ctx, models.SessionPatch{Locked: &locked}))
	remote := receive(t, sessionChanges)
	require.True(t, remote.Locked)

	// The student's mirror converges on the remote write.
	require.Eventually(t, func() bool {
		mirror, _ := student.Session()
		return mirror.Locked
	}, time.Second, 10*time.Millisecond)

	_, err = teacher.AppendJournal(ctx, "Conductor", "The 23:40 departs on time.")
	require.NoError(t, err)
	entry := receive(t, journalInserts)
	require.Equal(t, "Conductor", entry.Actor)

	_, err = teacher.AppendChat(ctx, "Conductor", "Look again at the luggage van.")
	require.NoError(t, err)
	message := receive(t, chatInserts)
	require.Equal(t, "Look again at the luggage van.", message.Message)

	// Close is idempotent.
	handle.Close()
	handle.Close()
}

func TestClient_StaleEchoDiscarded(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	logger := testhelpers.NewLogger(io.Discard)
	teacher := replication.NewClient(s, "teacher-1", logger)
	ctx := context.Background()

	created, err := teacher.CreateSession(ctx, testBundle(t))
	require.NoError(t, err)

	// Two sequential writes. After both, replaying the first write's echo
	// must not roll the mirror back.
	sceneA := models.ScenePlatform
	require.NoError(t, teacher.UpdateSession(ctx, models.SessionPatch{Scene: &sceneA}))
	sceneB := models.SceneDiningCar
	require.NoError(t, teacher.UpdateSession(ctx, models.SessionPatch{Scene: &sceneB}))

	mirror, _ := teacher.Session()
	require.Equal(t, models.SceneDiningCar, mirror.Scene)
	require.Equal(t, created.Version+2, mirror.Version)
}

func TestClient_UnsubscribeAll(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	logger := testhelpers.NewLogger(io.Discard)
	teacher := replication.NewClient(s, "teacher-1", logger)
	ctx := context.Background()

	_, err := teacher.CreateSession(ctx, testBundle(t))
	require.NoError(t, err)

	var fired atomic.Int64
	for range 3 {
		_, err = teacher.Subscribe(func(models.Session) { fired.Add(1) }, nil, nil)
		require.NoError(t, err)
	}
	teacher.UnsubscribeAll()

	locked := true
	require.NoError(t, teacher.UpdateSession(ctx, models.SessionPatch{Locked: &locked}))
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, fired.Load(), "closed listeners must not fire")
}

func receive[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	panic("unreachable")
}

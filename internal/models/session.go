package models

import "time"

// Scene identifies which part of the train the session is currently playing.
type Scene string

const (
	SceneMenu       Scene = "menu"
	ScenePlatform   Scene = "platform"
	SceneCarriage   Scene = "carriage"
	SceneDiningCar  Scene = "dining-car"
	SceneEngineRoom Scene = "engine-room"
	SceneSolution   Scene = "solution"
)

// Lens charge bounds. Charges never leave this range; writes outside it are
// clamped rather than rejected.
const (
	MinLensCharges = 0
	MaxLensCharges = 5
)

// InitialLensCharges is the charge count a freshly created session starts with.
const InitialLensCharges = 3

// ClampLensCharges forces n into the [MinLensCharges, MaxLensCharges] range.
func ClampLensCharges(n int) int {
	if n < MinLensCharges {
		return MinLensCharges
	}
	if n > MaxLensCharges {
		return MaxLensCharges
	}
	return n
}

// Session is the single shared mutable record binding one teacher (the
// Conductor) and at most one student (the Detective) to a game instance.
// Both clients mutate it through field-level partial updates; the killer is
// chosen at creation and never changes.
type Session struct {
	ID          string
	Code        string
	Scene       Scene
	Locked      bool
	LensCharges int
	KillerID    string
	TeacherID   string
	StudentID   string
	Difficulty  DifficultyLevel
	Inventory   []string
	// Suspects maps suspect id to the clue ids discovered against that suspect.
	Suspects map[string][]string
	// Version increases by one on every committed update. Replication clients
	// use it to discard echoes that are staler than their own tentative state.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionPatch is a field-level partial update. Nil fields are left untouched
// by the store so that concurrent remote writes to other fields are never
// clobbered.
type SessionPatch struct {
	Scene       *Scene
	Locked      *bool
	LensCharges *int
	StudentID   *string
	Difficulty  *DifficultyLevel
	Inventory   *[]string
	Suspects    *map[string][]string
}

// IsZero reports whether the patch carries no fields.
func (p SessionPatch) IsZero() bool {
	return p.Scene == nil &&
		p.Locked == nil &&
		p.LensCharges == nil &&
		p.StudentID == nil &&
		p.Difficulty == nil &&
		p.Inventory == nil &&
		p.Suspects == nil
}

// Apply copies the patch's fields onto s, clamping lens charges into their
// legal range. The version is not touched; only the store assigns versions.
func (p SessionPatch) Apply(s *Session) {
	if p.Scene != nil {
		s.Scene = *p.Scene
	}
	if p.Locked != nil {
		s.Locked = *p.Locked
	}
	if p.LensCharges != nil {
		s.LensCharges = ClampLensCharges(*p.LensCharges)
	}
	if p.StudentID != nil {
		s.StudentID = *p.StudentID
	}
	if p.Difficulty != nil {
		s.Difficulty = *p.Difficulty
	}
	if p.Inventory != nil {
		s.Inventory = *p.Inventory
	}
	if p.Suspects != nil {
		s.Suspects = *p.Suspects
	}
}

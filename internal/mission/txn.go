package mission

import (
	"time"
)

// Txn is one edit against the live mission. The pre-edit item list is kept
// as a deep copy and put back wholesale on rollback.
type Txn struct {
	m          *Manager
	mission    *Mission
	items      []Item
	modifiedAt time.Time
	lastAction *Item
	done       bool
}

// Commit validates the edited mission. An invalid mission is rolled back and
// ok is false; the result explains why.
func (t *Txn) Commit() (Result, bool) {
	if t.done {
		return Result{Valid: true}, true
	}
	res := Validate(t.m.mission, t.m.mode, t.m.rules, ValidateOptions{Home: t.m.home})
	if !res.Valid {
		t.Rollback()
		return res, false
	}
	t.done = true
	return res, true
}

// Rollback restores the snapshot. It is a no-op after Commit.
func (t *Txn) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.m.mission = t.mission
	t.mission.Items = t.items
	t.mission.ModifiedAt = t.modifiedAt
	t.m.lastAction = t.lastAction
}

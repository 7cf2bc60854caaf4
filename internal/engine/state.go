// Package engine drives backup and restore runs: incremental queries against
// the local store, record conversion, remote folder transfer and the
// watermark consistency model.
package engine

import (
	"time"

	"github.com/smsvault/smsvault/internal/bus"
	"github.com/smsvault/smsvault/internal/category"
)

// Phase is one step of a run's lifecycle.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseLogin
	PhaseCalc
	PhaseBackup
	PhaseRestore
	PhaseUpdatingThreads
	PhaseFinishedBackup
	PhaseFinishedRestore
	PhaseCanceledBackup
	PhaseCanceledRestore
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseInitial:         "initial",
	PhaseLogin:           "login",
	PhaseCalc:            "calc",
	PhaseBackup:          "backup",
	PhaseRestore:         "restore",
	PhaseUpdatingThreads: "updating_threads",
	PhaseFinishedBackup:  "finished_backup",
	PhaseFinishedRestore: "finished_restore",
	PhaseCanceledBackup:  "canceled_backup",
	PhaseCanceledRestore: "canceled_restore",
	PhaseError:           "error",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether a run in this phase has ended.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseFinishedBackup, PhaseFinishedRestore,
		PhaseCanceledBackup, PhaseCanceledRestore, PhaseError:
		return true
	}
	return false
}

// State is an immutable snapshot of a run, published on every phase change.
type State struct {
	Phase    Phase
	Current  int
	Total    int
	Category category.Type
	Err      error
}

// Event kinds for published state snapshots.
const (
	EventBackupState  = "backup.state"
	EventRestoreState = "restore.state"
)

func publish(b *bus.Bus, kind string, s State) {
	if b == nil {
		return
	}
	b.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: s})
}

func errorState(err error) State {
	return State{Phase: PhaseError, Err: err}
}

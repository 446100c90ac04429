package dispatch

import (
	"errors"
	"fmt"

	"github.com/pulsepoint/eris-api/models"
)

// SetConnectivity records whether the link to the central system is up.
// Coming online with unsynced care records schedules one reconciliation
// after the sync delay. Going offline cancels a pending reconciliation, so a
// flap never syncs half a batch; the next time connectivity returns a new
// one is scheduled. Setting the current value again changes nothing.
func (e *Engine) SetConnectivity(online bool) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Online == online {
		return e.state.Clone()
	}
	s, _ := e.applyLocked("SetConnectivity", func(tx *txn) error {
		tx.Online = online
		return nil
	})

	if !online {
		e.cancelSyncLocked()
		e.log.Infow("connectivity lost, pending sync cancelled")
		return s
	}
	if n := e.state.UnsyncedPCRs(); n > 0 {
		e.scheduleSyncLocked()
		e.log.Infow("connectivity restored, sync scheduled", "unsynced", n, "delay", e.syncDelay)
	}
	return s
}

// SyncPending reports whether a reconciliation is scheduled
func (e *Engine) SyncPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil
}

// Reconcile marks every unsynced care record as synced right away and
// returns how many were touched. Records already synced are left alone and
// an engine with nothing to sync records nothing.
func (e *Engine) Reconcile() (int, State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Online {
		return 0, e.state.Clone(), ErrOffline
	}
	e.cancelSyncLocked()
	return e.reconcileLocked()
}

func (e *Engine) scheduleSyncLocked() {
	e.cancelSyncLocked()
	gen := e.generation
	e.pending = e.clock.AfterFunc(e.syncDelay, func() { e.runScheduledSync(gen) })
}

// cancelSyncLocked stops the pending timer. Bumping the generation also voids
// a timer that already fired and is waiting for the lock.
func (e *Engine) cancelSyncLocked() {
	e.generation++
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

func (e *Engine) runScheduledSync(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || !e.state.Online {
		return
	}
	e.pending = nil
	n, _, err := e.reconcileLocked()
	if err != nil {
		e.log.Errorw("scheduled sync failed", "error", err)
		return
	}
	e.log.Infow("scheduled sync finished", "synced", n)
}

func (e *Engine) reconcileLocked() (int, State, error) {
	n := 0
	s, err := e.applyLocked("Reconcile", func(tx *txn) error {
		n = tx.UnsyncedPCRs()
		if n == 0 {
			return errNothingToSync
		}
		pcrs := make([]models.PatientCareRecord, len(tx.PCRs))
		for i, p := range tx.PCRs {
			p.IsSynced = true
			pcrs[i] = p
		}
		tx.PCRs = pcrs
		tx.audit(SystemActor, ActionSystemSync, fmt.Sprintf("Synced %d offline record(s)", n))
		return nil
	})
	if errors.Is(err, errNothingToSync) {
		return 0, s, nil
	}
	return n, s, err
}

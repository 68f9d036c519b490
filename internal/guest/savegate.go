package guest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Save-gate states. One pending action at a time moves
// Idle → PendingSignup → {Migrating → Idle | Idle}.
type GateState int

const (
	StateIdle GateState = iota
	StatePendingSignup
	StateMigrating
)

func (s GateState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingSignup:
		return "pending_signup"
	case StateMigrating:
		return "migrating"
	default:
		return "unknown"
	}
}

// Action is the continuation of a guarded guest action, run after a
// successful signup and migration.
type Action func(ctx context.Context) error

// ErrNoPendingAction is returned when a signup outcome arrives with no
// guarded action pending.
var ErrNoPendingAction = errors.New("no pending save-gate action")

// ErrMigrationInProgress guards against the same pending action
// triggering migration twice.
var ErrMigrationInProgress = errors.New("migration already in progress")

// SaveGate intercepts a guest's mutating actions and gates them behind
// signup. It holds at most one pending action with its trigger context
// (e.g. "prompt_limit", "first_enhancement") used to tailor the upsell.
type SaveGate struct {
	mu      sync.Mutex
	state   GateState
	pending Action
	trigger string
	store   *Store
}

// NewSaveGate creates a SaveGate draining the given local store on
// signup.
func NewSaveGate(store *Store) *SaveGate {
	return &SaveGate{state: StateIdle, store: store}
}

// State returns the current gate state.
func (g *SaveGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Trigger returns the trigger context of the pending action, if any.
func (g *SaveGate) Trigger() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trigger
}

// Intercept records a guarded action and moves the gate to
// PendingSignup. A second intercept while one is pending replaces the
// recorded action but keeps the gate pending; during migration it is
// rejected.
func (g *SaveGate) Intercept(action Action, trigger string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateMigrating {
		return ErrMigrationInProgress
	}
	g.state = StatePendingSignup
	g.pending = action
	g.trigger = trigger

	log.Debug().Str("trigger", trigger).Msg("Save-gate intercepted guest action")
	return nil
}

// SignupSucceeded fires once an authenticated identity is available for
// the pending action. It migrates the local store into the backend, runs
// the recorded continuation, and returns to Idle. On full migration
// success the local store has been cleared; on any migration error the
// work is left intact for retry. The pending action is cleared either
// way, and a concurrent second call cannot start a second migration.
func (g *SaveGate) SignupSucceeded(ctx context.Context, userID, teamID string, persist PersistFunc) (*MigrationResult, error) {
	g.mu.Lock()
	if g.state == StateMigrating {
		g.mu.Unlock()
		return nil, ErrMigrationInProgress
	}
	if g.state != StatePendingSignup {
		g.mu.Unlock()
		return nil, ErrNoPendingAction
	}
	action := g.pending
	g.state = StateMigrating
	g.mu.Unlock()

	result, migErr := g.store.Migrate(ctx, userID, teamID, persist)

	// Completion clears the pending action regardless of outcome.
	g.mu.Lock()
	g.state = StateIdle
	g.pending = nil
	g.trigger = ""
	g.mu.Unlock()

	if migErr != nil {
		return result, fmt.Errorf("migrate guest work: %w", migErr)
	}

	if action != nil {
		if err := action(ctx); err != nil {
			log.Warn().Err(err).Msg("Deferred save-gate action failed after signup")
			return result, fmt.Errorf("run deferred action: %w", err)
		}
	}
	return result, nil
}

// SignupFailed records a failed sign-in attempt. The gate stays in
// PendingSignup with the same pending action so the guest can retry.
func (g *SaveGate) SignupFailed(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StatePendingSignup {
		return
	}
	log.Warn().Err(err).Str("trigger", g.trigger).Msg("Sign-in failed, keeping pending save action")
}

// ContinueWithoutSaving discards the pending action without running it.
// Local work is kept.
func (g *SaveGate) ContinueWithoutSaving() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StatePendingSignup {
		return
	}
	g.state = StateIdle
	g.pending = nil
	g.trigger = ""
}

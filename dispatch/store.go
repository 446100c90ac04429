package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/models"
)

// Storage keys, one per collection plus the dark mode preference
const (
	UsersKey    = "pulsepoint_eris_users"
	CallsKey    = "pulsepoint_eris_calls"
	TeamsKey    = "pulsepoint_eris_teams"
	PCRsKey     = "pulsepoint_eris_pcrs"
	ScheduleKey = "pulsepoint_eris_schedule"
	AuditLogKey = "pulsepoint_eris_audit_log"
	DarkModeKey = "pulsepoint_eris_dark_mode"
)

// Keys lists every key the engine persists
var Keys = []string{UsersKey, CallsKey, TeamsKey, PCRsKey, ScheduleKey, AuditLogKey, DarkModeKey}

// Gateway is the key-value store the engine persists its state through.
// Load reports false when the key has never been saved.
type Gateway interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// LoadState reads the engine state from gw. A key that was never saved takes
// its value from the seed dataset. If any key cannot be read or decoded the
// whole state falls back to the seed and the error is returned alongside it:
// a partly corrupt snapshot is never trusted. Teams are rehydrated against
// the loaded users.
func LoadState(ctx context.Context, gw Gateway, now time.Time) (State, error) {
	seed := Seed(now)
	var s State

	targets := []struct {
		key  string
		dst  interface{}
		fill func()
	}{
		{UsersKey, &s.Users, func() { s.Users = seed.Users }},
		{CallsKey, &s.Calls, func() { s.Calls = seed.Calls }},
		{TeamsKey, &s.Teams, func() { s.Teams = seed.Teams }},
		{PCRsKey, &s.PCRs, func() { s.PCRs = seed.PCRs }},
		{ScheduleKey, &s.Schedule, func() { s.Schedule = seed.Schedule }},
		{AuditLogKey, &s.AuditLog, func() { s.AuditLog = seed.AuditLog }},
		{DarkModeKey, &s.DarkMode, func() { s.DarkMode = seed.DarkMode }},
	}

	for _, t := range targets {
		raw, ok, err := gw.Load(ctx, t.key)
		if err != nil {
			return seed, fmt.Errorf("failed to load %s: %w", t.key, err)
		}
		if !ok {
			t.fill()
			continue
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			return seed, fmt.Errorf("failed to decode %s: %w", t.key, err)
		}
	}

	s.Online = seed.Online
	if s.PCRs == nil {
		s.PCRs = []models.PatientCareRecord{}
	}
	s.Users, s.Teams = Rehydrate(s.Users, s.Teams)
	return s, nil
}

// SaveState writes every persisted key of s to gw. All keys are attempted;
// the errors of the failed ones are joined.
func SaveState(ctx context.Context, gw Gateway, s State) error {
	values := map[string]interface{}{
		UsersKey:    s.Users,
		CallsKey:    s.Calls,
		TeamsKey:    s.Teams,
		PCRsKey:     s.PCRs,
		ScheduleKey: s.Schedule,
		AuditLogKey: s.AuditLog,
		DarkModeKey: s.DarkMode,
	}

	var errs []error
	for _, key := range Keys {
		b, err := json.Marshal(values[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to encode %s: %w", key, err))
			continue
		}
		if err := gw.Save(ctx, key, b); err != nil {
			errs = append(errs, fmt.Errorf("failed to save %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// PersistHook returns a commit hook that saves the committed state to gw.
// A failed save is logged; the command has already been applied.
func PersistHook(gw Gateway, timeout time.Duration) CommitHook {
	return func(c Commit) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := SaveState(ctx, gw, c.State); err != nil {
			zap.S().Errorw("failed to persist state",
				"command", c.Command,
				"error", err)
		}
	}
}

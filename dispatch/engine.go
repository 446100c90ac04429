package dispatch

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/models"
)

// DefaultSyncDelay is how long reconciliation waits after connectivity returns
const DefaultSyncDelay = 2 * time.Second

// Commit describes one applied command
type Commit struct {
	Command string
	State   State
	// Entries holds the audit entries the command appended, oldest first
	Entries []models.AuditLogEntry
}

// CommitHook observes every applied command. Hooks run in command order while
// the engine is locked and must not call back into the engine.
type CommitHook func(Commit)

// Engine is the dispatch orchestrator. It owns the aggregate state and is the
// only way to change it. Commands run one at a time behind a single lock;
// each one works on a copy of the state and either replaces the state as a
// whole, with its audit entries, or changes nothing.
type Engine struct {
	mu    sync.Mutex
	state State
	clock Clock
	log   *zap.SugaredLogger
	hooks []CommitHook

	syncDelay  time.Duration
	pending    Timer
	generation uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger, zap.S() by default
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSyncDelay sets the delay between connectivity returning and reconciliation
func WithSyncDelay(d time.Duration) Option {
	return func(e *Engine) { e.syncDelay = d }
}

// WithCommitHook registers a hook run after every applied command
func WithCommitHook(h CommitHook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, h) }
}

// NewEngine creates an engine owning a copy of initial. Member lists are
// rebuilt from the users. If the engine starts online with unsynced care
// records a reconciliation is scheduled right away.
func NewEngine(initial State, opts ...Option) *Engine {
	e := &Engine{
		state:     initial.Clone(),
		clock:     systemClock{},
		log:       zap.S(),
		syncDelay: DefaultSyncDelay,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.state.Users, e.state.Teams = Rehydrate(e.state.Users, e.state.Teams)
	if e.state.PCRs == nil {
		e.state.PCRs = []models.PatientCareRecord{}
	}

	e.mu.Lock()
	if e.state.Online && e.state.UnsyncedPCRs() > 0 {
		e.scheduleSyncLocked()
	}
	e.mu.Unlock()
	return e
}

// OnCommit registers a hook run after every applied command
func (e *Engine) OnCommit(h CommitHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, h)
}

// Snapshot returns a copy of the current state
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Read runs fn against a copy of the current state while holding the engine
// lock, so no command commits until fn returns. Like hooks, fn must not call
// back into the engine.
func (e *Engine) Read(fn func(State) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state.Clone())
}

// txn is the working copy a command mutates
type txn struct {
	State
	now     time.Time
	entries []models.AuditLogEntry
}

func (t *txn) audit(actor, action, details string) {
	t.AuditLog = RecordAudit(t.AuditLog, actor, action, details, t.now)
	t.entries = append(t.entries, t.AuditLog[0])
}

func (e *Engine) apply(command string, fn func(tx *txn) error) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(command, fn)
}

func (e *Engine) applyLocked(command string, fn func(tx *txn) error) (State, error) {
	tx := &txn{State: e.state.Clone(), now: e.clock.Now()}
	if err := fn(tx); err != nil {
		e.log.Debugw("command not applied", "command", command, "error", err)
		return e.state.Clone(), err
	}

	e.state = tx.State
	commit := Commit{Command: command, State: e.state.Clone(), Entries: tx.entries}
	for _, h := range e.hooks {
		h(commit)
	}
	e.log.Debugw("command applied", "command", command, "auditEntries", len(tx.entries))
	return e.state.Clone(), nil
}

// LogCall records a new pending call. A zero priority takes the default.
func (e *Engine) LogCall(actor string, in models.CallInput) (models.EmergencyCall, State, error) {
	var created models.EmergencyCall
	s, err := e.apply("LogCall", func(tx *txn) error {
		if strings.TrimSpace(in.Location) == "" {
			return fmt.Errorf("%w: location is required", ErrInvalidInput)
		}
		p := in.Priority
		if p == 0 {
			p = models.PriorityDefault
		}
		if !p.Valid() {
			return fmt.Errorf("%w: priority %d out of range", ErrInvalidInput, p)
		}

		created = models.EmergencyCall{
			ID:          NextCallID(tx.Calls),
			Timestamp:   tx.now,
			CallerName:  in.CallerName,
			Phone:       in.Phone,
			Location:    in.Location,
			Landmark:    in.Landmark,
			Description: in.Description,
			Priority:    p,
			Status:      models.CallPending,
		}
		tx.Calls = append([]models.EmergencyCall{created}, tx.Calls...)
		tx.audit(actor, ActionCallLogged, fmt.Sprintf("ID: %d, Loc: %s", created.ID, created.Location))
		return nil
	})
	return created, s, err
}

// UpdateCallStatus moves a call to status. The team given, or the team the
// call is assigned to when teamID is nil, takes the matching team status in
// the same step.
func (e *Engine) UpdateCallStatus(actor string, callID int, status models.CallStatus, teamID *int) (State, error) {
	return e.apply("UpdateCallStatus", func(tx *txn) error {
		ci := indexOfCall(tx.Calls, callID)
		if ci < 0 {
			return ErrNotFound
		}
		call := tx.Calls[ci]

		ti := -1
		if teamID != nil {
			if ti = indexOfTeam(tx.Teams, *teamID); ti < 0 {
				return ErrNotFound
			}
		} else if call.AssignedTeamID != nil {
			ti = indexOfTeam(tx.Teams, *call.AssignedTeamID)
		}

		next, err := ApplyStatus(call, status, tx.now)
		if err != nil {
			return err
		}
		tx.Calls[ci] = next
		tx.audit(actor, ActionCallStatusUpdated, fmt.Sprintf("ID: %d, New Status: %s", callID, status))

		if ti < 0 {
			return nil
		}
		if ts, ok := TeamStatusFor(status); ok {
			tx.Teams[ti].Status = ts
			tx.audit(actor, ActionTeamStatusUpdated, fmt.Sprintf("Team ID: %d, New Status: %s", tx.Teams[ti].ID, ts))
		}
		return nil
	})
}

// AssignTeam dispatches teamID to a call. The call becomes Dispatched and the
// team Dispatched in one step; a team the call was previously assigned to is
// released. Only the assignment is audited.
func (e *Engine) AssignTeam(actor string, callID, teamID int) (State, error) {
	return e.apply("AssignTeam", func(tx *txn) error {
		ci := indexOfCall(tx.Calls, callID)
		ti := indexOfTeam(tx.Teams, teamID)
		if ci < 0 || ti < 0 {
			return ErrNotFound
		}

		call := tx.Calls[ci]
		next, err := AssignTeam(call, teamID, tx.now)
		if err != nil {
			return err
		}
		tx.Calls[ci] = next
		tx.Teams[ti].Status = models.TeamDispatched

		details := fmt.Sprintf("Call ID: %d to Team ID: %d", callID, teamID)
		if prev := call.AssignedTeamID; prev != nil && *prev != teamID {
			if pi := indexOfTeam(tx.Teams, *prev); pi >= 0 {
				tx.Teams[pi].Status = models.TeamAvailable
				details += fmt.Sprintf(", released Team ID: %d", *prev)
			}
		}
		tx.audit(actor, ActionTeamAssigned, details)
		return nil
	})
}

// FilePCR files the care record for a call. A call takes one record only.
// The record counts as synced when filed while online.
func (e *Engine) FilePCR(actor string, callID int, in models.PCRInput) (models.PatientCareRecord, State, error) {
	var created models.PatientCareRecord
	s, err := e.apply("FilePCR", func(tx *txn) error {
		ci := indexOfCall(tx.Calls, callID)
		if ci < 0 {
			return ErrNotFound
		}
		if tx.Calls[ci].PCRID != nil {
			return ErrDuplicateFiling
		}
		if _, ok := tx.PCRForCall(callID); ok {
			return ErrDuplicateFiling
		}

		created = models.PatientCareRecord{
			ID:                     NextPCRID(tx.PCRs),
			CallID:                 callID,
			PatientVitals:          in.PatientVitals,
			TreatmentsAdministered: in.TreatmentsAdministered,
			Medications:            in.Medications,
			TransferDestination:    in.TransferDestination,
			Notes:                  in.Notes,
			IsSynced:               tx.Online,
		}
		tx.PCRs = append(tx.PCRs, created)
		tx.Calls[ci].PCRID = intPtr(created.ID)
		tx.audit(actor, ActionPCRFiled, fmt.Sprintf("Call ID: %d", callID))
		return nil
	})
	return created, s, err
}

// UpdateTeam applies a supervisor edit of a team and its roster
func (e *Engine) UpdateTeam(actor string, update models.TeamUpdate) (State, error) {
	return e.apply("UpdateTeam", func(tx *txn) error {
		users, teams, err := ReplaceTeamRoster(tx.Users, tx.Teams, update)
		if err != nil {
			return err
		}
		tx.Users, tx.Teams = users, teams
		tx.audit(actor, ActionTeamUpdated, fmt.Sprintf("Team ID: %d", update.ID))
		return nil
	})
}

// AssignUserToTeam moves a user to teamID, or out of any team when teamID is nil
func (e *Engine) AssignUserToTeam(actor string, userID int, teamID *int) (State, error) {
	return e.apply("AssignUserToTeam", func(tx *txn) error {
		users, teams, err := ReassignUser(tx.Users, tx.Teams, userID, teamID)
		if err != nil {
			return err
		}
		tx.Users, tx.Teams = users, teams
		if teamID == nil {
			tx.audit(actor, ActionUserUnassigned, fmt.Sprintf("User ID: %d", userID))
		} else {
			tx.audit(actor, ActionUserAssigned, fmt.Sprintf("User ID: %d to Team ID: %d", userID, *teamID))
		}
		return nil
	})
}

// UpdateUserStatus sets the duty status of an EMT
func (e *Engine) UpdateUserStatus(actor string, userID int, status models.EmtStatus) (State, error) {
	return e.apply("UpdateUserStatus", func(tx *txn) error {
		ui := indexOfUser(tx.Users, userID)
		if ui < 0 {
			return ErrNotFound
		}
		if !status.Valid() {
			return fmt.Errorf("%w: unknown duty status %q", ErrInvalidInput, status)
		}
		if tx.Users[ui].Role != models.RoleEMT {
			return fmt.Errorf("%w: duty status only applies to EMTs", ErrInvalidInput)
		}

		st := status
		tx.Users[ui].Status = &st
		tx.Teams = SyncMembers(tx.Users, tx.Teams)
		tx.audit(actor, ActionUserStatusUpdated, fmt.Sprintf("User ID: %d, New Status: %s", userID, status))
		return nil
	})
}

// UpdateTeamStatus sets a team status directly, for supervisors correcting the board
func (e *Engine) UpdateTeamStatus(actor string, teamID int, status models.TeamStatus) (State, error) {
	return e.apply("UpdateTeamStatus", func(tx *txn) error {
		ti := indexOfTeam(tx.Teams, teamID)
		if ti < 0 {
			return ErrNotFound
		}
		if !status.Valid() {
			return fmt.Errorf("%w: unknown team status %q", ErrInvalidInput, status)
		}
		tx.Teams[ti].Status = status
		tx.audit(actor, ActionTeamStatusUpdated, fmt.Sprintf("Team ID: %d, New Status: %s", teamID, status))
		return nil
	})
}

// UpdateSchedule replaces the weekly schedule as given
func (e *Engine) UpdateSchedule(actor string, schedule models.Schedule) (State, error) {
	return e.apply("UpdateSchedule", func(tx *txn) error {
		tx.Schedule = append(models.Schedule(nil), schedule...)
		tx.audit(actor, ActionScheduleUpdated, "")
		return nil
	})
}

// SignUp adds a user. EMTs start off duty.
func (e *Engine) SignUp(in models.SignUpInput) (models.User, State, error) {
	var created models.User
	s, err := e.apply("SignUp", func(tx *txn) error {
		username := strings.TrimSpace(in.Username)
		if username == "" {
			return fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		if !in.Role.Valid() {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
		}
		if _, taken := tx.UserByUsername(username); taken {
			return ErrUsernameTaken
		}
		if in.TeamID != nil && indexOfTeam(tx.Teams, *in.TeamID) < 0 {
			return ErrNotFound
		}

		created = models.User{ID: NextUserID(tx.Users), Username: username, Role: in.Role}
		if in.TeamID != nil {
			created.TeamID = intPtr(*in.TeamID)
		}
		if in.Role == models.RoleEMT {
			off := models.EmtOffDuty
			created.Status = &off
		}
		tx.Users = append(tx.Users, created)
		tx.Teams = SyncMembers(tx.Users, tx.Teams)
		tx.audit(username, ActionUserSignedUp, fmt.Sprintf("New user: %s", username))
		return nil
	})
	return created, s, err
}

// Login looks up the user signing in and audits the login
func (e *Engine) Login(username string) (models.User, State, error) {
	var user models.User
	s, err := e.apply("Login", func(tx *txn) error {
		u, ok := tx.UserByUsername(username)
		if !ok {
			return ErrNotFound
		}
		user = u
		tx.audit(username, ActionUserLogin, "")
		return nil
	})
	return user, s, err
}

// Logout audits a user signing out
func (e *Engine) Logout(username string) (State, error) {
	return e.apply("Logout", func(tx *txn) error {
		if _, ok := tx.UserByUsername(username); !ok {
			return ErrNotFound
		}
		tx.audit(username, ActionUserLogout, "")
		return nil
	})
}

// Backup audits a manual backup. The commit hooks write the state out.
func (e *Engine) Backup(actor string) (State, error) {
	return e.apply("Backup", func(tx *txn) error {
		tx.audit(actor, ActionBackup, "")
		return nil
	})
}

// SetDarkMode stores the dark mode preference
func (e *Engine) SetDarkMode(on bool) (State, error) {
	return e.apply("SetDarkMode", func(tx *txn) error {
		tx.DarkMode = on
		return nil
	})
}

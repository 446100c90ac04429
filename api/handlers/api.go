package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/advisory"
	"github.com/pulsepoint/eris-api/api"
	"github.com/pulsepoint/eris-api/config"
	"github.com/pulsepoint/eris-api/databases"
	"github.com/pulsepoint/eris-api/dispatch"
	"github.com/pulsepoint/eris-api/logging"
	"github.com/pulsepoint/eris-api/models"
)

// App stores the router, the engine and the store, so they can be reused
type App struct {
	Router  *mux.Router
	Config  config.Config
	Engine  *dispatch.Engine
	Store   databases.StateDatabase
	Advisor advisory.Advisor
	Auth    *api.MiddlewareAuth
	Hub     *StateHub

	closeStore func(context.Context) error
}

// New creates a new mux router and all the routes. Engine must be set.
func (a *App) New() *mux.Router {
	if a.Auth == nil {
		a.Auth = &api.MiddlewareAuth{
			Users:  a.lookupUser,
			Secret: []byte(a.Config.JWTSecret),
		}
		a.Auth.SetupGoGuardian()
	}
	if a.Hub == nil {
		a.Hub = NewStateHub(a.Engine.Read)
	}
	if a.Advisor == nil {
		a.Advisor = advisory.Disabled{}
	}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	c := Call{Engine: a.Engine, Advisor: a.Advisor, Debouncer: advisory.NewDebouncer(a.Advisor, advisory.DefaultDebounce)}
	t := Team{Engine: a.Engine}
	u := User{Engine: a.Engine, Auth: a.Auth}
	ad := Admin{Engine: a.Engine}
	rep := Report{Engine: a.Engine}
	p := Preferences{Engine: a.Engine}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/metrics", api.MetricsHandler()).Methods("GET")
	r.Handle("/ws/state", tokenFromQuery(a.Auth.Middleware(a.Hub))).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	if a.Config.RequestTimeout > 0 {
		apiCreate.Use(api.TimeoutMiddleware(a.Config.RequestTimeout))
	}

	dispatchers := role(models.RoleDispatcher, models.RoleSupervisor, models.RoleAdmin)
	field := role(models.RoleDispatcher, models.RoleEMT, models.RoleSupervisor, models.RoleAdmin)
	crew := role(models.RoleEMT, models.RoleSupervisor, models.RoleAdmin)
	supervisors := role(models.RoleSupervisor, models.RoleAdmin)
	admins := role(models.RoleAdmin)
	analysts := role(models.RoleSupervisor, models.RoleCOO, models.RoleAdmin)
	anyone := role(models.RoleDispatcher, models.RoleEMT, models.RoleSupervisor, models.RoleCOO, models.RoleAdmin)

	apiCreate.Handle("/auth/token", a.Auth.Middleware(http.HandlerFunc(u.CreateTokenHandler))).Methods("POST")
	apiCreate.Handle("/auth/logout", a.Auth.Middleware(http.HandlerFunc(u.LogoutHandler))).Methods("DELETE")
	apiCreate.Handle("/users/signup", http.HandlerFunc(u.SignUpHandler)).Methods("POST")

	apiCreate.Handle("/state", a.protect(anyone, ad.StateHandler)).Methods("GET")

	apiCreate.Handle("/calls", a.protect(anyone, c.CallsHandler)).Methods("GET")
	apiCreate.Handle("/calls", a.protect(dispatchers, c.CreateCallHandler)).Methods("POST")
	apiCreate.Handle("/calls/suggest-priority", a.protect(dispatchers, c.SuggestPriorityHandler)).Methods("POST")
	apiCreate.Handle("/call/{call_id}", a.protect(anyone, c.CallByIDHandler)).Methods("GET")
	apiCreate.Handle("/call/{call_id}/status", a.protect(field, c.UpdateCallStatusHandler)).Methods("PUT")
	apiCreate.Handle("/call/{call_id}/assign", a.protect(dispatchers, c.AssignTeamHandler)).Methods("PUT")
	apiCreate.Handle("/call/{call_id}/pcr", a.protect(crew, c.FilePCRHandler)).Methods("POST")

	apiCreate.Handle("/teams", a.protect(anyone, t.TeamsHandler)).Methods("GET")
	apiCreate.Handle("/teams/available", a.protect(anyone, t.AvailableTeamsHandler)).Methods("GET")
	apiCreate.Handle("/team/{team_id}", a.protect(supervisors, t.UpdateTeamHandler)).Methods("PUT")
	apiCreate.Handle("/team/{team_id}/status", a.protect(supervisors, t.UpdateTeamStatusHandler)).Methods("PUT")
	apiCreate.Handle("/team/{team_id}/active-call", a.protect(anyone, t.ActiveCallHandler)).Methods("GET")

	apiCreate.Handle("/user/{user_id}/team", a.protect(supervisors, u.AssignTeamHandler)).Methods("PUT")
	apiCreate.Handle("/user/{user_id}/status", a.protect(crew, u.UpdateStatusHandler)).Methods("PUT")

	apiCreate.Handle("/schedule", a.protect(anyone, t.ScheduleHandler)).Methods("GET")
	apiCreate.Handle("/schedule", a.protect(supervisors, t.UpdateScheduleHandler)).Methods("PUT")

	apiCreate.Handle("/connectivity", a.protect(anyone, ad.ConnectivityHandler)).Methods("PUT")
	apiCreate.Handle("/sync", a.protect(supervisors, ad.SyncHandler)).Methods("POST")
	apiCreate.Handle("/audit-log", a.protect(analysts, ad.AuditLogHandler)).Methods("GET")
	apiCreate.Handle("/admin/backup", a.protect(admins, ad.BackupHandler)).Methods("POST")

	apiCreate.Handle("/preferences/dark-mode", a.protect(anyone, p.DarkModeHandler)).Methods("GET")
	apiCreate.Handle("/preferences/dark-mode", a.protect(anyone, p.SetDarkModeHandler)).Methods("PUT")

	apiCreate.Handle("/reports/open-incidents.csv", a.protect(role(models.RoleDispatcher, models.RoleSupervisor, models.RoleCOO, models.RoleAdmin), rep.OpenIncidentsCSVHandler)).Methods("GET")
	apiCreate.Handle("/reports/open-incidents.xlsx", a.protect(analysts, rep.OpenIncidentsXLSXHandler)).Methods("GET")
	apiCreate.Handle("/reports/audit-log.csv", a.protect(analysts, rep.AuditLogCSVHandler)).Methods("GET")
	apiCreate.Handle("/reports/sla", a.protect(analysts, rep.SLAHandler)).Methods("GET")
	apiCreate.Handle("/reports/eod", a.protect(analysts, rep.EODHandler)).Methods("GET")
	apiCreate.Handle("/reports/supervisor", a.protect(analysts, rep.SupervisorHandler)).Methods("GET")
	apiCreate.Handle("/reports/exceptions", a.protect(analysts, rep.ExceptionsHandler)).Methods("GET")

	return r
}

// Initialize is invoked by main to open the state store, load the state and create a router
func (a *App) Initialize(ctx context.Context) error {
	store, closeStore, err := databases.Open(ctx, &a.Config)
	if err != nil {
		// if we fail to open the store, then kill the pod
		zap.S().Errorw("failed to open state store", "driver", a.Config.StoreDriver, "error", err)
		return err
	}
	a.Store = api.InstrumentStore(store)
	a.closeStore = closeStore

	loadCtx, cancel := api.WithStoreTimeout(ctx)
	defer cancel()
	state, err := dispatch.LoadState(loadCtx, a.Store, time.Now())
	if err != nil {
		zap.S().Errorw("state could not be loaded, starting from the seed dataset", "error", err)
	}

	a.Engine = dispatch.NewEngine(state,
		dispatch.WithLogger(logging.New("engine")),
		dispatch.WithSyncDelay(a.Config.SyncDelay),
		dispatch.WithCommitHook(dispatch.PersistHook(a.Store, api.StoreTimeout)),
		dispatch.WithCommitHook(api.MetricsCommitHook),
	)
	a.Hub = NewStateHub(a.Engine.Read)
	a.Engine.OnCommit(a.Hub.Broadcast)

	if a.Config.OpenAIKey != "" {
		a.Advisor = advisory.NewOpenAIAdvisor(a.Config.OpenAIKey, a.Config.OpenAIModel, logging.New("advisor"))
	} else {
		zap.S().Warnw("OPENAI_API_KEY not set, priority suggestions are disabled")
	}

	// initialize api router
	a.initializeRoutes()
	zap.S().Infow("eris-api initialized", "driver", a.Config.StoreDriver, "calls", len(state.Calls), "teams", len(state.Teams))
	return nil
}

// Close shuts the websocket feed and releases the state store
func (a *App) Close(ctx context.Context) error {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore(ctx)
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func (a *App) lookupUser(username string) (models.User, bool) {
	return a.Engine.Snapshot().UserByUsername(username)
}

// protect puts a handler behind authentication and a role check
func (a *App) protect(check func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	return a.Auth.Middleware(check(h))
}

func role(roles ...models.UserRole) func(http.Handler) http.Handler {
	return api.RequireRole(roles...)
}

// tokenFromQuery lets browsers, which cannot set headers on a websocket
// handshake, pass the bearer token as ?token=
func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// decodeBody decodes the JSON request body into v, answering 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return false
	}
	return true
}

// commandError answers a rejected engine command with the matching status
func commandError(message string, w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, dispatch.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, dispatch.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, dispatch.ErrInvalidTransition),
		errors.Is(err, dispatch.ErrDuplicateFiling),
		errors.Is(err, dispatch.ErrUsernameTaken):
		code = http.StatusConflict
	case errors.Is(err, dispatch.ErrOffline):
		code = http.StatusServiceUnavailable
	}
	config.ErrorStatus(message, code, w, err)
}

// actor names the authenticated caller in audit entries
func actor(r *http.Request) string {
	if u, ok := api.ActorFromContext(r.Context()); ok {
		return u.Username
	}
	return dispatch.SystemActor
}

func badID(name string, w http.ResponseWriter, err error) {
	config.ErrorStatus(fmt.Sprintf("invalid %s", name), http.StatusBadRequest, w, err)
}

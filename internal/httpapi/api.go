package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"notevault.org/internal/auth"
	"notevault.org/internal/events"
	"notevault.org/internal/notes"
	"notevault.org/internal/obs"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options bundles the API's collaborators.
type Options struct {
	Auth       *auth.Service
	Notes      *notes.Service
	Events     events.Publisher
	ReadyProbe ReadyProbe
	Version    string

	// Rate limiting for the credential endpoints.
	RatePerSecond int
	RateBurst     int
}

// API is the HTTP surface over the auth core and its collaborators.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	notes      *notes.Service
	events     events.Publisher
	readyProbe ReadyProbe
	version    string
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       opts.Auth,
		notes:      opts.Notes,
		events:     opts.Events,
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
	}
	if a.events == nil {
		a.events = events.NopPublisher{}
	}

	perSecond, burst := opts.RatePerSecond, opts.RateBurst
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return RateLimit(h, perSecond, burst)
	}

	// Session endpoints. Credential-bearing ones sit behind the per-IP
	// limiter; logout requires an authenticated caller.
	a.mux.Handle("POST /v1/auth/register", limited(a.handleRegister))
	a.mux.Handle("POST /v1/auth/login", limited(a.handleLogin))
	a.mux.Handle("POST /v1/auth/refresh", limited(a.handleRefresh))
	a.mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)

	// User administration. The listing and role change declare their
	// required-role-set per endpoint.
	adminOnly := RequireRoles(auth.RoleAdmin)
	a.mux.Handle("GET /v1/users", adminOnly(http.HandlerFunc(a.handleListUsers)))
	a.mux.HandleFunc("GET /v1/users/{id}", a.handleGetUser)
	a.mux.HandleFunc("PUT /v1/users/{id}", a.handleUpdateUser)
	a.mux.HandleFunc("DELETE /v1/users/{id}", a.handleDeactivateUser)
	a.mux.Handle("PUT /v1/users/{id}/role", adminOnly(http.HandlerFunc(a.handleUpdateUserRole)))

	// Notes: any authenticated, active principal, scoped to the owner.
	a.mux.HandleFunc("POST /v1/notes", a.handleCreateNote)
	a.mux.HandleFunc("GET /v1/notes", a.handleListNotes)
	a.mux.HandleFunc("GET /v1/notes/{id}", a.handleGetNote)
	a.mux.HandleFunc("PUT /v1/notes/{id}", a.handleUpdateNote)
	a.mux.HandleFunc("DELETE /v1/notes/{id}", a.handleDeleteNote)

	// Admin group: one required-role-set declared for the whole subtree.
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /v1/admin/notes", a.handleAdminListNotes)
	adminMux.HandleFunc("POST /v1/admin/tokens/purge", a.handlePurgeTokens)
	a.mux.Handle("/v1/admin/", adminOnly(adminMux))

	// Operational endpoints.
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler chain for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "notevault-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "notevault-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// Package http serves the budgetwise JSON API: identity, the transaction ledger,
// budget limits and the derived dashboard.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetwise/internal/auth"
	"budgetwise/internal/cache"
	"budgetwise/internal/ledger"
	"budgetwise/internal/log"
)

type Options struct {
	Addr      string
	Store     ledger.Store
	Directory *auth.Directory
	Tokens    *auth.Tokens
	Logger    *log.Logger

	// Now is the clock every aggregation is computed against. Defaults to time.Now.
	Now func() time.Time

	SessionTTL         time.Duration
	MaxSessions        int
	RateLimitPerMinute int
}

type Server struct {
	http.Server

	store    ledger.Store
	tokens   *auth.Tokens
	now      func() time.Time
	started  time.Time
	sessions *sessionRegistry
	limiter  *rateLimiter
	sweeper  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware and returns a server ready to listen.
func NewServer(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 500
	}
	if opts.Directory == nil {
		opts.Directory = auth.NewDirectory()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{})
	}

	s := &Server{
		store:    opts.Store,
		tokens:   opts.Tokens,
		now:      opts.Now,
		started:  time.Now(),
		sessions: newSessionRegistry(opts.Store, opts.Directory, opts.Now, opts.MaxSessions, opts.SessionTTL),
		limiter:  newRateLimiter(opts.RateLimitPerMinute, nil),
	}
	s.sweeper = cache.NewManager(s.sessions.cache)
	s.sweeper.Start(time.Minute)
	s.limiter.startCleanup(5 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.requireAuth(s.handleSignOut))

	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("PUT /api/budgets/{category}", s.requireAuth(s.handleSetBudget))

	mux.HandleFunc("GET /api/dashboard", s.requireAuth(s.handleDashboard))

	var handler http.Handler = mux
	handler = s.limiter.limitMutations(handler)
	handler = securityHeaders(handler)
	handler = log.Middleware(opts.Logger, extractClientIP)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Shutdown stops background sweeps and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.sweeper.Stop()
		s.limiter.shutdown()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budgetwise/internal/auth"
	"budgetwise/internal/backend"
	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings the store when it supports it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK

	if p, ok := s.store.(backend.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			checks["store"] = "unavailable"
			status, code = "not_ready", ErrNotReady.StatusCode
		}
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"checks":   checks,
		"sessions": s.sessions.len(),
		"clients":  s.limiter.activeClients(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":        core.Categories(),
		"budget_categories": core.BudgetCategories(),
	})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, log.OpSignUp, func(p *auth.LocalProvider, req credentialsRequest) (*auth.User, error) {
		return p.SignUp(r.Context(), req.Email, req.Password)
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, log.OpSignIn, func(p *auth.LocalProvider, req credentialsRequest) (*auth.User, error) {
		return p.SignIn(r.Context(), req.Email, req.Password)
	})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, op string, fn func(*auth.LocalProvider, credentialsRequest) (*auth.User, error)) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.sessions.signIn(r.Context(), func(p *auth.LocalProvider) (*auth.User, error) {
		return fn(p, req)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, expires, err := s.tokens.Issue(*u)
	if err != nil {
		writeError(w, r, wrap(ErrInternalServer, err))
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "User authenticated",
		log.NewFields().WithComponent(log.ComponentAuth).WithOperation(op).WithUser(u.ID).Args()...)

	status := http.StatusOK
	if op == log.OpSignUp {
		status = http.StatusCreated
	}
	writeJSON(w, status, authResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      userResponse{ID: u.ID, Email: u.Email},
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if err := s.sessions.signOut(r.Context(), p.user.ID); err != nil {
		writeError(w, r, wrap(ErrInternalServer, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadedSession returns the caller's session with its ledger loaded.
func (s *Server) loadedSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, ErrUnauthorized)
		return nil, false
	}
	err := p.us.session.EnsureLoaded(r.Context())
	if errors.Is(err, session.ErrStaleLoad) {
		// Superseded by a concurrent load; retry once.
		err = p.us.session.EnsureLoaded(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return p.us.session, true
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadedSession(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": newTransactionList(snap.Transactions),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadedSession(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := req.toNewTransaction(s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := sess.AddTransaction(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.NewFields().WithComponent(log.ComponentLedger).WithOperation(log.OpCreate).
			WithTransaction(tx.ID, string(tx.Type), string(tx.Category), tx.Amount).Args()...)
	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadedSession(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := sess.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Transaction deleted", log.FieldTxID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadedSession(w, r)
	if !ok {
		return
	}
	writeBudgets(w, sess.Snapshot())
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadedSession(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c := core.Category(r.PathValue("category"))
	if err := sess.SetBudgetLimit(r.Context(), c, *req.Limit); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget limit updated",
		log.FieldCategory, c, log.FieldBudgetLimit, *req.Limit)
	writeBudgets(w, sess.Snapshot())
}

func writeBudgets(w http.ResponseWriter, snap session.Snapshot) {
	progress := core.SortProgress(snap.Aggregation.BudgetProgress)
	writeJSON(w, http.StatusOK, budgetsResponse{
		Budgets: progress,
		Total:   core.BudgetTotal(progress),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadedSession(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, newDashboardResponse(snap.Aggregation, snap.Now))
}

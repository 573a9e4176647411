package http

import (
	"context"
	"sync"
	"time"

	"budgetwise/internal/auth"
	"budgetwise/internal/cache"
	"budgetwise/internal/ledger"
	"budgetwise/internal/session"
)

// userSession pairs a client's identity provider with the session following it.
type userSession struct {
	provider *auth.LocalProvider
	session  *session.Session
	stop     func()
}

// sessionRegistry keeps one live session per signed-in user. Entries idle for
// longer than the TTL are dropped and reloaded from the store on the next
// request.
type sessionRegistry struct {
	mu    sync.Mutex
	cache *cache.LRUCache[*userSession]
	store ledger.Store
	dir   *auth.Directory
	now   func() time.Time
}

func newSessionRegistry(store ledger.Store, dir *auth.Directory, now func() time.Time, maxSessions int, ttl time.Duration) *sessionRegistry {
	return &sessionRegistry{
		cache: cache.NewLRUCache[*userSession](maxSessions, ttl, cache.WithEvictHook(func(_ string, us *userSession) {
			us.stop()
		})),
		store: store,
		dir:   dir,
		now:   now,
	}
}

// attach creates a session that follows provider from now on.
func (r *sessionRegistry) attach(ctx context.Context, provider *auth.LocalProvider) *userSession {
	sess := session.New(r.store, r.now)
	stop := sess.Watch(context.WithoutCancel(ctx), provider)
	return &userSession{provider: provider, session: sess, stop: stop}
}

// signIn runs fn against a fresh provider and, on success, makes it the user's
// current session.
func (r *sessionRegistry) signIn(ctx context.Context, fn func(*auth.LocalProvider) (*auth.User, error)) (*auth.User, error) {
	provider := auth.NewLocalProvider(r.dir)
	us := r.attach(ctx, provider)
	u, err := fn(provider)
	if err != nil {
		us.stop()
		return nil, err
	}

	r.mu.Lock()
	r.cache.Delete(u.ID)
	r.cache.Set(u.ID, us)
	r.mu.Unlock()
	return u, nil
}

// resume returns the cached session for a verified user, restoring one if it
// was evicted.
func (r *sessionRegistry) resume(ctx context.Context, u auth.User) *userSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if us, ok := r.cache.Get(u.ID); ok {
		return us
	}
	provider := auth.NewLocalProvider(r.dir)
	us := r.attach(ctx, provider)
	provider.Restore(u)
	r.cache.Set(u.ID, us)
	return us
}

// expire ends the user's session because the token lapsed.
func (r *sessionRegistry) expire(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if us, ok := r.cache.Get(userID); ok {
		us.provider.Expire()
		r.cache.Delete(userID)
	}
}

func (r *sessionRegistry) signOut(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	us, ok := r.cache.Get(userID)
	if !ok {
		return nil
	}
	err := us.provider.SignOut(ctx)
	r.cache.Delete(userID)
	return err
}

func (r *sessionRegistry) len() int {
	return r.cache.Len()
}

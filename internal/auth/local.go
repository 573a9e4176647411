package auth

import (
	"context"
	"sync"
)

var _ Provider = (*LocalProvider)(nil)

// LocalProvider holds the identity of a single client against a Directory.
type LocalProvider struct {
	dir *Directory

	mu      sync.Mutex
	current *User
	nextID  int
	subs    map[int]func(*User)
}

func NewLocalProvider(dir *Directory) *LocalProvider {
	return &LocalProvider{dir: dir, subs: map[int]func(*User){}}
}

func (p *LocalProvider) CurrentUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyUser(p.current)
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*User, error) {
	u, err := p.dir.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.set(&u)
	return copyUser(&u), nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	u, err := p.dir.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.set(&u)
	return copyUser(&u), nil
}

func (p *LocalProvider) SignOut(context.Context) error {
	p.set(nil)
	return nil
}

// Restore marks u as signed in without a password, for callers that already
// verified an access token.
func (p *LocalProvider) Restore(u User) {
	p.set(&u)
}

// Expire ends the session because its token lapsed.
func (p *LocalProvider) Expire() {
	p.set(nil)
}

// Subscribe registers fn and calls it right away with the current user.
func (p *LocalProvider) Subscribe(fn func(*User)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	current := copyUser(p.current)
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// set swaps the identity and notifies subscribers outside the lock. Setting the
// same user again is not a transition.
func (p *LocalProvider) set(u *User) {
	p.mu.Lock()
	if sameUser(p.current, u) {
		p.mu.Unlock()
		return
	}
	p.current = copyUser(u)
	subs := make([]func(*User), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(copyUser(u))
	}
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

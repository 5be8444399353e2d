// Package auth holds the client's authentication context.
//
// A Gate is created once by the application and handed to the components
// that depend on the signed-in user. Each component Acquires the gate with a
// teardown hook; when the user logs out or the server rejects the
// credentials, Drop runs every hook so no state derived from the old
// identity survives.
package auth

import (
	"context"
	"errors"
	"slices"
	"sync"
)

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

var (
	ErrBusy              = errors.New("authentication already in progress")
	ErrNotAuthenticating = errors.New("no authentication in progress")
)

// Credentials identify the signed-in user.
type Credentials struct {
	Token        string
	RefreshToken string
	UserID       string
	Email        string
	Offline      bool
}

type Teardown func(ctx context.Context)

type Gate struct {
	mu     sync.Mutex
	state  State
	creds  Credentials
	hooks  map[uint64]Teardown
	nextID uint64
	watch  []func(State)
}

func NewGate() *Gate {
	return &Gate{hooks: make(map[uint64]Teardown)}
}

// Acquire attaches a component. teardown runs on every Drop until the
// returned release func is called.
func (g *Gate) Acquire(teardown Teardown) (release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	id := g.nextID
	g.hooks[id] = teardown

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.hooks, id)
			g.mu.Unlock()
		})
	}
}

// Refs returns the number of attached components.
func (g *Gate) Refs() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.hooks)
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Credentials returns the current credentials and whether the gate is
// authenticated.
func (g *Gate) Credentials() (Credentials, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creds, g.state == StateAuthenticated
}

// OnStateChange registers fn to be called after each transition.
func (g *Gate) OnStateChange(fn func(State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.watch = append(g.watch, fn)
}

func (g *Gate) setState(s State) []func(State) {
	g.state = s
	return slices.Clone(g.watch)
}

func notify(watchers []func(State), s State) {
	for _, fn := range watchers {
		fn(s)
	}
}

// Begin moves an anonymous gate to authenticating.
func (g *Gate) Begin() error {
	g.mu.Lock()
	if g.state != StateAnonymous {
		g.mu.Unlock()
		return ErrBusy
	}
	w := g.setState(StateAuthenticating)
	g.mu.Unlock()

	notify(w, StateAuthenticating)
	return nil
}

// Complete finishes an authentication started with Begin.
func (g *Gate) Complete(c Credentials) error {
	g.mu.Lock()
	if g.state != StateAuthenticating {
		g.mu.Unlock()
		return ErrNotAuthenticating
	}
	g.creds = c
	w := g.setState(StateAuthenticated)
	g.mu.Unlock()

	notify(w, StateAuthenticated)
	return nil
}

// Fail abandons an authentication started with Begin.
func (g *Gate) Fail() {
	g.mu.Lock()
	if g.state != StateAuthenticating {
		g.mu.Unlock()
		return
	}
	w := g.setState(StateAnonymous)
	g.mu.Unlock()

	notify(w, StateAnonymous)
}

// UpdateTokens replaces the token pair of an authenticated gate, as after a
// transparent refresh.
func (g *Gate) UpdateTokens(token, refreshToken string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateAuthenticated {
		return
	}
	g.creds.Token = token
	g.creds.RefreshToken = refreshToken
	g.creds.Offline = false
}

// Drop returns the gate to anonymous and runs every teardown hook. It is
// safe to call from inside a hook's component and when already anonymous.
func (g *Gate) Drop(ctx context.Context) {
	g.mu.Lock()
	wasAnonymous := g.state == StateAnonymous
	g.creds = Credentials{}
	w := g.setState(StateAnonymous)
	hooks := make([]Teardown, 0, len(g.hooks))
	for _, h := range g.hooks {
		hooks = append(hooks, h)
	}
	g.mu.Unlock()

	for _, h := range hooks {
		h(ctx)
	}
	if !wasAnonymous {
		notify(w, StateAnonymous)
	}
}

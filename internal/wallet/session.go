package wallet

import (
	"context"
	"sync"

	"github.com/nft-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// Provider grants access to wallet accounts, the way a browser extension
// answers eth_requestAccounts.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
}

// State is a point-in-time copy of the session.
type State struct {
	Account    string `json:"account,omitempty"`
	Connecting bool   `json:"connecting"`
}

func (s State) Connected() bool { return s.Account != "" }

// Listener receives the session state after every account change.
type Listener func(State)

// Session tracks the single active wallet account of the process. It is
// created once in main and handed to every flow that needs the account.
type Session struct {
	provider Provider
	log      *zap.Logger

	// delivery is held from a state write through its fan-out so listeners
	// see changes in the order they were applied. Listeners must not change
	// the session.
	delivery sync.Mutex

	mu         sync.Mutex
	account    string
	connecting bool
	nextID     int
	listeners  map[int]Listener
}

// NewSession creates a disconnected session. provider may be nil, in which
// case Connect fails with ErrProviderUnavailable.
func NewSession(provider Provider, log *zap.Logger) *Session {
	return &Session{
		provider:  provider,
		log:       log,
		listeners: make(map[int]Listener),
	}
}

// Connect asks the provider for account access and tracks the first account.
func (s *Session) Connect(ctx context.Context) (State, error) {
	if s.provider == nil {
		return s.Snapshot(), models.ErrProviderUnavailable
	}

	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		return s.Snapshot(), models.ErrConnectInProgress
	}
	s.connecting = true
	s.mu.Unlock()

	accounts, err := s.provider.RequestAccounts(ctx)

	s.delivery.Lock()
	defer s.delivery.Unlock()
	s.mu.Lock()
	s.connecting = false
	if err == nil && len(accounts) == 0 {
		err = models.ErrUserRejected
	}
	if err != nil {
		state := s.stateLocked()
		s.mu.Unlock()
		s.log.Warn("wallet connect failed", zap.Error(err))
		return state, err
	}
	changed := s.account != accounts[0]
	s.account = accounts[0]
	state := s.stateLocked()
	s.mu.Unlock()

	s.log.Info("wallet connected", zap.String("account", state.Account))
	if changed {
		s.notify(state)
	}
	return state, nil
}

// Disconnect forgets the account locally. Provider-side permission is left
// untouched.
func (s *Session) Disconnect() State {
	s.delivery.Lock()
	defer s.delivery.Unlock()
	s.mu.Lock()
	changed := s.account != ""
	s.account = ""
	state := s.stateLocked()
	s.mu.Unlock()

	if changed {
		s.log.Info("wallet disconnected")
		s.notify(state)
	}
	return state
}

// OnAccountsChanged applies a provider push notification.
func (s *Session) OnAccountsChanged(accounts []string) State {
	next := ""
	if len(accounts) > 0 {
		next = accounts[0]
	}

	s.delivery.Lock()
	defer s.delivery.Unlock()
	s.mu.Lock()
	changed := s.account != next
	s.account = next
	state := s.stateLocked()
	s.mu.Unlock()

	if changed {
		s.log.Info("wallet account changed", zap.String("account", next))
		s.notify(state)
	}
	return state
}

// Account returns the active account, or "" when disconnected.
func (s *Session) Account() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe registers fn for account changes. The returned func removes it
// and is safe to call more than once.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// ListenerCount reports the number of registered listeners.
func (s *Session) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Session) stateLocked() State {
	return State{Account: s.account, Connecting: s.connecting}
}

func (s *Session) notify(state State) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

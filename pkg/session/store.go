// Package session holds the process-wide client session and the only
// operations allowed to change it.
package session

import (
	"errors"
	"log/slog"
	"sync"

	"paydesk/pkg/models"
)

// ErrNotFound is returned by Storage.Load when nothing has been persisted yet.
var ErrNotFound = errors.New("session: no persisted session")

// Storage is the durable backend for the serialized session.
type Storage interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Remove() error
}

// Action names a store mutation.
type Action string

const (
	ActionSave          Action = "save_session"
	ActionClear         Action = "clear_session"
	ActionUpdateProfile Action = "update_profile_fields"
	ActionUpdateAvatar  Action = "update_avatar"
)

// Change is delivered to listeners after a mutation has been persisted. Seq
// increases by one with every mutation.
type Change struct {
	Action  Action
	Session models.Session
	Seq     uint64
}

// Listener observes store changes. Listeners run one change at a time in
// mutation order and must not mutate the store themselves.
type Listener func(Change)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for hydration and persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the persisted session container.
type Store struct {
	mu        sync.RWMutex
	state     models.Session
	seq       uint64
	storage   Storage
	logger    *slog.Logger
	listeners map[int]Listener
	nextID    int

	// notifyMu is taken before mu is released so deliveries keep the
	// order in which mutations were applied.
	notifyMu sync.Mutex
}

// NewStore builds a store and hydrates it from storage. Missing or malformed
// persisted data yields an empty, unauthenticated session.
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage:   storage,
		logger:    slog.Default(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.hydrate()
	return s
}

func (s *Store) hydrate() models.Session {
	if s.storage == nil {
		return models.Session{}
	}
	data, err := s.storage.Load()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session storage unreadable, starting signed out", "error", err)
		}
		return models.Session{}
	}
	state, err := Decode(data)
	if err != nil {
		s.logger.Warn("discarding persisted session", "error", err)
		return models.Session{}
	}
	s.logger.Debug("session restored", "authenticated", state.IsAuthenticated)
	return state
}

// Get returns a copy of the current session.
func (s *Store) Get() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// IsAuthenticated reports the current authentication flag.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SaveSession records a successful login. token must be non-empty; callers
// validate the login response before calling.
func (s *Store) SaveSession(token string, profile models.Profile, accounts []models.BankAccount) {
	if token == "" {
		panic("session: SaveSession called with empty token")
	}
	s.mutate(ActionSave, func(state *models.Session) {
		state.Token = token
		state.Profile = profile
		state.Accounts = cloneAccounts(accounts)
		state.IsAuthenticated = true
	})
}

// ClearSession signs out. Profile and accounts are left in place; a full wipe
// also needs the durable entry removed.
func (s *Store) ClearSession() {
	s.mutate(ActionClear, func(state *models.Session) {
		state.Token = ""
		state.IsAuthenticated = false
	})
}

// UpdateProfileFields overwrites the first and last name only.
func (s *Store) UpdateProfileFields(firstName, lastName string) {
	s.mutate(ActionUpdateProfile, func(state *models.Session) {
		state.Profile.FirstName = firstName
		state.Profile.LastName = lastName
	})
}

// UpdateAvatar overwrites the avatar URL only.
func (s *Store) UpdateAvatar(avatarURL string) {
	s.mutate(ActionUpdateAvatar, func(state *models.Session) {
		state.Profile.AvatarURL = avatarURL
	})
}

// mutate applies fn, writes the result through to storage and then notifies
// listeners outside the state lock.
func (s *Store) mutate(action Action, fn func(*models.Session)) {
	s.mu.Lock()
	fn(&s.state)
	s.seq++
	seq := s.seq
	snapshot := s.state.Clone()
	s.persist(snapshot)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, l := range listeners {
		l(Change{Action: action, Session: snapshot.Clone(), Seq: seq})
	}
}

func (s *Store) persist(state models.Session) {
	if s.storage == nil {
		return
	}
	data, err := Encode(state)
	if err != nil {
		s.logger.Error("encode session", "error", err)
		return
	}
	if err := s.storage.Save(data); err != nil {
		s.logger.Error("persist session", "error", err)
	}
}

// Forget removes the durable entry without touching the in-memory session.
func (s *Store) Forget() error {
	if s.storage == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Remove(); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func cloneAccounts(in []models.BankAccount) []models.BankAccount {
	if in == nil {
		return nil
	}
	out := make([]models.BankAccount, len(in))
	copy(out, in)
	return out
}

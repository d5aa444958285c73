// Package accountstate provides the per-session account state container.
//
// The container replaces the ambient client-side store: it is constructed
// explicitly, passed to its consumers, and exposes selector-based
// subscriptions so a consumer is notified only when the slice it selected
// actually changes.
package accountstate

import (
	"reflect"
	"sync"

	"github.com/imellon/go-investa/internal/models/modeldto"
)

// State holds the authenticated user and the derived account aggregates.
type State struct {
	User    *modeldto.User
	Balance modeldto.Balance
	Loading bool
	Err     string
}

// Selector extracts the slice of state a subscriber cares about.
type Selector func(State) interface{}

type subscription struct {
	selector Selector
	last     interface{}
	ch       chan interface{}
}

// Store is a concurrency-safe state container with selective notification.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]*subscription
	nextID int
}

// NewStore returns a store in the initial loading state.
func NewStore() *Store {
	return &Store{
		state: State{Loading: true},
		subs:  make(map[int]*subscription),
	}
}

// Get returns a snapshot of the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set applies a mutation and notifies subscribers whose selected slice changed.
func (s *Store) Set(mutate func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.state)
	s.notifyLocked()
}

// Reset returns the store to the empty-but-not-loading state, used on logout.
func (s *Store) Reset() {
	s.Set(func(st *State) {
		*st = State{Loading: false}
	})
}

// Subscribe registers a selector and returns a channel delivering the selected
// slice whenever it changes, plus a cancel function.
func (s *Store) Subscribe(selector Selector) (<-chan interface{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	sub := &subscription{
		selector: selector,
		last:     selector(s.state),
		ch:       make(chan interface{}, 1),
	}
	s.subs[id] = sub
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

func (s *Store) notifyLocked() {
	for _, sub := range s.subs {
		next := sub.selector(s.state)
		if reflect.DeepEqual(next, sub.last) {
			continue
		}
		sub.last = next
		// keep only the latest value for slow consumers
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- next
	}
}

// Manager tracks one store per active session.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager() *Manager {
	return &Manager{stores: make(map[string]*Store)}
}

// ForSession returns the session's store, creating it on first access.
func (m *Manager) ForSession(sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[sessionID]
	if !ok {
		store = NewStore()
		m.stores[sessionID] = store
	}
	return store
}

// Drop resets and removes the session's store, used on logout.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	store, ok := m.stores[sessionID]
	if ok {
		delete(m.stores, sessionID)
	}
	m.mu.Unlock()
	if ok {
		store.Reset()
	}
}

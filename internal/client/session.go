package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"cmsadmin/internal/models"
)

// Session is the signed-in user and token, mirrored to a KeyValueStore.
type Session struct {
	mu    sync.RWMutex
	store KeyValueStore
	user  *models.User
	token string
}

// NewSession creates an empty session over store. Call Restore to load a
// previously persisted one.
func NewSession(store KeyValueStore) *Session {
	return &Session{store: store}
}

// Restore loads the persisted session. Partial presence or an unparsable user
// means no session, and the storage is cleared.
func (s *Session) Restore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, hasToken := s.store.Get(KeyAuthToken)
	rawUser, hasUser := s.store.Get(KeyUser)
	if !hasToken && !hasUser {
		return false
	}

	var user models.User
	if !hasToken || !hasUser || json.Unmarshal([]byte(rawUser), &user) != nil {
		s.user, s.token = nil, ""
		_ = s.store.Clear()
		return false
	}

	s.user, s.token = &user, token
	return true
}

// Login records user and token in memory and in storage.
func (s *Session) Login(user models.User, token string) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(map[string]string{KeyAuthToken: token, KeyUser: string(data)}); err != nil {
		return err
	}
	s.user, s.token = &user, token
	return nil
}

// Logout forgets the session and clears storage.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user, s.token = nil, ""
	return s.store.Clear()
}

// Current returns the signed-in user.
func (s *Session) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

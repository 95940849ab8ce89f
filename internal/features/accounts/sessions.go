// Package accounts — sessions.go хранит авторизованные сессии бота в памяти.
package accounts

import (
	"sync"
	"time"
)

// Sessions — сессии пользователей Telegram (user_id -> счёт) с TTL простоя.
// Перезапуск бота сбрасывает все сессии, пользователи входят заново.
type Sessions struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[int64]*Session
}

// NewSessions создаёт хранилище сессий.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[int64]*Session),
	}
}

// Start открывает (или заменяет) сессию пользователя.
func (s *Sessions) Start(userID int64, acc *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[userID] = &Session{
		AccountID: acc.ID,
		Username:  acc.Username,
		ExpiresAt: s.now().Add(s.ttl),
	}
}

// Get возвращает активную сессию и продлевает её.
func (s *Sessions) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.items[userID]
	if !ok {
		return Session{}, false
	}
	now := s.now()
	if !now.Before(sess.ExpiresAt) {
		delete(s.items, userID)
		return Session{}, false
	}
	sess.ExpiresAt = now.Add(s.ttl)
	return *sess, true
}

// End закрывает сессию. Возвращает false, если её не было.
func (s *Sessions) End(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.items[userID]
	delete(s.items, userID)
	return ok
}

// Sweep удаляет истёкшие сессии и возвращает их количество.
// Вызывается планировщиком.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.items {
		if !now.Before(sess.ExpiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// Len возвращает число сессий (включая ещё не вычищенные истёкшие).
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

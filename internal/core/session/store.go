package session

import (
	"context"
	"sync"
	"time"

	"github.com/jinford/kb-chat/internal/core/ask"
	"github.com/samber/mo"
)

// Store はセッションIDに紐づくユーザープロファイルのキーバリューストア
type Store interface {
	// Get はプロファイルを取得する。存在しない・期限切れの場合は None
	Get(ctx context.Context, sessionID string) (mo.Option[ask.UserProfile], error)

	// Put はプロファイルを保存する。ttl <= 0 の場合はストアのデフォルトを使う
	Put(ctx context.Context, sessionID string, profile ask.UserProfile, ttl time.Duration) error

	// Delete はプロファイルを削除する。存在しなくてもエラーとしない
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore はプロセス内のTTL付きプロファイルストア。
// 読み取りは共有ロック、書き込みは排他ロックで保護する。
type MemoryStore struct {
	mu         sync.RWMutex
	profiles   map[string]record
	defaultTTL time.Duration
	now        func() time.Time
}

type record struct {
	profile   ask.UserProfile
	expiresAt time.Time
}

// NewMemoryStore は新しいMemoryStoreを作成する
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &MemoryStore{
		profiles:   make(map[string]record),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Get はプロファイルを取得する。期限切れのエントリは削除して None を返す
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (mo.Option[ask.UserProfile], error) {
	s.mu.RLock()
	rec, ok := s.profiles[sessionID]
	s.mu.RUnlock()

	if !ok {
		return mo.None[ask.UserProfile](), nil
	}

	if s.now().After(rec.expiresAt) {
		s.mu.Lock()
		delete(s.profiles, sessionID)
		s.mu.Unlock()
		return mo.None[ask.UserProfile](), nil
	}

	return mo.Some(rec.profile), nil
}

// Put はプロファイルを保存する
func (s *MemoryStore) Put(ctx context.Context, sessionID string, profile ask.UserProfile, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[sessionID] = record{
		profile:   profile,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete はプロファイルを削除する
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, sessionID)
	return nil
}

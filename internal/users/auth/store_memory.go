// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/edura/internal/platform/sec"
)

// # Memory Store

// MemoryStore keeps identities and sessions in process memory.
//
// One mutex guards both tables so that deleting an identity and dropping its
// sessions is a single atomic step, mirroring ON DELETE CASCADE. Entities are
// copied on the way in and out so callers never share pointers with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User
	byEmail  map[string]string
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Users returns the [UserRepository] view of the store.
func (store *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{store: store}
}

// Sessions returns the [SessionRepository] view of the store.
func (store *MemoryStore) Sessions() *MemorySessionRepository {
	return &MemorySessionRepository{store: store}
}

func cloneUser(user *User) *User {
	clone := *user
	if user.VerificationCodeHash != nil {
		hash := *user.VerificationCodeHash
		clone.VerificationCodeHash = &hash
	}
	return &clone
}

func cloneSession(session *Session) *Session {
	clone := *session
	if session.RevokedAt != nil {
		revokedAt := *session.RevokedAt
		clone.RevokedAt = &revokedAt
	}
	return &clone
}

// # User Repository

// MemoryUserRepository implements UserRepository over a [MemoryStore].
type MemoryUserRepository struct {
	store *MemoryStore
}

// Create inserts the identity unless its email is taken.
func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	key := NormalizeEmail(user.Email)
	if _, taken := store.byEmail[key]; taken {
		return ErrDuplicateEmail
	}

	now := store.now()
	user.CreatedAt, user.UpdatedAt = now, now

	store.users[user.ID] = cloneUser(user)
	store.byEmail[key] = user.ID
	return nil
}

// FindByID returns a copy of the identity.
func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	store := repository.store
	store.mu.RLock()
	defer store.mu.RUnlock()

	user, ok := store.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

// FindByEmail returns a copy of the identity, matching case-insensitively.
func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	store := repository.store
	store.mu.RLock()
	defer store.mu.RUnlock()

	id, ok := store.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(store.users[id]), nil
}

// List returns a filtered page ordered newest first.
func (repository *MemoryUserRepository) List(_ context.Context, filter ListFilter) ([]*User, int, error) {
	store := repository.store
	store.mu.RLock()
	defer store.mu.RUnlock()

	matched := make([]*User, 0, len(store.users))
	for _, user := range store.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		matched = append(matched, user)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]*User, 0, end-start)
	for _, user := range matched[start:end] {
		page = append(page, cloneUser(user))
	}
	return page, total, nil
}

// UpdateProfile applies the non-nil fields of update.
func (repository *MemoryUserRepository) UpdateProfile(_ context.Context, id string, update ProfileUpdate) (*User, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	if update.Email != nil {
		newKey := NormalizeEmail(*update.Email)
		oldKey := NormalizeEmail(user.Email)

		if newKey != oldKey {
			if _, taken := store.byEmail[newKey]; taken {
				return nil, ErrDuplicateEmail
			}
			delete(store.byEmail, oldKey)
			store.byEmail[newKey] = id

			user.IsVerified = false
			user.VerificationCodeHash = nil
			if update.VerificationCodeHash != nil {
				hash := *update.VerificationCodeHash
				user.VerificationCodeHash = &hash
			}
		}
		user.Email = *update.Email
	}

	if update.Name != nil {
		user.Name = *update.Name
	}

	user.UpdatedAt = store.now()
	return cloneUser(user), nil
}

// UpdatePassword replaces only the password hash.
func (repository *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = store.now()
	return nil
}

// UpdateRole replaces only the role.
func (repository *MemoryUserRepository) UpdateRole(_ context.Context, id string, role sec.Role) (*User, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user.Role = role
	user.UpdatedAt = store.now()
	return cloneUser(user), nil
}

// SetVerificationCode stores a fresh code hash for an unverified identity.
func (repository *MemoryUserRepository) SetVerificationCode(_ context.Context, id, codeHash string) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok || user.IsVerified {
		return ErrUserNotFound
	}
	user.VerificationCodeHash = &codeHash
	user.UpdatedAt = store.now()
	return nil
}

// ConsumeVerificationCode matches and clears the code under the write lock.
func (repository *MemoryUserRepository) ConsumeVerificationCode(_ context.Context, codeHash string) (*User, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, user := range store.users {
		if user.VerificationCodeHash != nil && *user.VerificationCodeHash == codeHash {
			user.IsVerified = true
			user.VerificationCodeHash = nil
			user.UpdatedAt = store.now()
			return cloneUser(user), nil
		}
	}
	return nil, ErrInvalidOrExpiredCode
}

// Delete removes the identity together with its sessions.
func (repository *MemoryUserRepository) Delete(_ context.Context, id string) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return ErrUserNotFound
	}

	delete(store.byEmail, NormalizeEmail(user.Email))
	delete(store.users, id)

	for sessionID, session := range store.sessions {
		if session.UserID == id {
			delete(store.sessions, sessionID)
		}
	}
	return nil
}

// # Session Repository

// MemorySessionRepository implements SessionRepository over a [MemoryStore].
type MemorySessionRepository struct {
	store *MemoryStore
}

// Create inserts the session. The owner must exist, like the foreign key in Postgres.
func (repository *MemorySessionRepository) Create(_ context.Context, session *Session) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.users[session.UserID]; !ok {
		return ErrUserNotFound
	}
	store.sessions[session.ID] = cloneSession(session)
	return nil
}

// FindActive returns a non-revoked, unexpired session.
func (repository *MemorySessionRepository) FindActive(_ context.Context, id string) (*Session, error) {
	store := repository.store
	store.mu.RLock()
	defer store.mu.RUnlock()

	session, ok := store.sessions[id]
	if !ok || !session.Active(store.now()) {
		return nil, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// ListActive returns the active sessions of userID, newest first.
func (repository *MemorySessionRepository) ListActive(_ context.Context, userID string) ([]*Session, error) {
	store := repository.store
	store.mu.RLock()
	defer store.mu.RUnlock()

	now := store.now()
	sessions := make([]*Session, 0)
	for _, session := range store.sessions {
		if session.UserID == userID && session.Active(now) {
			sessions = append(sessions, cloneSession(session))
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// RevokeOwned stamps RevokedAt on an active session of userID.
func (repository *MemorySessionRepository) RevokeOwned(_ context.Context, userID, id string) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	session, ok := store.sessions[id]
	if !ok || session.UserID != userID || !session.Active(now) {
		return ErrSessionNotFound
	}
	session.RevokedAt = &now
	return nil
}

// Revoke stamps RevokedAt on one session.
func (repository *MemorySessionRepository) Revoke(_ context.Context, id string) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	if session, ok := store.sessions[id]; ok && session.RevokedAt == nil {
		now := store.now()
		session.RevokedAt = &now
	}
	return nil
}

// RevokeAll revokes every active session of userID.
func (repository *MemorySessionRepository) RevokeAll(ctx context.Context, userID string) error {
	return repository.RevokeOthers(ctx, userID, "")
}

// RevokeOthers revokes every active session of userID except keepID.
func (repository *MemorySessionRepository) RevokeOthers(_ context.Context, userID, keepID string) error {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	for id, session := range store.sessions {
		if session.UserID == userID && id != keepID && session.RevokedAt == nil {
			revokedAt := now
			session.RevokedAt = &revokedAt
		}
	}
	return nil
}

// DeleteExpired drops expired and revoked sessions.
func (repository *MemorySessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	store := repository.store
	store.mu.Lock()
	defer store.mu.Unlock()

	var removed int64
	now := store.now()
	for id, session := range store.sessions {
		if !session.Active(now) {
			delete(store.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// # Reset Token Repository

type memoryResetToken struct {
	userID    string
	expiresAt time.Time
}

// MemoryResetTokenRepository implements ResetTokenRepository without Redis.
type MemoryResetTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]memoryResetToken
	now    func() time.Time
}

// NewMemoryResetTokenRepository returns an empty token table.
func NewMemoryResetTokenRepository() *MemoryResetTokenRepository {
	return &MemoryResetTokenRepository{
		tokens: make(map[string]memoryResetToken),
		now:    time.Now,
	}
}

// Set associates tokenHash with userID until ttl elapses.
func (repository *MemoryResetTokenRepository) Set(_ context.Context, tokenHash, userID string, ttl time.Duration) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.tokens[tokenHash] = memoryResetToken{userID: userID, expiresAt: repository.now().Add(ttl)}
	return nil
}

// Consume returns and deletes the owner of tokenHash.
func (repository *MemoryResetTokenRepository) Consume(_ context.Context, tokenHash string) (string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	token, ok := repository.tokens[tokenHash]
	delete(repository.tokens, tokenHash)

	if !ok || !repository.now().Before(token.expiresAt) {
		return "", ErrInvalidOrExpiredCode
	}
	return token.userID, nil
}

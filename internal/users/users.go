// Package users implements account registration, login and token revocation.
package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/auth"
	"github.com/jason-s-yu/duelhall/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect user id or password")
	ErrInactiveUser       = errors.New("inactive user")
	ErrTokenRevoked       = errors.New("token has been invalidated")
	ErrInvalidInput       = errors.New("user id and password are required")
)

// Store persists accounts.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	GetByUserID(ctx context.Context, userID string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetActive(ctx context.Context, userID string, active bool) error
	SetPassword(ctx context.Context, userID, hash string) error
	Delete(ctx context.Context, userID string) error
}

// Revoker blacklists tokens until they expire.
type Revoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Service ties the store, password hashing and token signing together.
type Service struct {
	Store   Store
	Signer  *auth.Signer
	Revoker Revoker
	Params  *auth.HashParams
	Logger  *logrus.Logger
}

// Register creates an active account.
func (s *Service) Register(ctx context.Context, userID, password string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := auth.HashPassword(password, s.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &models.User{UserID: userID, Password: hash, IsActive: true}
	if err := s.Store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "id": u.ID}).Info("user created")
	return u, nil
}

// Login checks credentials and issues a token whose subject is the account id.
func (s *Service) Login(ctx context.Context, userID, password string) (string, error) {
	u, err := s.Store.GetByUserID(ctx, strings.TrimSpace(userID))
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", ErrInactiveUser
	}
	ok, err := auth.VerifyPassword(password, u.Password)
	if err != nil {
		return "", fmt.Errorf("stored hash for %s: %w", u.UserID, err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}
	return s.Signer.CreateJWT(u.ID.String())
}

// Authenticate resolves a token to its active, non-revoked account.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	revoked, err := s.Revoker.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	sub, err := s.Signer.AuthenticateJWT(token)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", auth.ErrInvalidToken)
	}
	u, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

// Logout blacklists token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	if _, err := s.Authenticate(ctx, token); err != nil {
		return err
	}
	claims, err := s.Signer.ParseJWT(token)
	if err != nil {
		return err
	}
	return s.Revoker.Revoke(ctx, token, claims.TTL())
}

// ChangePassword replaces the stored hash. Tokens already issued stay valid.
func (s *Service) ChangePassword(ctx context.Context, userID, password string) error {
	if password == "" {
		return ErrInvalidInput
	}
	hash, err := auth.HashPassword(password, s.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.Store.SetPassword(ctx, userID, hash); err != nil {
		return err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID}).Info("password changed")
	return nil
}

// MemoryStore keeps accounts in process. Used in tests and when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*models.User
	names map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]*models.User), names: make(map[string]uuid.UUID)}
}

func (m *MemoryStore) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.names[user.UserID]; ok {
		return ErrUserExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	cp := *user
	m.byID[user.ID] = &cp
	m.names[user.UserID] = user.ID
	return nil
}

func (m *MemoryStore) GetByUserID(_ context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.names[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) SetActive(_ context.Context, userID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.names[userID]
	if !ok {
		return ErrUserNotFound
	}
	m.byID[id].IsActive = active
	return nil
}

func (m *MemoryStore) SetPassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.names[userID]
	if !ok {
		return ErrUserNotFound
	}
	m.byID[id].Password = hash
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.names[userID]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.names, userID)
	delete(m.byID, id)
	return nil
}

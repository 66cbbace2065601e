package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"opencourt/internal/core"
)

// Store is the slice of persistence the session layer needs.
type Store interface {
	core.UserStore
	core.SessionStore
}

// Config holds token lifetimes and hashing cost.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// Service implements login, logout, refresh rotation, and bearer
// authentication over opaque tokens.
type Service struct {
	store Store
	cfg   Config
}

// NewService creates an auth service.
func NewService(st Store, cfg Config) *Service {
	return &Service{store: st, cfg: cfg}
}

// Tokens is one issued access/refresh pair, returned to the caller once
// and never stored in the clear.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Login verifies the credentials and opens a session. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*core.User, *Tokens, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil, core.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, nil, core.ErrUnauthorized
	}

	access, err := GenerateToken()
	if err != nil {
		return nil, nil, err
	}
	refresh, err := GenerateToken()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	session := &core.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		AccessHash:       HashToken(access),
		RefreshHash:      HashToken(refresh),
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt:        now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	return user, &Tokens{Access: access, Refresh: refresh}, nil
}

// Authenticate resolves an access token to its user. Expired or unknown
// tokens yield ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*core.User, error) {
	if accessToken == "" {
		return nil, core.ErrUnauthorized
	}

	session, err := s.store.GetSessionByAccessHash(ctx, HashToken(accessToken))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.ErrUnauthorized
		}
		return nil, fmt.Errorf("look up session: %w", err)
	}
	if time.Now().UTC().After(session.AccessExpiresAt) {
		return nil, core.ErrUnauthorized
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Refresh rotates the access token of the session that owns the refresh
// token. The refresh token itself stays valid until logout or expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	session, err := s.findRefreshSession(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	access, err := GenerateToken()
	if err != nil {
		return "", err
	}
	session.AccessHash = HashToken(access)
	session.AccessExpiresAt = time.Now().UTC().Add(s.cfg.AccessTokenTTL)

	if err := s.store.UpdateSessionAccess(ctx, session); err != nil {
		return "", fmt.Errorf("rotate session: %w", err)
	}
	return access, nil
}

// Logout deletes the session that owns the refresh token, invalidating
// both tokens of the pair.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.findRefreshSession(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, session.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) findRefreshSession(ctx context.Context, refreshToken string) (*core.Session, error) {
	if refreshToken == "" {
		return nil, core.ErrUnauthorized
	}
	session, err := s.store.GetSessionByRefreshHash(ctx, HashToken(refreshToken))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.ErrUnauthorized
		}
		return nil, fmt.Errorf("look up session: %w", err)
	}
	if time.Now().UTC().After(session.RefreshExpiresAt) {
		return nil, core.ErrUnauthorized
	}
	return session, nil
}

// SeedAdmin creates an ADMIN user with the given credentials if no user
// with that username exists yet. Safe to call on every startup.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return nil // already seeded
	}
	if !core.IsNotFound(err) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	user := &core.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         core.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

// Package users manages catalog accounts: bcrypt credentials, roles,
// and per-collection visibility.
package users

import (
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/vitrine/internal/apperr"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/store"
)

// Service wraps the store with credential handling.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a Service.
func New(s *store.Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// EnsureDefaults seeds the initial admin account when no users exist,
// so a fresh data directory is never unreachable.
func (s *Service) EnsureDefaults() error {
	if len(s.store.Users()) > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash default password: %w", err)
	}
	admin := models.User{
		ID:           models.NewID("user"),
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Name:         "Administrador",
	}
	if err := s.store.SaveUser(admin); err != nil {
		return err
	}
	s.logger.Warn("seeded default admin account, change its password", "username", admin.Username)
	return nil
}

// Authenticate checks a username/password pair and returns the matching
// user. Unknown users and wrong passwords both come back as
// ErrValidation so callers cannot distinguish them.
func (s *Service) Authenticate(username, password string) (models.User, error) {
	u, ok := s.store.UserByUsername(username)
	if !ok {
		return models.User{}, fmt.Errorf("users: bad credentials: %w", apperr.ErrValidation)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, fmt.Errorf("users: bad credentials: %w", apperr.ErrValidation)
	}
	return u, nil
}

// Save persists a user. A non-empty plaintext password is hashed;
// leaving it empty on an existing user keeps the stored hash.
func (s *Service) Save(u models.User, plaintext string) (models.User, error) {
	if u.Username == "" {
		return models.User{}, fmt.Errorf("users: username is required: %w", apperr.ErrValidation)
	}
	if existing, ok := s.store.UserByUsername(u.Username); ok && existing.ID != u.ID {
		return models.User{}, fmt.Errorf("users: username %q taken: %w", u.Username, apperr.ErrAlreadyExists)
	}
	if u.ID == "" {
		u.ID = models.NewID("user")
		if plaintext == "" {
			return models.User{}, fmt.Errorf("users: new user needs a password: %w", apperr.ErrValidation)
		}
	}
	if plaintext != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("users: hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	} else if prev, ok := s.userByID(u.ID); ok {
		u.PasswordHash = prev.PasswordHash
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if err := s.store.SaveUser(u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Delete removes a user, refusing to drop the last admin.
func (s *Service) Delete(id string) error {
	u, ok := s.userByID(id)
	if !ok {
		return fmt.Errorf("users: %s: %w", id, apperr.ErrNotFound)
	}
	if u.Role == models.RoleAdmin && s.adminCount() == 1 {
		return fmt.Errorf("users: cannot delete the last admin: %w", apperr.ErrConflict)
	}
	return s.store.DeleteUser(id)
}

func (s *Service) userByID(id string) (models.User, bool) {
	for _, u := range s.store.Users() {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

func (s *Service) adminCount() int {
	n := 0
	for _, u := range s.store.Users() {
		if u.Role == models.RoleAdmin {
			n++
		}
	}
	return n
}

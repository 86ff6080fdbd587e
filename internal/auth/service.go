package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/marisol-pos/marisol/internal/shared"
)

// ErrInvalidToken indicates an unusable bearer token.
var ErrInvalidToken = errors.New("auth: invalid token")

// Service validates bearer tokens of the form "<user-id>.<secret>", where
// the secret is checked against the bcrypt hash stored for the user.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate resolves a bearer token to an actor.
func (s *Service) Authenticate(ctx context.Context, token string) (shared.Actor, error) {
	idPart, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return shared.Actor{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return shared.Actor{}, ErrInvalidToken
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return shared.Actor{}, ErrInvalidToken
	}
	if !user.IsActive {
		return shared.Actor{}, ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.TokenHash), []byte(secret)); err != nil {
		return shared.Actor{}, ErrInvalidToken
	}
	return shared.Actor{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}

package services

import (
	"errors"
	"fmt"

	"boutique/internal/apperror"
	"boutique/internal/models"
	"boutique/internal/repositories"

	"github.com/rs/zerolog/log"
)

// AuthService handles registration, login and identity resolution.
type AuthService struct {
	userRepo repositories.UserRepository
	hasher   PasswordHasher
	tokens   *TokenManager
	events   EventPublisher
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, hasher PasswordHasher, tokens *TokenManager, events EventPublisher) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		events:   events,
	}
}

// RegisterInput is the data accepted when creating an account.
type RegisterInput struct {
	Name       string
	Username   string
	Email      string
	Password   string
	ProfilePic string
}

// Credentials is the outcome of a successful login or registration.
type Credentials struct {
	Token string
	User  *models.User
}

// RegisterUser hashes the password, stores the new user and issues a token.
// Duplicate email or username surfaces as *apperror.ConflictError.
func (s *AuthService) RegisterUser(input RegisterInput) (*Credentials, error) {
	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:       input.Name,
		Username:   input.Username,
		Email:      input.Email,
		Password:   hashed,
		Role:       models.RoleUser,
		ProfilePic: input.ProfilePic,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.tokens.Sign(user.Snapshot())
	if err != nil {
		return nil, err
	}

	publish(s.events, EventUserRegistered, map[string]interface{}{
		"userID":   user.ID,
		"username": user.Username,
	})
	return &Credentials{Token: token, User: user}, nil
}

// LoginUser checks the email and password and issues a token.
// Unknown email and wrong password both yield apperror.ErrInvalidCredentials.
func (s *AuthService) LoginUser(email, password string) (*Credentials, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(user.Snapshot())
	if err != nil {
		return nil, err
	}
	return &Credentials{Token: token, User: user}, nil
}

// ValidateToken verifies a bearer token without touching the store.
func (s *AuthService) ValidateToken(token string) (*Claims, error) {
	if token == "" {
		return nil, apperror.ErrTokenMissing
	}
	return s.tokens.Verify(token)
}

// ResolveIdentity reconciles the session and token lanes. A session snapshot
// wins without any token check or store read. Otherwise a valid token whose
// subject still exists yields a token identity. Every failure returns an
// unauthenticated identity together with its cause.
func (s *AuthService) ResolveIdentity(sessionUser *models.UserSnapshot, token string) (Identity, error) {
	if sessionUser != nil {
		return Identity{Source: SessionIdentity, User: *sessionUser}, nil
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		return Identity{}, err
	}

	user, err := s.userRepo.GetByID(claims.ID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			log.Error().Err(err).Str("user_id", claims.ID).Msg("Failed to resolve token subject")
		}
		return Identity{}, err
	}
	return Identity{Source: TokenIdentity, User: user.Snapshot()}, nil
}

package services

import (
	"errors"
	"fmt"
	"time"

	"boutique/internal/apperror"
	"boutique/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// Claims are the JWT claims issued on login and registration.
type Claims struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.StandardClaims
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager whose tokens are valid for ttl.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign issues a token for the given user.
func (m *TokenManager) Sign(user models.UserSnapshot) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(m.ttl).Unix(),
		},
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Verify parses a token and checks its signature and expiry. Failures wrap
// apperror.ErrTokenExpired when the token is well-formed, correctly signed and
// only past its expiry, and apperror.ErrTokenInvalid otherwise.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors == jwt.ValidationErrorExpired {
			return nil, fmt.Errorf("%w: %v", apperror.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", apperror.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, apperror.ErrTokenInvalid
	}
	return claims, nil
}

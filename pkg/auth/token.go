package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const csrfIssuer = "storefront"

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// MintCSRFToken issues a short-lived token tied to subject.
func MintCSRFToken(cfg config.CSRFConfig, now time.Time, subject string) (string, time.Time, error) {
	if cfg.Secret == "" {
		return "", time.Time{}, fmt.Errorf("csrf secret is required")
	}
	if cfg.TTL <= 0 {
		return "", time.Time{}, fmt.Errorf("csrf ttl must be positive")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("csrf subject is required")
	}

	expiresAt := now.Add(cfg.TTL).UTC()
	claims := CSRFClaims{
		Purpose: csrfPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    csrfIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing csrf token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateCSRFToken verifies signature, expiry and subject binding.
func ValidateCSRFToken(cfg config.CSRFConfig, tokenString, subject string) error {
	if cfg.Secret == "" {
		return fmt.Errorf("csrf secret is required")
	}
	if strings.TrimSpace(tokenString) == "" {
		return ErrInvalidToken
	}

	claims := &CSRFClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(csrfIssuer),
		jwt.WithSubject(subject),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != csrfPurpose {
		return ErrInvalidToken
	}
	return nil
}

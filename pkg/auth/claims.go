package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

// Principal is the verified caller extracted from an identity-provider ID token.
type Principal struct {
	Subject string
	Email   string
	Name    string
}

// CSRFClaims binds an anti-forgery token to the authenticated subject.
type CSRFClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

const csrfPurpose = "csrf"

func principalFromClaims(claims *oidc.IDTokenClaims) (*Principal, error) {
	if claims == nil {
		return nil, ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.GetSubject())
	if subject == "" {
		return nil, ErrInvalidToken
	}
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = strings.TrimSpace(claims.PreferredUsername)
	}
	return &Principal{
		Subject: subject,
		Email:   strings.TrimSpace(claims.Email),
		Name:    name,
	}, nil
}

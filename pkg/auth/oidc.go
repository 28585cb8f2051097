package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// Verifier turns a bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// OIDCVerifier validates ID tokens against the issuer's discovery document and JWKS.
type OIDCVerifier struct {
	relyingParty rp.RelyingParty
}

// NewOIDCVerifier performs discovery against the configured issuer.
func NewOIDCVerifier(ctx context.Context, cfg config.IdentityConfig) (*OIDCVerifier, error) {
	issuer := strings.TrimSpace(cfg.IssuerURL)
	if issuer == "" {
		return nil, fmt.Errorf("identity issuer url is required")
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("identity client id is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		issuer,
		clientID,
		"",
		"",
		[]string{oidc.ScopeOpenID, oidc.ScopeEmail, oidc.ScopeProfile},
		rp.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create relying party: %w", err)
	}
	return &OIDCVerifier{relyingParty: relyingParty}, nil
}

// Verify checks signature, issuer, audience and expiry of an ID token.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, token, v.relyingParty.IDTokenVerifier())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return principalFromClaims(claims)
}

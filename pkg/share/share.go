// Package share issues and verifies the signed tokens that gate public
// access to a form: respond links for published forms and preview links
// for drafts.
package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes.
const (
	ScopeRespond = "respond"
	ScopePreview = "preview"
)

// DefaultTTL applies when Config.TTL is zero.
const DefaultTTL = 30 * 24 * time.Hour

var (
	ErrNoSecret     = errors.New("share: signing secret not configured")
	ErrInvalidToken = errors.New("share: invalid token")
)

// Grant is the verified content of a share token.
type Grant struct {
	FormID    string
	Scope     string
	ExpiresAt time.Time
}

type shareClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Config signs and verifies share tokens with an HS256 secret.
type Config struct {
	Secret string
	TTL    time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Config) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

// Issue signs a token granting scope on the given form.
func (c Config) Issue(formID, scope string) (string, error) {
	if strings.TrimSpace(c.Secret) == "" {
		return "", ErrNoSecret
	}
	if formID == "" {
		return "", fmt.Errorf("share: form id required")
	}
	if scope != ScopeRespond && scope != ScopePreview {
		return "", fmt.Errorf("share: unknown scope %q", scope)
	}
	now := c.now()
	claims := shareClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl())),
		},
		Scope: scope,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.Secret))
	if err != nil {
		return "", fmt.Errorf("share: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the grant carried by the
// token.
func (c Config) Verify(token string) (Grant, error) {
	if strings.TrimSpace(c.Secret) == "" {
		return Grant{}, ErrNoSecret
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &shareClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(c.Secret), nil
	})
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Grant{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Grant{}, fmt.Errorf("%w: subject claim required", ErrInvalidToken)
	}
	if claims.Scope != ScopeRespond && claims.Scope != ScopePreview {
		return Grant{}, fmt.Errorf("%w: unknown scope %q", ErrInvalidToken, claims.Scope)
	}
	grant := Grant{FormID: claims.Subject, Scope: claims.Scope}
	if claims.ExpiresAt != nil {
		grant.ExpiresAt = claims.ExpiresAt.Time
	}
	return grant, nil
}

// URL builds the public link a respondent opens for a token.
func URL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/f/" + url.PathEscape(token)
}

// EmbedSnippet returns the iframe markup form owners paste into their own
// pages.
func EmbedSnippet(baseURL, token string) string {
	return fmt.Sprintf(`<iframe src=%q width="100%%" height="600" frameborder="0"></iframe>`, URL(baseURL, token))
}

package api

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/users"
)

var ErrUnauthorized = errors.New("api: unauthorized")

type supabaseClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Authenticator проверяет access token Supabase: HS256, issuer SUPABASE_URL/auth/v1, sub - UUID.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(supabaseURL, secret string) *Authenticator {
	a := &Authenticator{secret: []byte(secret)}
	if supabaseURL != "" {
		a.issuer = strings.TrimRight(supabaseURL, "/") + "/auth/v1"
	}
	return a
}

func (a *Authenticator) Verify(token string) (users.Profile, error) {
	if len(a.secret) == 0 {
		return users.Profile{}, apperr.NotConfigured("SUPABASE_JWT_SECRET")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &supabaseClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return users.Profile{}, errors.Join(ErrUnauthorized, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return users.Profile{}, errors.Join(ErrUnauthorized, err)
	}
	return users.Profile{ID: id, Email: claims.Email, Name: metadataName(claims.UserMetadata)}, nil
}

func metadataName(md map[string]any) string {
	for _, k := range []string{"full_name", "name"} {
		if s, ok := md[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

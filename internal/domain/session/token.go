package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/yanqian/stylecast/pkg/errors"
)

const tokenType = "session"

// TokenIssuer signs and verifies the bearer tokens naming a session.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer builds an HS256 issuer.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
}

// Issue returns a signed token for sessionID expiring at expiresAt.
func (t *TokenIssuer) Issue(sessionID string, expiresAt time.Time) (string, error) {
	claims := tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(t.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "failed to sign session token", err)
	}
	return signed, nil
}

// Parse validates token and returns the session id it names.
func (t *TokenIssuer) Parse(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "missing session token", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", tok.Method.Alg())
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "session token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "session token invalid", nil)
	}
	if claims.TokenType != tokenType || claims.Subject == "" {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "session token has wrong type", nil)
	}
	return claims.Subject, nil
}

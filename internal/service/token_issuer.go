package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-users-api/internal/model"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type tokenClaims struct {
	Nickname string     `json:"nickname,omitempty"`
	Role     model.Role `json:"role,omitempty"`
	Type     string     `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 access/refresh JWTs. Verification checks
// signature, issuer, expiry and token kind only; it never consults a store.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, issuer string, accessTTL time.Duration, refreshTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if refreshTTL <= accessTTL {
		return nil, fmt.Errorf("refresh lifetime %s must exceed access lifetime %s", refreshTTL, accessTTL)
	}

	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

func (t *TokenIssuer) Issue(userID string, nickname string, role model.Role) (model.TokenPair, error) {
	now := t.now().UTC()
	accessExpiresAt := now.Add(t.accessTTL)
	refreshExpiresAt := now.Add(t.refreshTTL)

	accessToken, err := t.sign(tokenClaims{
		Nickname:         nickname,
		Role:             role,
		Type:             TokenTypeAccess,
		RegisteredClaims: t.registered(userID, now, accessExpiresAt),
	})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := t.sign(tokenClaims{
		Type:             TokenTypeRefresh,
		RegisteredClaims: t.registered(userID, now, refreshExpiresAt),
	})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return model.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int64(t.accessTTL.Seconds()),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (t *TokenIssuer) VerifyAccess(token string) (*model.AuthClaims, error) {
	return t.verify(token, TokenTypeAccess)
}

func (t *TokenIssuer) VerifyRefresh(token string) (*model.AuthClaims, error) {
	return t.verify(token, TokenTypeRefresh)
}

func (t *TokenIssuer) verify(tokenString string, expectedType string) (*model.AuthClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, invalidTokenError("token is empty")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		options = append(options, jwt.WithIssuer(t.issuer))
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, options...)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, invalidTokenError("token expired")
		}
		return nil, invalidTokenError("token malformed")
	}

	if claims.Type != expectedType {
		return nil, invalidTokenError("wrong token type")
	}
	if claims.Subject == "" {
		return nil, invalidTokenError("token subject missing")
	}

	return &model.AuthClaims{
		UserID:   claims.Subject,
		Nickname: claims.Nickname,
		Role:     claims.Role,
		Type:     claims.Type,
		TokenID:  claims.ID,
	}, nil
}

func (t *TokenIssuer) registered(subject string, issuedAt time.Time, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (t *TokenIssuer) sign(claims tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

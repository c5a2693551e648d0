package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type values embedded in claims. Verification rejects a token whose
// type does not match the expected kind, so a refresh token can never be
// presented as an access token or vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrTokenExpired is returned by the verify methods when the token signature
// is valid but the token is past its expiry.
var ErrTokenExpired = errors.New("token expired")

// AccessClaims represents the JWT claims for an access token.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the JWT claims for a refresh token. TokenFamily is
// the lineage identifier shared by every rotation of one original login.
type RefreshClaims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	TokenType   string `json:"token_type"`
	TokenFamily string `json:"token_family"`
	jwt.RegisteredClaims
}

// TokenCodec mints and verifies access and refresh tokens. The two kinds are
// signed with independent secrets so a compromise of one signing key cannot
// forge tokens of the other kind.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewTokenCodec creates a codec with per-kind secrets and expiry durations.
func NewTokenCodec(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// AccessExpiry returns the configured access token lifetime.
func (c *TokenCodec) AccessExpiry() time.Duration {
	return c.accessExpiry
}

// RefreshExpiry returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshExpiry() time.Duration {
	return c.refreshExpiry
}

// MintAccessToken creates a signed access token for the given user.
func (c *TokenCodec) MintAccessToken(userID, email, role string) (string, error) {
	now := time.Now().UTC()
	claims := &AccessClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessExpiry)),
			Issuer:    "auth-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(c.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signedToken, nil
}

// MintRefreshToken creates a signed refresh token in the given family.
func (c *TokenCodec) MintRefreshToken(userID, email, tokenFamily string) (string, error) {
	now := time.Now().UTC()
	claims := &RefreshClaims{
		UserID:      userID,
		Email:       email,
		TokenType:   TokenTypeRefresh,
		TokenFamily: tokenFamily,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshExpiry)),
			Issuer:    "auth-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(c.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccessToken parses and validates an access token, returning the claims.
// Expired tokens are reported as ErrTokenExpired.
func (c *TokenCodec) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}

	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token, returning the claims.
// Expired tokens are reported as ErrTokenExpired.
func (c *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.refreshSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parse refresh token: %w", err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid refresh token claims")
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}

	return claims, nil
}

// HashToken returns the SHA-256 hex digest of the given token string. Only
// this digest is ever stored in the ledger; it is never reversed.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// NewTokenFamily generates a fresh opaque family identifier for a new login.
func NewTokenFamily() string {
	return uuid.New().String()
}

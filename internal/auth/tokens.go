package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal scopes. Every access token carries exactly one; operations are
// authorized purely by scope match.
const (
	ScopeUser         = "user"
	ScopeOrganization = "organization"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated actor resolved from an access token.
type Principal struct {
	ID    int
	Scope string
}

// TokenPair is an access/refresh token pair issued at login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Manager issues and verifies RS256 token pairs. Access and refresh JTIs
// are tracked in the TokenStore; refresh rotation blacklists the paired
// access token so a stolen old token dies with the rotation.
type Manager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	tokens     TokenStore
}

// NewManager generates a fresh RSA key pair (in production, load from files)
// and wires the token store.
func NewManager(tokens TokenStore) (*Manager, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &Manager{privateKey: key, publicKey: &key.PublicKey, tokens: tokens}, nil
}

// Issue creates an access/refresh pair for the principal and records both
// JTIs plus the refresh-to-access mapping used for rotation.
func (m *Manager) Issue(ctx context.Context, p Principal) (TokenPair, error) {
	accessJti := uuid.New().String()
	accessClaims := jwt.MapClaims{
		"id":    p.ID,
		"scope": p.Scope,
		"jti":   accessJti,
		"exp":   time.Now().Add(AccessTokenTTL).Unix(),
		"iat":   time.Now().Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims).SignedString(m.privateKey)
	if err != nil {
		return TokenPair{}, err
	}

	principalVal := fmt.Sprintf("%s:%d", p.Scope, p.ID)
	if err := m.tokens.Set(ctx, "access_token:"+accessJti, principalVal, AccessTokenTTL); err != nil {
		return TokenPair{}, err
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"id":    p.ID,
		"scope": p.Scope,
		"jti":   refreshJti,
		"exp":   time.Now().Add(RefreshTokenTTL).Unix(),
		"iat":   time.Now().Unix(),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, refreshClaims).SignedString(m.privateKey)
	if err != nil {
		return TokenPair{}, err
	}

	if err := m.tokens.Set(ctx, "refresh_token:"+refreshJti, principalVal, RefreshTokenTTL); err != nil {
		return TokenPair{}, err
	}
	// Mapping refresh JTI -> access JTI so rotation can blacklist the old
	// access token.
	if err := m.tokens.Set(ctx, "refresh_to_access:"+refreshJti, accessJti, RefreshTokenTTL); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (m *Manager) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.publicKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func principalFromClaims(claims jwt.MapClaims) (Principal, error) {
	idFloat, ok := claims["id"].(float64)
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	scope, ok := claims["scope"].(string)
	if !ok || (scope != ScopeUser && scope != ScopeOrganization) {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: int(idFloat), Scope: scope}, nil
}

// VerifyAccess validates an access token and resolves its principal,
// rejecting blacklisted (logged out / rotated) tokens.
func (m *Manager) VerifyAccess(ctx context.Context, tokenString string) (Principal, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return Principal{}, err
	}
	if jti, ok := claims["jti"].(string); ok {
		val, err := m.tokens.Get(ctx, "blacklist:access_token:"+jti)
		if err == nil && val == "1" {
			return Principal{}, ErrInvalidToken
		}
	}
	return principalFromClaims(claims)
}

// Refresh rotates a refresh token: the old refresh JTI is deleted, its
// paired access token is blacklisted and a new pair is issued.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := m.parse(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	jti, ok := claims["jti"].(string)
	if !ok {
		return TokenPair{}, ErrInvalidToken
	}
	p, err := principalFromClaims(claims)
	if err != nil {
		return TokenPair{}, err
	}

	val, err := m.tokens.Get(ctx, "refresh_token:"+jti)
	if err != nil || val != fmt.Sprintf("%s:%d", p.Scope, p.ID) {
		return TokenPair{}, ErrInvalidToken
	}

	if oldAccessJti, err := m.tokens.Get(ctx, "refresh_to_access:"+jti); err == nil && oldAccessJti != "" {
		m.tokens.Set(ctx, "blacklist:access_token:"+oldAccessJti, "1", AccessTokenTTL)
	}

	m.tokens.Del(ctx, "refresh_token:"+jti)
	m.tokens.Del(ctx, "refresh_to_access:"+jti)

	return m.Issue(ctx, p)
}

// RevokeAccess blacklists an access token for the remainder of its life.
func (m *Manager) RevokeAccess(ctx context.Context, accessToken string) {
	claims, err := m.parse(accessToken)
	if err != nil {
		return
	}
	jti, ok := claims["jti"].(string)
	if !ok {
		return
	}
	if exp, ok := claims["exp"].(float64); ok {
		remaining := time.Until(time.Unix(int64(exp), 0))
		if remaining > 0 {
			m.tokens.Set(ctx, "blacklist:access_token:"+jti, "1", remaining)
		}
	}
}

// RevokeRefresh removes a refresh token's JTI so it can no longer rotate.
func (m *Manager) RevokeRefresh(ctx context.Context, refreshToken string) {
	claims, err := m.parse(refreshToken)
	if err != nil {
		return
	}
	if jti, ok := claims["jti"].(string); ok {
		m.tokens.Del(ctx, "refresh_token:"+jti)
		m.tokens.Del(ctx, "refresh_to_access:"+jti)
	}
}

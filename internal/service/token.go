package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cmsadmin/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer derives bearer tokens from user ids and maps them back.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
	Parse(token string) (int64, error)
}

// ErrInvalidToken is returned by Parse for tokens the issuer did not produce.
var ErrInvalidToken = errors.New("invalid token")

const legacyTokenPrefix = "dummy-token-"

// TokenIssuerName is the iss claim of signed tokens.
const TokenIssuerName = "cmsadmin"

// LegacyTokenIssuer issues the unsigned "dummy-token-<id>" tokens existing
// clients already hold.
type LegacyTokenIssuer struct{}

func (LegacyTokenIssuer) Issue(userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("issue token: invalid user id %d", userID)
	}
	return legacyTokenPrefix + strconv.FormatInt(userID, 10), nil
}

func (LegacyTokenIssuer) Parse(token string) (int64, error) {
	raw, ok := strings.CutPrefix(token, legacyTokenPrefix)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// JWTTokenIssuer issues HS256 tokens with the user id as subject. Tokens carry
// no expiry, so the same id always yields the same token.
type JWTTokenIssuer struct {
	secret []byte
}

func NewJWTTokenIssuer(secret string) *JWTTokenIssuer {
	return &JWTTokenIssuer{secret: []byte(secret)}
}

func (j *JWTTokenIssuer) Issue(userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("issue token: invalid user id %d", userID)
	}
	if len(j.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	claims := jwt.RegisteredClaims{
		Subject: strconv.FormatInt(userID, 10),
		Issuer:  TokenIssuerName,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTTokenIssuer) Parse(tokenString string) (int64, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithIssuer(TokenIssuerName), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// NewTokenIssuer builds the issuer selected by TOKEN_MODE.
func NewTokenIssuer(cfg *config.Config) TokenIssuer {
	if cfg != nil && cfg.TokenMode == "jwt" {
		return NewJWTTokenIssuer(cfg.JWTSecret)
	}
	return LegacyTokenIssuer{}
}

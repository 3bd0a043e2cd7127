// Package auth provides bearer-token generation and validation for
// catalogd's single AdminAuth account. There is no subscriber or
// multi-tenant model here: a token proves "this request holds the
// admin's key", nothing more.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims is the JWT claim set issued on a successful admin login.
type AdminClaims struct {
	jwt.RegisteredClaims
}

// GenerateAdminToken signs a short-lived bearer token for the admin
// account identified by adminID. secret is the operator-configured
// JWT_SECRET (internal/config.Config.JWTSecret); expiry is typically
// one hour, chosen by the caller so the login handler and any future
// refresh flow share one source of truth.
func GenerateAdminToken(adminID string, secret string, expiry time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("auth: JWT secret is empty")
	}
	now := time.Now()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Issuer:    "catalogd",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAdminToken parses and validates a bearer token against secret,
// returning the parsed claims on success.
func ValidateAdminToken(tokenStr, secret string) (*AdminClaims, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT secret is empty")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	return claims, nil
}

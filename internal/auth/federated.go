// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FederatedClaims are the claims of an ID token issued by the identity broker.
type FederatedClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// FederatedVerifier checks HS256 ID tokens signed with a shared secret.
type FederatedVerifier struct {
	secret []byte
	issuer string
}

// NewFederatedVerifier returns a verifier. An empty issuer accepts any issuer.
func NewFederatedVerifier(secret []byte, issuer string) *FederatedVerifier {
	return &FederatedVerifier{secret: secret, issuer: issuer}
}

// Verify parses token and returns its claims if the signature, expiry and
// issuer are valid and the email is verified.
func (v *FederatedVerifier) Verify(token string) (*FederatedClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &FederatedClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, errors.New("token carries no verified email")
	}
	return claims, nil
}

// SignFederatedToken issues a token the verifier accepts. The identity broker
// and tests use it.
func SignFederatedToken(secret []byte, claims FederatedClaims, ttl time.Duration) (string, error) {
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

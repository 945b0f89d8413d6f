package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskmate/model"
	"taskmate/session"
)

const tokenIssuer = "taskmate"

var ErrInvalidToken = errors.New("invalid access token")

// CreateAccessToken signs a development access token for the session.
func CreateAccessToken(secret []byte, sess session.Session, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := &model.AccessClaims{
		UserID:      sess.UID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   sess.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseAccessToken verifies an HS256 token and returns its session.
func ParseAccessToken(secret []byte, raw string) (session.Session, error) {
	claims := &model.AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return session.Session{}, ErrInvalidToken
	}
	return session.Session{UID: claims.UserID, Email: claims.Email, DisplayName: claims.DisplayName}, nil
}

package model

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the payload of development access tokens. Production
// sessions come from Firebase ID tokens instead.
type AccessClaims struct {
	UserID      string `json:"userId"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

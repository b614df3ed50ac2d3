package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are issued by the identity provider and carry the caller's role.
type JWTClaims struct {
	UserID string   `json:"sub"`
	Email  string   `json:"email,omitempty"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the user described by the claims.
func (c *JWTClaims) Actor() *User {
	if c == nil {
		return nil
	}
	return &User{ID: c.UserID, Email: c.Email, Role: c.Role}
}

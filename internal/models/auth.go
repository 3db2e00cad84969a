package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the auth service.
type JWTClaims struct {
	UserID   string   `json:"user_id,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the most specific caller identity carried by the token.
func (c *JWTClaims) Principal() string {
	switch {
	case c == nil:
		return ""
	case c.UserID != "":
		return c.UserID
	case c.Username != "":
		return c.Username
	default:
		return c.RegisteredClaims.Subject
	}
}

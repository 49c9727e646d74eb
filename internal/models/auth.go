package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Handle   string     `json:"handle"`
	FullName string     `json:"full_name"`
	Roles    []RoleType `json:"roles"`
}

// JWTClaims represents the JWT payload for access tokens. Roles carries
// the holder's active capability set at issuance time; authorization for
// link and ledger operations is still re-checked against storage.
type JWTClaims struct {
	UserID   string     `json:"user_id"`
	Roles    []RoleType `json:"roles"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims include the given capability.
func (c *JWTClaims) HasRole(role RoleType) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

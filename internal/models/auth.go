package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest creates a new instructor account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"nome" validate:"required"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token, user info and the result of the
// automatic backup sync attempted after authentication.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	IssuedAt    time.Time  `json:"issued_at"`
	User        UserInfo   `json:"user"`
	Sync        SyncReport `json:"sync"`
}

// UpdateProfileRequest updates name/email and optionally rotates the password.
type UpdateProfileRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"nome" validate:"required"`
	Password string `json:"senha" validate:"omitempty,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

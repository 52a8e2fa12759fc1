package identity

import (
	"time"

	"github.com/google/uuid"
)

// RegisterInput contains the input for user registration
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// UserInfo contains basic user information returned by auth operations
type UserInfo struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// AuthResult contains an issued access token and the authenticated user
type AuthResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
	User        UserInfo  `json:"user"`
}

// ForgotPasswordResult contains the outcome of a password reset request.
// The token is only populated when an account exists, callers decide
// whether to expose it (dev) or deliver it out of band (email).
type ForgotPasswordResult struct {
	ResetToken string
}

// ResetPasswordInput contains the input for completing a password reset
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

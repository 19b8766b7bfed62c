// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either by email/password sign-up or by GitHub OAuth.
// EmailVerified starts false for email sign-ups and flips to true exactly
// once when a verification token is redeemed; nothing ever flips it back.
// GitHub accounts arrive verified.
//
// GitHubID is nil for email accounts. The UNIQUE constraint on github_id
// (NULLs excluded) keeps one GitHub identity per account.
type User struct {
	ID            string    `json:"id"            db:"id"`
	Email         string    `json:"email"         db:"email"`
	Name          string    `json:"name"          db:"name"`
	PasswordHash  string    `json:"-"             db:"password_hash"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified"`
	GitHubID      *int64    `json:"githubId,omitempty" db:"github_id"`
	CreatedAt     time.Time `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt"     db:"updated_at"`
}

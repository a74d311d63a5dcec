// Package models defines the records shared between the storage, service,
// and router layers, together with the error kinds every handler maps onto
// an HTTP status.
package models

import "errors"

// User represents a registered account.
// Records are created on registration and never mutated or deleted afterwards.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	// Email is unique across all users, compared case-sensitively.
	Email string `json:"email"`

	// PasswordHash is a bcrypt hash of the user's password.
	PasswordHash string `json:"-"`
}

// Link is one shortened URL. OwnerID references a User.ID and is set once
// at creation; only LongURL is mutable.
type Link struct {
	Short   string `json:"short_url"`
	LongURL string `json:"long_url"`
	OwnerID string `json:"user_id"`
}

// OwnedLinks maps short codes to long URLs for a single owner.
type OwnedLinks map[string]string

// ErrValidation is returned when a required field is missing or empty.
var ErrValidation = errors.New("missing or empty required field")

// ErrDuplicateEmail is returned when registering an email that already has an account.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrAuthenticationFailed is returned on an unknown email or a wrong password.
var ErrAuthenticationFailed = errors.New("unknown email or wrong password")

// ErrForbidden is returned when the caller does not own the target link.
var ErrForbidden = errors.New("caller does not own the link")

// ErrNotFound is returned when a short code has no link.
var ErrNotFound = errors.New("short code not found")

// ErrShortKeysExhausted is returned when the collision-retry loop runs out of attempts.
var ErrShortKeysExhausted = errors.New("the number of attempts to generate a unique key has been exceeded")

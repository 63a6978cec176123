package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	IsVerified   bool      `json:"isVerified"`

	// Hashes of the emailed secrets, never the plaintext. A token field
	// and its expiry are either both set or both nil.
	VerificationTokenHash   *string    `json:"-"`
	VerificationTokenExpire *time.Time `json:"-"`
	ResetPasswordTokenHash  *string    `json:"-"`
	ResetPasswordExpire     *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the safe projection handed to clients: no password hash,
// no token material.
type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

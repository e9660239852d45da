package models

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

type User struct {
	ID                 string     `json:"id"`
	Firstname          string     `json:"firstname"`
	Lastname           string     `json:"lastname"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	ProfileImage       string     `json:"profileImage"`
	Roles              RoleSet    `json:"auth"`
	Active             bool       `json:"active"`
	Confirmed          bool       `json:"accountConfirmation"`
	ConfirmationToken  string     `json:"-"`
	PasswordResetToken string     `json:"-"`
	ResetTokenExpiry   *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// UserFilter selects users for admin listing and deletion. The zero value matches all users.
type UserFilter struct {
	ID string
}

func (f UserFilter) Match(u User) bool {
	return f.ID == "" || f.ID == u.ID
}

// NormalizeEmail trims and lowercases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GravatarURL builds the default avatar for email: 150px, "mystery person" fallback, pg rating.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return "https://s.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=150&r=pg&d=mm"
}

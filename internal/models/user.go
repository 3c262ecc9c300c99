package models

import (
	"golang.org/x/crypto/bcrypt"
)

// User is the journal owner. The journal is single-user; credentials come
// from configuration rather than a table.
type User struct {
	Username     string
	PasswordHash string
	TOTPSecret   string
}

// HashPassword generates bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares password with hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// TOTPEnabled reports whether login requires a second factor.
func (u *User) TOTPEnabled() bool {
	return u.TOTPSecret != ""
}

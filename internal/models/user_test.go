package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_CheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	u := User{Username: "admin", PasswordHash: hash}
	assert.True(t, u.CheckPassword("correct horse"))
	assert.False(t, u.CheckPassword("battery staple"))
	assert.False(t, u.CheckPassword(""))
}

func TestUser_CheckPassword_NoHash(t *testing.T) {
	u := User{Username: "admin"}
	assert.False(t, u.CheckPassword(""))
}

func TestUser_TOTPEnabled(t *testing.T) {
	assert.False(t, (&User{}).TOTPEnabled())
	assert.True(t, (&User{TOTPSecret: "JBSWY3DPEHPK3PXP"}).TOTPEnabled())
}

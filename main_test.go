package main

import (
	"os"
	"path/filepath"
	"testing"

	"thought-stream-go/internal/config"
	"thought-stream-go/internal/images"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUser_HashesPlainPassword(t *testing.T) {
	cfg := config.Defaults()
	cfg.Password = "hunter2"
	cfg.TOTPSecret = " JBSWY3DPEHPK3PXP\n"

	user, err := buildUser(cfg)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.NotEqual(t, "hunter2", user.PasswordHash)
	assert.True(t, user.CheckPassword("hunter2"))
	assert.Equal(t, "JBSWY3DPEHPK3PXP", user.TOTPSecret)
}

func TestBuildUser_KeepsConfiguredHash(t *testing.T) {
	cfg := config.Defaults()
	cfg.Password = "ignored"
	cfg.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"

	user, err := buildUser(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.PasswordHash, user.PasswordHash)
}

func TestParsePages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`{{.Username}}`), 0o644))

	pages, err := parsePages(dir, "index")
	require.NoError(t, err)
	assert.Contains(t, pages, "index")

	_, err = parsePages(dir, "index", "login")
	require.Error(t, err)
}

func TestParsePages_ShippedTemplates(t *testing.T) {
	pages, err := parsePages(filepath.Join("web", "templates"), "index", "login")
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestNewImageStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.UploadDir = t.TempDir()

	st, err := newImageStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &images.LocalStore{}, st)

	cfg.ImageBackend = config.ImageBackendS3
	cfg.S3.Bucket = "thoughts"
	cfg.S3.Endpoint = "http://localhost:9000"
	st, err = newImageStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &images.S3Store{}, st)
}

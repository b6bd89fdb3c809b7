// Package testsupport holds fixtures shared by the package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
)

// NewDatabase returns a migrated sqlite database in a per-test directory,
// with foreign keys enforced.
func NewDatabase(t *testing.T) *repository.Database {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "warbler-test.db"),
	}
	db, err := repository.NewDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// NewUser builds an unsaved user whose email is derived from username.
func NewUser(username string) *models.User {
	return &models.User{
		Email:    username + "@test.com",
		Username: username,
		Password: "HASHED_PASSWORD",
	}
}

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "file:///srv/migrations", SourceURL("/srv/migrations"))
	assert.Equal(t, "file://migrations", SourceURL("file://migrations"))

	abs, err := filepath.Abs("migrations")
	assert.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(abs), SourceURL("migrations"))
}

func TestNewMigrator_BadSource(t *testing.T) {
	_, err := NewMigrator("/nonexistent/migrations", "postgres://u:p@127.0.0.1:1/db?sslmode=disable")
	assert.Error(t, err)
}

package client

import (
	"os"
	"path/filepath"
	"testing"

	"cmsadmin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLoginRestoreLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewSession(NewFileSessionStore(path))
	assert.False(t, s.Restore())
	assert.False(t, s.IsAuthenticated())

	user := models.User{ID: 1, Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, s.Login(user, "dummy-token-1"))
	assert.True(t, s.IsAuthenticated())

	restored := NewSession(NewFileSessionStore(path))
	require.True(t, restored.Restore())
	current, ok := restored.Current()
	require.True(t, ok)
	assert.Equal(t, user, current)
	assert.Equal(t, "dummy-token-1", restored.Token())

	require.NoError(t, restored.Logout())
	assert.False(t, restored.IsAuthenticated())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSessionRestoreClearsBrokenState(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"token only", `{"authToken":"dummy-token-1"}`},
		{"user only", `{"user":"{\"id\":1}"}`},
		{"unparsable user", `{"authToken":"dummy-token-1","user":"{not json"}`},
		{"corrupt file", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			s := NewSession(NewFileSessionStore(path))
			assert.False(t, s.Restore())
			assert.False(t, s.IsAuthenticated())

			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err), "storage is cleared")
		})
	}
}

func TestFileSessionStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	store := NewFileSessionStore(path)
	require.NoError(t, store.Set(map[string]string{KeyAuthToken: "t"}))

	reopened := NewFileSessionStore(path)
	v, ok := reopened.Get(KeyAuthToken)
	assert.True(t, ok)
	assert.Equal(t, "t", v)
}

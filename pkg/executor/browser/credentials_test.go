package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCredentials_MissingFileIsEmptyStore(t *testing.T) {
	store, err := LoadCredentials(filepath.Join(t.TempDir(), "credentials.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	_, ok := store.Lookup("example.com")
	assert.False(t, ok)
}

func TestCredentialStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")

	store, err := LoadCredentials(path)
	require.NoError(t, err)
	store.Set("shop.example.com", Credentials{Username: "alice", Password: "s3cret"})
	require.NoError(t, store.Save())

	// Owner-only permissions on the file.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := LoadCredentials(path)
	require.NoError(t, err)
	creds, ok := reloaded.Lookup("shop.example.com")
	require.True(t, ok)
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
	assert.NotEmpty(t, creds.SavedAt)
}

func TestCredentialStore_LookupSubdomains(t *testing.T) {
	store, err := LoadCredentials(filepath.Join(t.TempDir(), "credentials.yaml"))
	require.NoError(t, err)
	store.Set("example.com", Credentials{Username: "alice", Password: "pw"})

	for _, host := range []string{"example.com", "www.example.com", "login.example.com", "EXAMPLE.COM"} {
		creds, ok := store.Lookup(host)
		assert.True(t, ok, host)
		assert.Equal(t, "alice", creds.Username, host)
	}

	// Suffix matching requires a dot boundary.
	_, ok := store.Lookup("notexample.com")
	assert.False(t, ok)
}

func TestLoadCredentials_MalformedFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0600))

	store, err := LoadCredentials(path)
	require.Error(t, err)
	require.NotNil(t, store)
	assert.Equal(t, 0, store.Len())
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "shop.example.com", hostOf("https://shop.example.com/cart?id=1"))
	assert.Equal(t, "example.com", hostOf("https://example.com:8443/login"))
	assert.Equal(t, "", hostOf("://bad"))
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
)

// generateLocalSecretsURI generates a base64key:// URI for testing.
func generateLocalSecretsURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func TestKMSService_OpenKeeper(t *testing.T) {
	ctx := context.Background()
	kmsService := NewKMSService()

	t.Run("Success_LocalSecrets", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, generateLocalSecretsURI(t))
		require.NoError(t, err)
		defer func() { assert.NoError(t, keeper.Close()) }()

		_, ok := keeper.(*secrets.Keeper)
		assert.True(t, ok, "keeper should be *secrets.Keeper")
	})

	t.Run("Error_InvalidURI", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, "invalid://uri")
		assert.Error(t, err)
		assert.Nil(t, keeper)
		assert.Contains(t, err.Error(), "failed to open KMS keeper")
	})

	t.Run("Error_EmptyURI", func(t *testing.T) {
		_, err := kmsService.OpenKeeper(ctx, "")
		assert.ErrorIs(t, err, cryptoDomain.ErrKMSKeyURIMissing)
	})
}

func TestLoadOrCreateDataKey(t *testing.T) {
	ctx := context.Background()
	keeper, err := NewKMSService().OpenKeeper(ctx, generateLocalSecretsURI(t))
	require.NoError(t, err)
	defer func() { _ = keeper.Close() }()

	path := filepath.Join(t.TempDir(), "keystore.key")

	t.Run("Success_CreatesThenReloads", func(t *testing.T) {
		created, err := LoadOrCreateDataKey(ctx, keeper, path)
		require.NoError(t, err)
		assert.Len(t, created, cryptoDomain.KeySize)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		stored, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(stored), base64.StdEncoding.EncodeToString(created))

		loaded, err := LoadOrCreateDataKey(ctx, keeper, path)
		require.NoError(t, err)
		assert.Equal(t, created, loaded)
	})

	t.Run("Error_WrongKMSKey", func(t *testing.T) {
		other, err := NewKMSService().OpenKeeper(ctx, generateLocalSecretsURI(t))
		require.NoError(t, err)
		defer func() { _ = other.Close() }()

		_, err = LoadOrCreateDataKey(ctx, other, path)
		assert.Error(t, err)
	})

	t.Run("Error_NotBase64", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "keystore.key")
		require.NoError(t, os.WriteFile(bad, []byte("!!!"), 0600))

		_, err := LoadOrCreateDataKey(ctx, keeper, bad)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeystoreCorrupt)
	})
}

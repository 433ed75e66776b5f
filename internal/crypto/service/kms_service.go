package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	"github.com/allisson/btsguard/internal/fsutil"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens a secrets.Keeper for the configured KMS provider using the keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	if keyURI == "" {
		return nil, cryptoDomain.ErrKMSKeyURIMissing
	}
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// LoadOrCreateDataKey unwraps the keystore data key stored at path, creating and
// wrapping a fresh random key on first use. The file holds only KMS ciphertext.
func LoadOrCreateDataKey(ctx context.Context, keeper cryptoDomain.KMSKeeper, path string) ([]byte, error) {
	encoded, err := os.ReadFile(path)
	switch {
	case err == nil:
		ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
		if err != nil {
			return nil, fmt.Errorf("%w: data key is not base64: %v", cryptoDomain.ErrKeystoreCorrupt, err)
		}
		key, err := keeper.Decrypt(ctx, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap data key: %w", err)
		}
		if len(key) != cryptoDomain.KeySize {
			cryptoDomain.Zero(key)
			return nil, cryptoDomain.ErrInvalidKeySize
		}
		return key, nil
	case os.IsNotExist(err):
		return createDataKey(ctx, keeper, path)
	default:
		return nil, fmt.Errorf("failed to read data key: %w", err)
	}
}

func createDataKey(ctx context.Context, keeper cryptoDomain.KMSKeeper, path string) ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		cryptoDomain.Zero(key)
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(ciphertext) + "\n"
	if err := fsutil.AtomicWriteFile(path, []byte(encoded), 0600); err != nil {
		cryptoDomain.Zero(key)
		return nil, fmt.Errorf("failed to store data key: %w", err)
	}
	return key, nil
}

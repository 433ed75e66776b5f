package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	cryptoService "github.com/allisson/btsguard/internal/crypto/service"
)

// RunCreateKeystoreKey prints a KMS_KEY_URI for the keystore. With no URI it
// generates a local base64key:// key; otherwise it checks the KMS key can wrap
// and unwrap a data key.
//
// Security: never use base64key:// in production. Use a cloud KMS or Vault.
func RunCreateKeystoreKey(
	ctx context.Context,
	kms cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	local := kmsKeyURI == ""
	if local {
		key := make([]byte, cryptoDomain.KeySize)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("failed to generate keystore key: %w", err)
		}
		kmsKeyURI = "base64key://" + base64.URLEncoding.EncodeToString(key)
		cryptoDomain.Zero(key)
	}

	keeper, err := kms.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	probe := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(probe); err != nil {
		return fmt.Errorf("failed to generate probe: %w", err)
	}
	defer cryptoDomain.Zero(probe)

	ciphertext, err := keeper.Encrypt(ctx, probe)
	if err != nil {
		return fmt.Errorf("failed to wrap with KMS key: %w", err)
	}
	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return fmt.Errorf("failed to unwrap with KMS key: %w", err)
	}
	defer cryptoDomain.Zero(plaintext)
	if !bytes.Equal(probe, plaintext) {
		return fmt.Errorf("KMS key round trip mismatch")
	}

	if local {
		_, _ = fmt.Fprintln(writer, "# Local keystore key; for development only")
	} else {
		_, _ = fmt.Fprintln(writer, "# KMS key verified")
	}
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=%q\n", kmsKeyURI)
	return nil
}

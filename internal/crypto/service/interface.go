// Package service provides the cryptographic building blocks of the keystore:
// AEAD ciphers for sealing private keys, the KMS-wrapped data key and the
// X.509 certificate generator.
package service

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KMSService opens keepers for KMS key URIs.
type KMSService interface {
	// OpenKeeper opens a keeper for the configured KMS provider.
	// Returns an error if the KMS provider URI is invalid or connection fails.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

// GeneratedCertificate is the output of a generation: the public record plus the
// private key in PKCS#8 DER, which the caller must seal and then zero.
type GeneratedCertificate struct {
	Certificate *cryptoDomain.Certificate
	KeyDER      []byte
}

// CertificateGenerator issues self-signed leaf certificates.
type CertificateGenerator interface {
	// Generate creates a fresh ECDSA P-256 key pair and certificate. serialTaken is
	// consulted so the serial number is unique within the keystore.
	Generate(
		subject cryptoDomain.Subject,
		validity time.Duration,
		serialTaken func(serial string) bool,
	) (*GeneratedCertificate, error)
}

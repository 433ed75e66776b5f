package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	"github.com/allisson/btsguard/internal/fsutil"
)

// KeyPairSource is the part of the credential store the installer needs.
type KeyPairSource interface {
	Active(ctx context.Context) (*cryptoDomain.Certificate, error)
	MaterializeKeyPair(ctx context.Context, certID uuid.UUID, write func(certPEM, keyPEM []byte) error) error
}

// CredentialInstaller writes the active certificate and key where the service reads them.
type CredentialInstaller struct {
	keys     KeyPairSource
	certPath string
	keyPath  string
	logger   *slog.Logger
}

// NewCredentialInstaller creates an installer writing to certPath and keyPath.
func NewCredentialInstaller(keys KeyPairSource, certPath, keyPath string, logger *slog.Logger) *CredentialInstaller {
	return &CredentialInstaller{keys: keys, certPath: certPath, keyPath: keyPath, logger: logger}
}

// Install materializes the newest usable certificate. The certificate is 0644,
// the key 0600, and their directories 0700.
func (c *CredentialInstaller) Install(ctx context.Context) error {
	cert, err := c.keys.Active(ctx)
	if err != nil {
		return err
	}

	err = c.keys.MaterializeKeyPair(ctx, cert.ID, func(certPEM, keyPEM []byte) error {
		for _, dir := range []string{filepath.Dir(c.certPath), filepath.Dir(c.keyPath)} {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := fsutil.AtomicWriteFile(c.keyPath, keyPEM, 0600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		if err := fsutil.AtomicWriteFile(c.certPath, certPEM, 0644); err != nil {
			return fmt.Errorf("write certificate: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("tls credentials installed",
		slog.String("certificate_id", cert.ID.String()),
		slog.String("fingerprint", cert.Fingerprint),
		slog.String("cert_path", c.certPath),
	)
	return nil
}

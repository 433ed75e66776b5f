package app

import (
	"context"
	"fmt"

	auditRepository "github.com/allisson/btsguard/internal/audit/repository"
	auditService "github.com/allisson/btsguard/internal/audit/service"
	auditUseCase "github.com/allisson/btsguard/internal/audit/usecase"
	authRepository "github.com/allisson/btsguard/internal/auth/repository"
	authService "github.com/allisson/btsguard/internal/auth/service"
	authUseCase "github.com/allisson/btsguard/internal/auth/usecase"
	backupRepository "github.com/allisson/btsguard/internal/backup/repository"
	backupUseCase "github.com/allisson/btsguard/internal/backup/usecase"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	cryptoRepository "github.com/allisson/btsguard/internal/crypto/repository"
	cryptoService "github.com/allisson/btsguard/internal/crypto/service"
	cryptoUseCase "github.com/allisson/btsguard/internal/crypto/usecase"
	"github.com/allisson/btsguard/internal/fsutil"
)

// totpIssuer is shown by authenticator apps next to the operator name.
const totpIssuer = "btsguard"

// AuditRepository returns the bbolt-backed audit store. Opening it takes the
// instance lock on the state directory.
func (c *Container) AuditRepository() (*auditRepository.BoltRepository, error) {
	var err error
	c.auditRepoInit.Do(func() {
		c.auditRepo, err = c.initAuditRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// KeystoreKey returns the unwrapped keystore data key, creating it on first use.
func (c *Container) KeystoreKey(ctx context.Context) ([]byte, error) {
	var err error
	c.keystoreKeyInit.Do(func() {
		c.keystoreKey, err = c.initKeystoreKey(ctx)
		if err != nil {
			c.initErrors["keystoreKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keystoreKey"]; exists {
		return nil, storedErr
	}
	return c.keystoreKey, nil
}

// AuditUseCase returns the audit recorder.
func (c *Container) AuditUseCase(ctx context.Context) (auditUseCase.UseCase, error) {
	var err error
	c.auditUseCaseInit.Do(func() {
		c.auditUseCase, err = c.initAuditUseCase(ctx)
		if err != nil {
			c.initErrors["auditUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditUseCase, nil
}

// CertificateUseCase returns the credential store.
func (c *Container) CertificateUseCase(ctx context.Context) (cryptoUseCase.CertificateUseCase, error) {
	var err error
	c.certificateUseCaseInit.Do(func() {
		c.certificateUseCase, err = c.initCertificateUseCase(ctx)
		if err != nil {
			c.initErrors["certificateUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["certificateUseCase"]; exists {
		return nil, storedErr
	}
	return c.certificateUseCase, nil
}

// AuthUseCase returns the access control use case.
func (c *Container) AuthUseCase(ctx context.Context) (authUseCase.AuthUseCase, error) {
	var err error
	c.authUseCaseInit.Do(func() {
		c.authUseCase, err = c.initAuthUseCase(ctx)
		if err != nil {
			c.initErrors["authUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authUseCase"]; exists {
		return nil, storedErr
	}
	return c.authUseCase, nil
}

// BackupUseCase returns the backup manager.
func (c *Container) BackupUseCase(ctx context.Context) (backupUseCase.BackupUseCase, error) {
	var err error
	c.backupUseCaseInit.Do(func() {
		c.backupUseCase, err = c.initBackupUseCase(ctx)
		if err != nil {
			c.initErrors["backupUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["backupUseCase"]; exists {
		return nil, storedErr
	}
	return c.backupUseCase, nil
}

// initAuditRepository opens the audit database below the state directory.
func (c *Container) initAuditRepository() (*auditRepository.BoltRepository, error) {
	if err := fsutil.EnsureDir(c.config.StateDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	repo, err := auditRepository.NewBoltRepository(c.config.AuditDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	return repo, nil
}

// initKeystoreKey opens the KMS keeper, unwraps the data key and closes the keeper.
func (c *Container) initKeystoreKey(ctx context.Context) ([]byte, error) {
	keeper, err := cryptoService.NewKMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			c.Logger().Warn("failed to close KMS keeper", "error", closeErr)
		}
	}()

	if err := fsutil.EnsureDir(c.config.KeystoreDir(), 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	key, err := cryptoService.LoadOrCreateDataKey(ctx, keeper, c.config.KeystoreKeyPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load keystore key: %w", err)
	}
	return key, nil
}

// initAuditUseCase signs entries with a key derived from the keystore key.
func (c *Container) initAuditUseCase(ctx context.Context) (auditUseCase.UseCase, error) {
	repo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit use case: %w", err)
	}

	key, err := c.KeystoreKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keystore key for audit use case: %w", err)
	}

	return auditUseCase.NewAuditUseCase(
		repo,
		auditService.NewSigner(),
		key,
		c.config.AuditRetryMaxElapsed,
		c.Logger(),
	), nil
}

// initCertificateUseCase loads the keystore index; a corrupt index is returned as is.
func (c *Container) initCertificateUseCase(ctx context.Context) (cryptoUseCase.CertificateUseCase, error) {
	key, err := c.KeystoreKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keystore key for certificate use case: %w", err)
	}

	audit, err := c.AuditUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for certificate use case: %w", err)
	}

	keystore, err := cryptoRepository.NewFileKeystore(c.config.KeystoreDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	baseUseCase, err := cryptoUseCase.NewCertificateUseCase(ctx, cryptoUseCase.CertificateUseCaseParams{
		Repository:  keystore,
		Generator:   cryptoService.NewCertificateGenerator(),
		AEADManager: cryptoService.NewAEADManager(),
		DataKey:     key,
		Algorithm:   cryptoDomain.Algorithm(c.config.KeystoreAlgorithm),
		Overlap:     c.config.CertOverlap,
		Audit:       audit,
		Logger:      c.Logger(),
	})
	if err != nil {
		return nil, err
	}

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for certificate use case: %w", err)
		}
		return cryptoUseCase.NewCertificateUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAuthUseCase creates the access control use case with its throttle.
func (c *Container) initAuthUseCase(ctx context.Context) (authUseCase.AuthUseCase, error) {
	audit, err := c.AuditUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for auth use case: %w", err)
	}

	repo, err := authRepository.NewFileOperatorRepository(c.config.OperatorsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open operator file: %w", err)
	}

	baseUseCase := authUseCase.NewAuthUseCase(authUseCase.AuthUseCaseParams{
		Repository: repo,
		Hasher:     authService.NewPasswordHasher(),
		TOTP:       authService.NewTOTPService(totpIssuer),
		Throttle: authService.NewThrottle(
			c.config.AuthRateLimitPerSec,
			c.config.AuthRateLimitBurst,
			c.config.LockoutMaxAttempts,
			c.config.LockoutDuration,
		),
		Audit:  audit,
		Logger: c.Logger(),
	})

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for auth use case: %w", err)
		}
		return authUseCase.NewAuthUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initBackupUseCase creates the backup manager over the config and credential stores.
func (c *Container) initBackupUseCase(ctx context.Context) (backupUseCase.BackupUseCase, error) {
	configStore, err := c.ConfigUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config use case for backup use case: %w", err)
	}

	certificates, err := c.CertificateUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate use case for backup use case: %w", err)
	}

	audit, err := c.AuditUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for backup use case: %w", err)
	}

	repo, err := backupRepository.NewFileRepository(c.config.BackupDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open backup directory: %w", err)
	}

	baseUseCase := backupUseCase.NewBackupUseCase(backupUseCase.BackupUseCaseParams{
		Repository: repo,
		Config:     configStore,
		Keys:       certificates,
		Audit:      audit,
		Logger:     c.Logger(),
	})

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for backup use case: %w", err)
		}
		return backupUseCase.NewBackupUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

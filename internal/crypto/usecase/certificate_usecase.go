package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	cryptoService "github.com/allisson/btsguard/internal/crypto/service"
	apperrors "github.com/allisson/btsguard/internal/errors"
)

type certificateUseCase struct {
	repo        Repository
	generator   cryptoService.CertificateGenerator
	aeadManager cryptoService.AEADManager
	dataKey     []byte
	algorithm   cryptoDomain.Algorithm
	overlap     time.Duration
	audit       AuditRecorder
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.RWMutex
	certs []*cryptoDomain.Certificate

	rotating sync.Map
}

// CertificateUseCaseParams groups the dependencies of the credential store.
type CertificateUseCaseParams struct {
	Repository  Repository
	Generator   cryptoService.CertificateGenerator
	AEADManager cryptoService.AEADManager
	DataKey     []byte
	Algorithm   cryptoDomain.Algorithm
	Overlap     time.Duration
	Audit       AuditRecorder
	Logger      *slog.Logger
}

// NewCertificateUseCase loads the keystore index. A corrupt index is returned as an
// error and must stop the process.
func NewCertificateUseCase(ctx context.Context, params CertificateUseCaseParams) (CertificateUseCase, error) {
	if len(params.DataKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	if _, err := params.AEADManager.CreateCipher(params.DataKey, params.Algorithm); err != nil {
		return nil, err
	}

	certs, err := params.Repository.LoadCertificates(ctx)
	if err != nil {
		return nil, err
	}

	return &certificateUseCase{
		repo:        params.Repository,
		generator:   params.Generator,
		aeadManager: params.AEADManager,
		dataKey:     params.DataKey,
		algorithm:   params.Algorithm,
		overlap:     params.Overlap,
		audit:       params.Audit,
		logger:      params.Logger,
		now:         time.Now,
		certs:       certs,
	}, nil
}

func (c *certificateUseCase) subjectLock(subject cryptoDomain.Subject) *sync.Mutex {
	lock, _ := c.rotating.LoadOrStore(subject.Key(), &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// serialTaken must be called with c.mu held.
func (c *certificateUseCase) serialTaken(serial string) bool {
	for _, cert := range c.certs {
		if cert.SerialNumber == serial {
			return true
		}
	}
	return false
}

// find must be called with c.mu held.
func (c *certificateUseCase) find(certID uuid.UUID) (int, *cryptoDomain.Certificate) {
	for i, cert := range c.certs {
		if cert.ID == certID {
			return i, cert
		}
	}
	return -1, nil
}

// seal encrypts the private key under the data key and persists it.
func (c *certificateUseCase) seal(ctx context.Context, handle uuid.UUID, keyDER []byte) error {
	cipher, err := c.aeadManager.CreateCipher(c.dataKey, c.algorithm)
	if err != nil {
		return err
	}
	ciphertext, nonce, err := cipher.Encrypt(keyDER, handle[:])
	if err != nil {
		return err
	}
	return c.repo.SaveKey(ctx, &cryptoDomain.SealedKey{
		Handle:     handle,
		Algorithm:  c.algorithm,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	})
}

func (c *certificateUseCase) unseal(key *cryptoDomain.SealedKey) ([]byte, error) {
	cipher, err := c.aeadManager.CreateCipher(c.dataKey, key.Algorithm)
	if err != nil {
		return nil, err
	}
	return cipher.Decrypt(key.Ciphertext, key.Nonce, key.Handle[:])
}

// commit records the audit entry and then swaps the index. A failed audit or
// index write removes the freshly sealed key so nothing becomes visible.
func (c *certificateUseCase) commit(
	ctx context.Context,
	entry *auditDomain.Entry,
	next []*cryptoDomain.Certificate,
	newKey uuid.UUID,
) error {
	if _, err := c.audit.Record(ctx, entry); err != nil {
		_ = c.repo.DeleteKey(ctx, newKey)
		return err
	}
	if err := c.repo.SaveCertificates(ctx, next); err != nil {
		_ = c.repo.DeleteKey(ctx, newKey)
		failed := *entry
		failed.Result = auditDomain.Failed("index write failed")
		if _, auditErr := c.audit.Record(ctx, &failed); auditErr != nil {
			c.logger.Error("failed to record keystore failure", slog.Any("error", auditErr))
		}
		return &cryptoDomain.CryptoError{Op: string(entry.Action), Reason: "index-write", Err: err}
	}
	c.certs = next
	return nil
}

func (c *certificateUseCase) issue(
	ctx context.Context,
	op string,
	subject cryptoDomain.Subject,
	validity time.Duration,
) (*cryptoDomain.Certificate, error) {
	generated, err := c.generator.Generate(subject, validity, c.serialTaken)
	if err != nil {
		var cryptoErr *cryptoDomain.CryptoError
		if apperrors.As(err, &cryptoErr) {
			return nil, err
		}
		return nil, &cryptoDomain.CryptoError{Op: op, Reason: cryptoDomain.ReasonKeyGeneration, Err: err}
	}
	defer cryptoDomain.Zero(generated.KeyDER)

	cert := generated.Certificate
	if err := c.seal(ctx, cert.KeyHandle, generated.KeyDER); err != nil {
		return nil, &cryptoDomain.CryptoError{Op: op, Reason: "key-seal", Err: err}
	}
	return cert, nil
}

// Generate creates a new active certificate for the subject.
func (c *certificateUseCase) Generate(
	ctx context.Context,
	actorID string,
	subject cryptoDomain.Subject,
	validity time.Duration,
) (*cryptoDomain.Certificate, error) {
	if validity <= 0 {
		return nil, &cryptoDomain.CryptoError{Op: "generate", Reason: cryptoDomain.ReasonInvalidValidity}
	}

	lock := c.subjectLock(subject)
	if !lock.TryLock() {
		return nil, &cryptoDomain.CryptoError{Op: "generate", Reason: cryptoDomain.ReasonInUse}
	}
	defer lock.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	cert, err := c.issue(ctx, "generate", subject, validity)
	if err != nil {
		return nil, err
	}

	next := make([]*cryptoDomain.Certificate, 0, len(c.certs)+1)
	next = append(next, c.certs...)
	next = append(next, cert)

	entry := &auditDomain.Entry{
		ActorID:     actorID,
		Action:      auditDomain.ActionCertGenerate,
		Target:      cert.ID.String(),
		AfterDigest: cert.Fingerprint,
		Result:      auditDomain.Succeeded(),
	}
	if err := c.commit(ctx, entry, next, cert.KeyHandle); err != nil {
		return nil, err
	}

	c.logger.Info("certificate generated",
		slog.String("certificate_id", cert.ID.String()),
		slog.String("subject", subject.CommonName),
		slog.Time("not_after", cert.NotAfter),
	)
	return cloneCertificate(cert), nil
}

// Rotate supersedes the certificate with a new one for the same subject.
func (c *certificateUseCase) Rotate(
	ctx context.Context,
	actorID string,
	certID uuid.UUID,
) (*cryptoDomain.Certificate, error) {
	c.mu.RLock()
	_, current := c.find(certID)
	var subject cryptoDomain.Subject
	if current != nil {
		subject = current.Subject
	}
	c.mu.RUnlock()
	if current == nil {
		return nil, cryptoDomain.ErrCertificateNotFound
	}

	lock := c.subjectLock(subject)
	if !lock.TryLock() {
		return nil, &cryptoDomain.CryptoError{Op: "rotate", Reason: cryptoDomain.ReasonInUse}
	}
	defer lock.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	index, current := c.find(certID)
	if current == nil {
		return nil, cryptoDomain.ErrCertificateNotFound
	}
	if current.Status != cryptoDomain.StatusActive {
		return nil, &cryptoDomain.CryptoError{Op: "rotate", Reason: cryptoDomain.ReasonNotActive}
	}

	validity := current.Validity
	if validity <= 0 {
		validity = current.NotAfter.Sub(current.NotBefore)
	}
	replacement, err := c.issue(ctx, "rotate", current.Subject, validity)
	if err != nil {
		return nil, err
	}

	superseded := cloneCertificate(current)
	superseded.Status = cryptoDomain.StatusSuperseded
	superseded.SupersededBy = &replacement.ID
	graceUntil := c.now().UTC().Add(c.overlap)
	superseded.GraceUntil = &graceUntil

	next := make([]*cryptoDomain.Certificate, 0, len(c.certs)+1)
	next = append(next, c.certs...)
	next[index] = superseded
	next = append(next, replacement)

	entry := &auditDomain.Entry{
		ActorID:      actorID,
		Action:       auditDomain.ActionCertRotate,
		Target:       current.ID.String(),
		BeforeDigest: current.Fingerprint,
		AfterDigest:  replacement.Fingerprint,
		Result:       auditDomain.Succeeded(),
	}
	if err := c.commit(ctx, entry, next, replacement.KeyHandle); err != nil {
		return nil, err
	}

	c.logger.Info("certificate rotated",
		slog.String("superseded_id", current.ID.String()),
		slog.String("certificate_id", replacement.ID.String()),
		slog.Time("grace_until", graceUntil),
	)
	return cloneCertificate(replacement), nil
}

// Expiring lists active certificates with NotAfter in [now, now+within].
func (c *certificateUseCase) Expiring(
	ctx context.Context,
	within time.Duration,
) ([]*cryptoDomain.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	deadline := now.Add(within)
	result := make([]*cryptoDomain.Certificate, 0)
	for _, cert := range c.certs {
		if cert.Status != cryptoDomain.StatusActive {
			continue
		}
		if cert.NotAfter.Before(now) || cert.NotAfter.After(deadline) {
			continue
		}
		result = append(result, cloneCertificate(cert))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].NotAfter.Before(result[j].NotAfter)
	})
	return result, nil
}

// Get returns a copy of the certificate record.
func (c *certificateUseCase) Get(ctx context.Context, certID uuid.UUID) (*cryptoDomain.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, cert := c.find(certID)
	if cert == nil {
		return nil, cryptoDomain.ErrCertificateNotFound
	}
	return c.observe(cert, c.now()), nil
}

// observe returns a copy carrying the status readers see at now.
func (c *certificateUseCase) observe(cert *cryptoDomain.Certificate, now time.Time) *cryptoDomain.Certificate {
	clone := cloneCertificate(cert)
	clone.Status = cert.ObservedStatus(now)
	return clone
}

// List returns copies of every record, oldest first.
func (c *certificateUseCase) List(ctx context.Context) ([]*cryptoDomain.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	result := make([]*cryptoDomain.Certificate, 0, len(c.certs))
	for _, cert := range c.certs {
		result = append(result, c.observe(cert, now))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Active returns the most recently created usable active certificate.
func (c *certificateUseCase) Active(ctx context.Context) (*cryptoDomain.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var newest *cryptoDomain.Certificate
	for _, cert := range c.certs {
		if cert.Status != cryptoDomain.StatusActive || !cert.Usable(now) {
			continue
		}
		if newest == nil || !cert.CreatedAt.Before(newest.CreatedAt) {
			newest = cert
		}
	}
	if newest == nil {
		return nil, cryptoDomain.ErrNoActiveCertificate
	}
	return cloneCertificate(newest), nil
}

// MaterializeKeyPair unseals the key of a usable certificate for the service.
func (c *certificateUseCase) MaterializeKeyPair(
	ctx context.Context,
	certID uuid.UUID,
	write func(certPEM, keyPEM []byte) error,
) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, cert := c.find(certID)
	if cert == nil {
		return cryptoDomain.ErrCertificateNotFound
	}
	if !cert.Usable(c.now()) {
		return &cryptoDomain.CryptoError{Op: "materialize", Reason: cryptoDomain.ReasonNotActive}
	}

	sealed, err := c.repo.LoadKey(ctx, cert.KeyHandle)
	if err != nil {
		return err
	}
	keyDER, err := c.unseal(sealed)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(keyDER)

	keyPEM := cryptoService.EncodePrivateKeyPEM(keyDER)
	defer cryptoDomain.Zero(keyPEM)

	return write(cert.CertPEM, keyPEM)
}

// ExportState returns the sealed keystore content.
func (c *certificateUseCase) ExportState(ctx context.Context) (*cryptoDomain.State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := &cryptoDomain.State{
		Certificates: make([]*cryptoDomain.Certificate, 0, len(c.certs)),
		Keys:         make([]*cryptoDomain.SealedKey, 0, len(c.certs)),
	}
	for _, cert := range c.certs {
		key, err := c.repo.LoadKey(ctx, cert.KeyHandle)
		if err != nil {
			return nil, err
		}
		state.Certificates = append(state.Certificates, cloneCertificate(cert))
		state.Keys = append(state.Keys, key)
	}
	return state, nil
}

// ImportState restores the keystore content. Every certificate must have a key that
// opens with the current data key, otherwise nothing is changed. Records missing from
// the state are kept as superseded with the usual overlap, so their keys stay referenced.
func (c *certificateUseCase) ImportState(ctx context.Context, state *cryptoDomain.State) error {
	if state == nil {
		return apperrors.Wrap(cryptoDomain.ErrKeystoreCorrupt, "empty keystore state")
	}

	keys := make(map[uuid.UUID]*cryptoDomain.SealedKey, len(state.Keys))
	for _, key := range state.Keys {
		if key == nil {
			return cryptoDomain.ErrKeystoreCorrupt
		}
		keys[key.Handle] = key
	}
	for _, cert := range state.Certificates {
		key, ok := keys[cert.KeyHandle]
		if !ok {
			return apperrors.Wrapf(cryptoDomain.ErrKeystoreCorrupt, "missing key for certificate %s", cert.ID)
		}
		plaintext, err := c.unseal(key)
		if err != nil {
			return apperrors.Wrapf(cryptoDomain.ErrKeystoreCorrupt, "key for certificate %s", cert.ID)
		}
		cryptoDomain.Zero(plaintext)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cert := range state.Certificates {
		if err := c.repo.SaveKey(ctx, keys[cert.KeyHandle]); err != nil {
			return err
		}
	}

	next := make([]*cryptoDomain.Certificate, 0, len(state.Certificates)+len(c.certs))
	restored := make(map[uuid.UUID]struct{}, len(state.Certificates))
	for _, cert := range state.Certificates {
		next = append(next, cloneCertificate(cert))
		restored[cert.ID] = struct{}{}
	}

	graceUntil := c.now().UTC().Add(c.overlap)
	retained := 0
	for _, cert := range c.certs {
		if _, ok := restored[cert.ID]; ok {
			continue
		}
		kept := cloneCertificate(cert)
		if kept.Status == cryptoDomain.StatusActive {
			kept.Status = cryptoDomain.StatusSuperseded
			grace := graceUntil
			kept.GraceUntil = &grace
		}
		next = append(next, kept)
		retained++
	}

	if err := c.repo.SaveCertificates(ctx, next); err != nil {
		return err
	}
	c.certs = next

	c.logger.Info("keystore state imported",
		slog.Int("certificates", len(state.Certificates)),
		slog.Int("retained", retained),
	)
	return nil
}

func cloneCertificate(cert *cryptoDomain.Certificate) *cryptoDomain.Certificate {
	clone := *cert
	clone.CertPEM = append([]byte(nil), cert.CertPEM...)
	clone.Subject.DNSNames = append([]string(nil), cert.Subject.DNSNames...)
	clone.Subject.IPAddresses = append([]string(nil), cert.Subject.IPAddresses...)
	if cert.SupersededBy != nil {
		id := *cert.SupersededBy
		clone.SupersededBy = &id
	}
	if cert.GraceUntil != nil {
		grace := *cert.GraceUntil
		clone.GraceUntil = &grace
	}
	return &clone
}

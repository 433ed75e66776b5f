package service

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
)

// maxSerialAttempts bounds the redraws when a random serial collides.
const maxSerialAttempts = 8

type x509Generator struct {
	now func() time.Time
}

// NewCertificateGenerator creates a generator for self-signed ECDSA P-256 leaf certificates
// usable for both server and client authentication.
func NewCertificateGenerator() CertificateGenerator {
	return &x509Generator{now: time.Now}
}

// randomSerialNumber returns 128 random bits with the high bit cleared so the
// serial stays positive as RFC 5280 requires.
func randomSerialNumber() (*big.Int, error) {
	serialBytes := make([]byte, 16)
	if _, err := rand.Read(serialBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random serial: %w", err)
	}
	serialBytes[0] &= 0x7F
	return new(big.Int).SetBytes(serialBytes), nil
}

func (g *x509Generator) uniqueSerial(serialTaken func(string) bool) (*big.Int, error) {
	for i := 0; i < maxSerialAttempts; i++ {
		serial, err := randomSerialNumber()
		if err != nil {
			return nil, err
		}
		if serial.Sign() == 0 {
			continue
		}
		if serialTaken == nil || !serialTaken(serial.Text(16)) {
			return serial, nil
		}
	}
	return nil, fmt.Errorf("no unique serial after %d attempts", maxSerialAttempts)
}

// Generate creates a key pair and a certificate valid for the given duration.
func (g *x509Generator) Generate(
	subject cryptoDomain.Subject,
	validity time.Duration,
	serialTaken func(string) bool,
) (*GeneratedCertificate, error) {
	if validity <= 0 {
		return nil, &cryptoDomain.CryptoError{Op: "generate", Reason: cryptoDomain.ReasonInvalidValidity}
	}

	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, &cryptoDomain.CryptoError{Op: "generate", Reason: cryptoDomain.ReasonKeyGeneration, Err: err}
	}

	serial, err := g.uniqueSerial(serialTaken)
	if err != nil {
		return nil, &cryptoDomain.CryptoError{Op: "generate", Reason: cryptoDomain.ReasonKeyGeneration, Err: err}
	}

	now := g.now().UTC().Truncate(time.Second)
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkixName(subject),
		NotBefore:             now,
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              subject.DNSNames,
	}
	if len(template.DNSNames) == 0 && net.ParseIP(subject.CommonName) == nil {
		template.DNSNames = []string{subject.CommonName}
	}
	for _, raw := range subject.IPAddresses {
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, &cryptoDomain.CryptoError{
				Op:     "generate",
				Reason: cryptoDomain.ReasonKeyGeneration,
				Err:    fmt.Errorf("invalid IP address %q", raw),
			}
		}
		template.IPAddresses = append(template.IPAddresses, ip)
	}
	if ip := net.ParseIP(subject.CommonName); ip != nil {
		template.IPAddresses = append(template.IPAddresses, ip)
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privKey.PublicKey, privKey)
	if err != nil {
		return nil, &cryptoDomain.CryptoError{Op: "generate", Reason: cryptoDomain.ReasonKeyGeneration, Err: err}
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return nil, &cryptoDomain.CryptoError{Op: "generate", Reason: cryptoDomain.ReasonKeyGeneration, Err: err}
	}

	fingerprint := sha256.Sum256(certDER)
	return &GeneratedCertificate{
		Certificate: &cryptoDomain.Certificate{
			ID:           uuid.Must(uuid.NewV7()),
			Subject:      subject,
			SerialNumber: serial.Text(16),
			NotBefore:    template.NotBefore,
			NotAfter:     template.NotAfter,
			Validity:     validity,
			Fingerprint:  hex.EncodeToString(fingerprint[:]),
			CertPEM:      pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
			KeyHandle:    uuid.Must(uuid.NewV7()),
			Status:       cryptoDomain.StatusActive,
			CreatedAt:    now,
		},
		KeyDER: keyDER,
	}, nil
}

func pkixName(subject cryptoDomain.Subject) pkix.Name {
	name := pkix.Name{CommonName: subject.CommonName}
	if subject.Organization != "" {
		name.Organization = []string{subject.Organization}
	}
	if subject.Country != "" {
		name.Country = []string{subject.Country}
	}
	return name
}

// EncodePrivateKeyPEM wraps a PKCS#8 DER key in a PEM block.
func EncodePrivateKeyPEM(keyDER []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
}

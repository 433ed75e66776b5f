package domain

// Algorithm is the AEAD used to seal private keys at rest.
//
// Both algorithms take a 256-bit key, a 12-byte nonce and append a 16-byte tag.
// Use AESGCM on CPUs with AES-NI and ChaCha20 elsewhere.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents ChaCha20-Poly1305.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the required length of the keystore data key.
const KeySize = 32

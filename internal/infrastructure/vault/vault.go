// Package vault encrypts integration credentials at rest.
//
// Envelopes are "hex(iv):hex(ciphertext)" using AES-256-CBC with PKCS#7 padding
// and a fresh random IV per call. The key is the SHA-256 digest of the configured
// secret. Envelopes written by earlier deployments use the same format and remain
// readable as long as the secret is unchanged.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opshub/backend/internal/domain/integration"
	"go.uber.org/zap"
)

var (
	// ErrFallbackKeyInProduction is fatal at startup: production must configure a secret.
	ErrFallbackKeyInProduction = errors.New("vault: encryption secret is not configured in production")
	ErrMalformedEnvelope       = errors.New("vault: malformed envelope")
	ErrDecryptFailed           = errors.New("vault: decrypt failed")
)

// fallbackSecret is only used outside production when no secret is configured.
const fallbackSecret = "opshub-development-only-credential-key"

// Vault encrypts and decrypts credential envelopes. Safe for concurrent use.
type Vault struct {
	block  cipher.Block
	logger *zap.Logger
}

// Option configures a Vault
type Option func(*Vault)

// WithLogger sets the logger used when credential decryption degrades
func WithLogger(logger *zap.Logger) Option {
	return func(v *Vault) {
		v.logger = logger.Named("vault")
	}
}

// New derives the AES-256 key from secret. An empty secret falls back to a
// built-in development key, except when env is "production".
func New(secret, env string, opts ...Option) (*Vault, error) {
	v := &Vault{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}

	if secret == "" {
		if env == "production" {
			return nil, ErrFallbackKeyInProduction
		}
		v.logger.Warn("Encryption secret not configured, using development fallback key")
		secret = fallbackSecret
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	v.block = block
	return v, nil
}

// Encrypt seals plaintext into an envelope
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("vault: generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(v.block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens an envelope produced by Encrypt
func (v *Vault) Decrypt(envelope string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(envelope, ":")
	if !ok {
		return "", ErrMalformedEnvelope
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedEnvelope
	}
	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrMalformedEnvelope
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(v.block, iv).CryptBlocks(plain, ciphertext)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// EncryptCredentials serializes creds as JSON and seals them
func (v *Vault) EncryptCredentials(creds integration.Credentials) (string, error) {
	if creds == nil {
		creds = integration.Credentials{}
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("vault: encode credentials: %w", err)
	}
	return v.Encrypt(string(raw))
}

// DecryptCredentials opens a credentials envelope. Any failure is logged without
// the envelope content and yields an empty map, which callers treat as missing credentials.
func (v *Vault) DecryptCredentials(envelope string) integration.Credentials {
	if envelope == "" {
		return integration.Credentials{}
	}

	plain, err := v.Decrypt(envelope)
	if err != nil {
		v.logger.Warn("Failed to decrypt credentials", zap.Error(err))
		return integration.Credentials{}
	}

	creds := integration.Credentials{}
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		v.logger.Warn("Failed to decode decrypted credentials", zap.String("reason", "invalid json"))
		return integration.Credentials{}
	}
	return creds
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecryptFailed
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrDecryptFailed
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecryptFailed
		}
	}
	return data[:len(data)-n], nil
}

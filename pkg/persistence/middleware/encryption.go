package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// EnvelopePrefix marks the query of an encrypted ticket.
const EnvelopePrefix = "__encrypted__:"

var (
	ErrInvalidKey      = errors.New("encryption key must be 32 bytes (AES-256)")
	ErrMissingEnvelope = errors.New("ticket is missing encrypted data envelope")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// ParseKey decodes a base64 AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key base64: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return key, nil
}

type encryptionMiddleware struct {
	next   ports.HandoffQueue
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals tickets using AES-GCM.
// Only the ID and creation time stay readable in the underlying queue.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, ErrInvalidKey
		}
	}
	return func(next ports.HandoffQueue) ports.HandoffQueue {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Submit(ctx context.Context, ticket domain.Ticket) error {
	plainText, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt ticket: %w", err)
	}

	envelope := domain.Ticket{
		ID:        ticket.ID,
		CreatedAt: ticket.CreatedAt,
		Query:     EnvelopePrefix + base64.StdEncoding.EncodeToString(ciphertext),
	}
	return m.next.Submit(ctx, envelope)
}

func (m *encryptionMiddleware) Pending(ctx context.Context, limit int) ([]domain.Ticket, error) {
	envelopes, err := m.next.Pending(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Ticket, 0, len(envelopes))
	for _, env := range envelopes {
		t, err := m.open(env)
		if err != nil {
			return nil, fmt.Errorf("ticket %s: %w", env.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *encryptionMiddleware) open(env domain.Ticket) (domain.Ticket, error) {
	encoded, ok := strings.CutPrefix(env.Query, EnvelopePrefix)
	if !ok {
		return domain.Ticket{}, ErrMissingEnvelope
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("failed to decrypt ticket: %w", err)
	}

	var t domain.Ticket
	if err := json.Unmarshal(plainText, &t); err != nil {
		return domain.Ticket{}, fmt.Errorf("failed to unmarshal decrypted ticket: %w", err)
	}
	return t, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}

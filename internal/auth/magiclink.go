package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BradenHooton/backupsui/internal/models"
	"golang.org/x/crypto/hkdf"
)

const (
	// MagicLinkTTL is how long a generated login link stays usable
	MagicLinkTTL = time.Hour

	magicLinkNonceSize = 16
	magicLinkKeyInfo   = "backupsui magic-link v1"
)

// MagicLinkCodec seals {username, password, expiration} into an opaque,
// URL-safe token with AES-256-GCM. The key is derived from the database
// password, so rotating that password invalidates every outstanding link.
type MagicLinkCodec struct {
	aead cipher.AEAD
	now  func() time.Time
	rand io.Reader
}

// MagicLinkOption configures a MagicLinkCodec
type MagicLinkOption func(*MagicLinkCodec)

// WithMagicLinkClock overrides the time source (tests)
func WithMagicLinkClock(now func() time.Time) MagicLinkOption {
	return func(c *MagicLinkCodec) {
		c.now = now
	}
}

// NewMagicLinkCodec derives the sealing key from secret.
// An empty secret is a configuration error.
func NewMagicLinkCodec(secret string, opts ...MagicLinkOption) (*MagicLinkCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("magic link key material is empty: %w", models.ErrMisconfigured)
	}

	key, err := deriveMagicLinkKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, magicLinkNonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	c := &MagicLinkCodec{
		aead: aead,
		now:  time.Now,
		rand: rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// deriveMagicLinkKey stretches the secret into a 32-byte AES key with HKDF-SHA256
func deriveMagicLinkKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(magicLinkKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive magic link key: %w", err)
	}
	return key, nil
}

// Encode seals the credentials with an expiration MagicLinkTTL from now.
// Every call uses a fresh random nonce.
func (c *MagicLinkCodec) Encode(username, password string) (string, error) {
	payload := models.MagicLinkPayload{
		Username:   username,
		Password:   password,
		Expiration: c.now().Add(MagicLinkTTL).UnixMilli(),
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode magic link payload: %w", err)
	}

	nonce := make([]byte, magicLinkNonceSize, magicLinkNonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens a token. Malformed encoding, a wrong key, tampering and a bad
// payload all yield models.ErrInvalidToken; a well-formed token past its
// expiration yields models.ErrTokenExpired.
func (c *MagicLinkCodec) Decode(token string) (*models.MagicLinkPayload, error) {
	raw, err := decodeTokenBytes(token)
	if err != nil {
		return nil, models.ErrInvalidToken
	}
	if len(raw) < magicLinkNonceSize+c.aead.Overhead() {
		return nil, models.ErrInvalidToken
	}

	nonce, ciphertext := raw[:magicLinkNonceSize], raw[magicLinkNonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	var payload models.MagicLinkPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, models.ErrInvalidToken
	}
	if payload.Username == "" || payload.Password == "" || payload.Expiration == 0 {
		return nil, models.ErrInvalidToken
	}

	if payload.Expiration < c.now().UnixMilli() {
		return nil, models.ErrTokenExpired
	}

	return &payload, nil
}

// decodeTokenBytes accepts URL-safe base64 (what Encode emits) as well as
// standard base64, with or without padding.
func decodeTokenBytes(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.ErrInvalidToken
	}

	trimmed := strings.TrimRight(token, "=")
	if raw, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return raw, nil
	}
	return base64.RawStdEncoding.DecodeString(trimmed)
}

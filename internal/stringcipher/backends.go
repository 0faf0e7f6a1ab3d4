package stringcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/whit3rabbit/shroud/internal/config"
)

// aeadCipher covers both AEAD backends; only construction differs.
// Every encryption draws a fresh nonce which is prepended to the ciphertext
// before encoding. Reusing one nonce across literals under a single key
// would void the AEAD guarantees entirely. Nonces come from crypto/rand by
// default; a seeded run substitutes its deterministic stream so output is
// reproducible.
type aeadCipher struct {
	algorithm string
	key       string
	aead      cipher.AEAD
	nonces    io.Reader
}

func newAESGCM(key string) (*aeadCipher, error) {
	sum := deriveKey(key)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("%w: aes: %v", ErrCipher, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: gcm: %v", ErrCipher, err)
	}
	return &aeadCipher{algorithm: config.AlgorithmAES, key: key, aead: gcm, nonces: rand.Reader}, nil
}

func newChaCha(key string) (*aeadCipher, error) {
	sum := deriveKey(key)
	aead, err := chacha20poly1305.New(sum[:])
	if err != nil {
		return nil, fmt.Errorf("%w: chacha20poly1305: %v", ErrCipher, err)
	}
	return &aeadCipher{algorithm: config.AlgorithmChaCha20, key: key, aead: aead, nonces: rand.Reader}, nil
}

func (c *aeadCipher) Algorithm() string { return c.algorithm }

func (c *aeadCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.nonces, nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrCipher, err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *aeadCipher) Decrypt(token string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrCipher, err)
	}
	ns := c.aead.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("%w: token shorter than nonce", ErrCipher)
	}
	plain, err := c.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: open: %v", ErrCipher, err)
	}
	return string(plain), nil
}

// xorKeystream is a reversible XOR against the SHA-256 of the key, repeated.
// Not authenticated; it exists for output that must not grow much and for
// environments without crypto imports.
type xorKeystream struct {
	key    string
	stream [32]byte
}

func newXORKeystream(key string) *xorKeystream {
	return &xorKeystream{key: key, stream: deriveKey(key)}
}

func (c *xorKeystream) Algorithm() string { return config.AlgorithmXOR }

func (c *xorKeystream) Encrypt(plaintext string) (string, error) {
	data := []byte(plaintext)
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ c.stream[i%len(c.stream)]
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *xorKeystream) Decrypt(token string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrCipher, err)
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ c.stream[i%len(c.stream)]
	}
	return string(out), nil
}

// reverseCipher is the trivial fallback: reverse the runes. Deterrent value
// only.
type reverseCipher struct{}

func (reverseCipher) Algorithm() string { return config.AlgorithmReverse }

func (reverseCipher) Encrypt(plaintext string) (string, error) {
	return reverseString(plaintext), nil
}

func (reverseCipher) Decrypt(token string) (string, error) {
	return reverseString(token), nil
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// Package stringcipher implements the pluggable string literal encryption
// backends, the skip policy for format-like and diagnostic strings, and the
// generator for the runtime decryption snippet injected into obfuscated
// output.
package stringcipher

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/whit3rabbit/shroud/internal/config"
)

// ErrCipher wraps any encryption backend failure. Callers must propagate it;
// falling back to a weaker cipher on error is never acceptable.
var ErrCipher = errors.New("string cipher failure")

// Default key used when the caller supplies none. The key only gates casual
// reading: it is embedded in the injected runtime snippet so the obfuscated
// program can decrypt itself.
const defaultKey = "shroud-default-key-for-string-encryption"

// Cipher is one reversible string encryption backend.
type Cipher interface {
	// Algorithm returns the config identifier of this backend.
	Algorithm() string
	// Encrypt turns a plaintext literal into an opaque token.
	Encrypt(plaintext string) (string, error)
	// Decrypt inverts Encrypt. Used by reversal and tests; the emitted
	// program uses the injected snippet instead.
	Decrypt(token string) (string, error)
	// RuntimeSnippet returns the import paths and Go source of the
	// decryption function compiled into the obfuscated program.
	RuntimeSnippet() (imports []string, src string)
}

// New returns the backend for the configured algorithm. An empty key selects
// the built-in default.
func New(algorithm, key string) (Cipher, error) {
	if key == "" {
		key = defaultKey
	}
	switch algorithm {
	case config.AlgorithmAES:
		return newAESGCM(key)
	case config.AlgorithmChaCha20:
		return newChaCha(key)
	case config.AlgorithmXOR, "":
		return newXORKeystream(key), nil
	case config.AlgorithmReverse:
		return reverseCipher{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrCipher, algorithm)
	}
}

// deriveKey hashes the user key string into a 256-bit cipher key.
func deriveKey(key string) [32]byte {
	return sha256.Sum256([]byte(key))
}

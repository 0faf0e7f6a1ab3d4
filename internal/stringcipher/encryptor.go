package stringcipher

import (
	"io"
	"regexp"
	"strings"

	"github.com/whit3rabbit/shroud/internal/config"
)

// Matches fmt-style verbs ("%s", "%-8.2f", "%%") and brace placeholders so
// format templates keep their plaintext shape.
var formatVerbRe = regexp.MustCompile(`%[-+# 0]*[0-9*]*(\.[0-9*]+)?[a-zA-Z%]|\{\}|\{:[^}]*\}`)

// Encryptor pairs a cipher backend with the skip policy and per-run
// memoization of tokens.
type Encryptor struct {
	cipher Cipher
	cfg    config.StringCipherConfig
	tokens map[string]string // plaintext -> token
}

// NewEncryptor builds an encryptor for the configured algorithm and key.
// nonceSource overrides the AEAD backends' crypto/rand nonces; a seeded run
// passes its deterministic stream here so tokens repeat across runs. nil
// keeps the secure default.
func NewEncryptor(cfg config.StringCipherConfig, nonceSource io.Reader) (*Encryptor, error) {
	c, err := New(cfg.Algorithm, cfg.Key)
	if err != nil {
		return nil, err
	}
	if a, ok := c.(*aeadCipher); ok && nonceSource != nil {
		a.nonces = nonceSource
	}
	return &Encryptor{
		cipher: c,
		cfg:    cfg,
		tokens: make(map[string]string),
	}, nil
}

// Cipher exposes the underlying backend (for snippet generation).
func (e *Encryptor) Cipher() Cipher { return e.cipher }

// ShouldSkip reports whether a literal is left untouched: format-like
// strings when SkipFormat is set, diagnostic-looking strings when SkipErrors
// is set.
func (e *Encryptor) ShouldSkip(s string) bool {
	if e.cfg.SkipFormat && formatVerbRe.MatchString(s) {
		return true
	}
	if e.cfg.SkipErrors {
		lower := strings.ToLower(s)
		if strings.Contains(lower, "error") || strings.Contains(lower, "debug") {
			return true
		}
	}
	return false
}

// EncryptLiteral returns the token for a literal, reusing the token from an
// earlier identical plaintext in this run. The skip policy is the caller's
// concern; EncryptLiteral always encrypts.
func (e *Encryptor) EncryptLiteral(plaintext string) (string, error) {
	if tok, ok := e.tokens[plaintext]; ok {
		return tok, nil
	}
	tok, err := e.cipher.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	e.tokens[plaintext] = tok
	return tok, nil
}

// Tokens returns the accumulated plaintext -> token map.
func (e *Encryptor) Tokens() map[string]string {
	return e.tokens
}

// Count reports how many distinct literals were encrypted.
func (e *Encryptor) Count() int { return len(e.tokens) }

package stringcipher

import "fmt"

// DecodeFuncName is the function every encrypted literal is rewritten to
// call. The matching definition is injected once per tree.
const DecodeFuncName = "shroudDecode"

func (c *aeadCipher) RuntimeSnippet() (imports []string, src string) {
	switch c.algorithm {
	case "chacha20":
		imports = []string{
			"crypto/sha256",
			"encoding/base64",
			"golang.org/x/crypto/chacha20poly1305",
		}
		src = fmt.Sprintf(`func %s(s string) string {
	sum := sha256.Sum256([]byte(%q))
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	aead, err := chacha20poly1305.New(sum[:])
	if err != nil || len(data) < aead.NonceSize() {
		return s
	}
	plain, err := aead.Open(nil, data[:aead.NonceSize()], data[aead.NonceSize():], nil)
	if err != nil {
		return s
	}
	return string(plain)
}`, DecodeFuncName, c.key)
	default: // aes
		imports = []string{
			"crypto/aes",
			"crypto/cipher",
			"crypto/sha256",
			"encoding/base64",
		}
		src = fmt.Sprintf(`func %s(s string) string {
	sum := sha256.Sum256([]byte(%q))
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return s
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil || len(data) < gcm.NonceSize() {
		return s
	}
	plain, err := gcm.Open(nil, data[:gcm.NonceSize()], data[gcm.NonceSize():], nil)
	if err != nil {
		return s
	}
	return string(plain)
}`, DecodeFuncName, c.key)
	}
	return imports, src
}

func (c *xorKeystream) RuntimeSnippet() (imports []string, src string) {
	imports = []string{"crypto/sha256", "encoding/base64"}
	src = fmt.Sprintf(`func %s(s string) string {
	sum := sha256.Sum256([]byte(%q))
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ sum[i%%len(sum)]
	}
	return string(out)
}`, DecodeFuncName, c.key)
	return imports, src
}

func (reverseCipher) RuntimeSnippet() (imports []string, src string) {
	src = fmt.Sprintf(`func %s(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}`, DecodeFuncName)
	return nil, src
}

// Package scramble implements the rename policy and deterministic name
// generation for identifier obfuscation.
//
// Renaming is keyed purely by the identifier's text for the lifetime of one
// run: the same original name always resolves to the same replacement no
// matter which scope or file it appears in. Lexical scopes are tracked, but
// only for bookkeeping and diagnostics; they never alter a rename decision.
package scramble

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	mrand "math/rand"
	"strings"
	"unicode"

	"github.com/whit3rabbit/shroud/internal/config"
)

// Maximum length of a generated replacement name.
const maxGeneratedLen = 12

// Scope records the names declared inside one lexical block.
type Scope struct {
	Variables map[string]bool
	Functions map[string]bool
	Types     map[string]bool
	Depth     int
}

// NewScope returns an empty scope at the given depth.
func NewScope(depth int) *Scope {
	return &Scope{
		Variables: make(map[string]bool),
		Functions: make(map[string]bool),
		Types:     make(map[string]bool),
		Depth:     depth,
	}
}

// Context holds the shared rename state for one obfuscation run.
type Context struct {
	cfg *config.Config

	scopeStack []*Scope
	mappings   map[string]string // original -> replacement, append-only
	protected  map[string]bool   // caller-pinned symbols (linkname, imports, ...)
	publicAPI  map[string]bool   // exported declarations
	modulePath []string          // current package path segments

	seedSalt [32]byte // salts name derivation; fixed by the user seed, random otherwise
	rng      *mrand.Rand
}

// NewContext creates a rename context. When seed is non-empty the internal
// PRNG is derived from SHA-256(seed) so two runs over identical input and
// config produce byte-identical output; otherwise the seed is drawn from a
// secure random source.
func NewContext(cfg *config.Config, seed string) *Context {
	var seedBytes [32]byte
	if seed != "" {
		seedBytes = sha256.Sum256([]byte(seed))
	} else {
		if _, err := rand.Read(seedBytes[:]); err != nil {
			// crypto/rand failing means the platform is broken; a zero seed
			// still produces a valid (if predictable) run.
			seedBytes = [32]byte{}
		}
	}
	src := mrand.NewSource(int64(binary.BigEndian.Uint64(seedBytes[:8])))

	return &Context{
		cfg:        cfg,
		scopeStack: []*Scope{NewScope(0)},
		mappings:   make(map[string]string),
		protected:  make(map[string]bool),
		publicAPI:  make(map[string]bool),
		seedSalt:   seedBytes,
		rng:        mrand.New(src),
	}
}

// EnterScope pushes a fresh scope; call on block entry.
func (c *Context) EnterScope() {
	c.scopeStack = append(c.scopeStack, NewScope(len(c.scopeStack)))
}

// ExitScope pops the current scope. The base scope is never popped.
func (c *Context) ExitScope() {
	if len(c.scopeStack) > 1 {
		c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	}
}

// CurrentScope returns the innermost scope.
func (c *Context) CurrentScope() *Scope {
	return c.scopeStack[len(c.scopeStack)-1]
}

// ScopeDepth returns the current nesting depth (base scope = 1).
func (c *Context) ScopeDepth() int {
	return len(c.scopeStack)
}

// AddVariable records a variable declaration in the current scope.
func (c *Context) AddVariable(name string) {
	c.CurrentScope().Variables[name] = true
}

// AddFunction records a function declaration in the current scope.
func (c *Context) AddFunction(name string) {
	c.CurrentScope().Functions[name] = true
}

// AddType records a type declaration in the current scope.
func (c *Context) AddType(name string) {
	c.CurrentScope().Types[name] = true
}

// Protect pins a symbol so it is never renamed for the rest of the run.
// Used for package names, import aliases and stable-linkage symbols.
func (c *Context) Protect(name string) {
	c.protected[name] = true
}

// MarkPublicAPI records an exported declaration.
func (c *Context) MarkPublicAPI(name string) {
	c.publicAPI[name] = true
}

// SetModulePath sets the package path segments used to salt name generation.
func (c *Context) SetModulePath(parts []string) {
	c.modulePath = parts
}

// IsProtected reports whether a name must keep its original spelling.
func (c *Context) IsProtected(name string) bool {
	if isReserved(name) || c.protected[name] {
		return true
	}
	return c.cfg.PreservePublicAPI && c.publicAPI[name]
}

// ShouldRename implements the per-occurrence rename policy.
func (c *Context) ShouldRename(name string) bool {
	if name == "" || c.IsProtected(name) {
		return false
	}
	if len(name) < c.cfg.MinIdentifierLength {
		return false
	}
	first := []rune(name)[0]
	if !unicode.IsLetter(first) {
		return false
	}
	// Leading underscore marks intentionally unused identifiers.
	return !strings.HasPrefix(name, "_")
}

// GetOrCreate returns the memoized replacement for original, deriving and
// storing a new one on first sight. The same original always yields the same
// replacement within a run.
func (c *Context) GetOrCreate(original string) string {
	if obf, ok := c.mappings[original]; ok {
		return obf
	}
	obf := c.generateName(original)
	c.mappings[original] = obf
	return obf
}

// Lookup returns the existing replacement for original, if any.
func (c *Context) Lookup(original string) (string, bool) {
	obf, ok := c.mappings[original]
	return obf, ok
}

// Mappings returns the accumulated original -> replacement map.
func (c *Context) Mappings() map[string]string {
	return c.mappings
}

// generateName derives the replacement from the original name, the enclosing
// package path and the run's seed salt: SHA-256, base64 of the first 8 bytes,
// alphanumerics only, letter-prefixed, truncated to maxGeneratedLen. With a
// user seed the salt is fixed, so the derivation is fully deterministic;
// without one the salt is random and every run maps names differently.
func (c *Context) generateName(original string) string {
	h := sha256.New()
	h.Write([]byte(original))
	h.Write([]byte("::"))
	h.Write([]byte(strings.Join(c.modulePath, "::")))
	h.Write(c.seedSalt[:])
	sum := h.Sum(nil)

	encoded := base64.StdEncoding.EncodeToString(sum[:8])
	var sb strings.Builder
	for _, r := range encoded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	if name == "" || unicode.IsDigit([]rune(name)[0]) {
		name = "x" + name
	}
	if len(name) > maxGeneratedLen {
		name = name[:maxGeneratedLen]
	}
	return name
}

// NonceSource exposes the run's PRNG as a byte stream. With a user seed the
// stream is fully determined, so AEAD nonces drawn from it repeat across
// runs over identical input while staying unique within a run. Callers
// without a user seed should draw nonces from crypto/rand instead.
func (c *Context) NonceSource() io.Reader {
	return c.rng
}

// RandomName produces a non-deterministic identifier of the requested length
// from the run's PRNG. Used by names mode, where derivation from content is
// not wanted.
func (c *Context) RandomName(length int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	if length <= 0 {
		length = 8
	}
	b := make([]byte, length)
	// First char must be a letter so the result is usable as an identifier
	// or file stem anywhere.
	b[0] = alphabet[c.rng.Intn(52)]
	for i := 1; i < length; i++ {
		b[i] = alphabet[c.rng.Intn(len(alphabet))]
	}
	return string(b)
}

// Summary describes the scope bookkeeping for diagnostics.
func (c *Context) Summary() string {
	base := c.scopeStack[0]
	return fmt.Sprintf("mappings=%d protected=%d public=%d top-level{vars=%d funcs=%d types=%d}",
		len(c.mappings), len(c.protected), len(c.publicAPI),
		len(base.Variables), len(base.Functions), len(base.Types))
}

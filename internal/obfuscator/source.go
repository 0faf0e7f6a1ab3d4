package obfuscator

import (
	"github.com/whit3rabbit/shroud/internal/safety"
	"github.com/whit3rabbit/shroud/internal/scramble"
	"github.com/whit3rabbit/shroud/internal/stringcipher"
	"github.com/whit3rabbit/shroud/internal/transformer"
)

// ObfuscateSource transforms a single source string in memory and returns the
// obfuscated text along with the rename mapping accumulated for it. The
// safety gate still applies.
func (o *Obfuscator) ObfuscateSource(src string) (string, map[string]string, error) {
	cfg := o.Config

	if err := safety.Check(safety.Scan("<memory>", src)); err != nil {
		return "", nil, err
	}

	ctx := scramble.NewContext(cfg, cfg.Seed)

	var enc *stringcipher.Encryptor
	if cfg.Strings.Algorithm != "" {
		var err error
		enc, err = stringcipher.NewEncryptor(cfg.Strings, seededNonces(cfg, ctx))
		if err != nil {
			return "", nil, err
		}
	}

	tr := transformer.New(cfg, ctx, enc)
	tr.RenameIdents = true
	tr.EncryptStrings = enc != nil
	tr.DryRun = false

	output, err := o.transformSource("source.go", []byte(src), tr)
	if err != nil {
		return "", nil, err
	}
	if enc != nil && enc.Count() > 0 {
		output = injectRuntimeSnippet(output, enc.Cipher())
	}
	return string(output), ctx.Mappings(), nil
}

// Package mapping persists the bidirectional original <-> transformed record
// that makes every obfuscation reversible. The mapping file is the only way
// back to the original tree; losing it loses the originals.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/whit3rabbit/shroud/internal/config"
)

// ErrLoad covers a missing or corrupt mapping file and a method mismatch
// between the file and the requested reversal.
var ErrLoad = errors.New("mapping load failure")

// Mapping is the persisted artifact of one obfuscation run.
type Mapping struct {
	OriginalToObfuscated map[string]string `json:"original_to_obfuscated"`
	ObfuscatedToOriginal map[string]string `json:"obfuscated_to_original"`
	Timestamp            string            `json:"timestamp"`
	Method               string            `json:"method"`
	Seed                 string            `json:"seed,omitempty"`
	RunID                string            `json:"run_id"`
	Config               *config.Config    `json:"config"`
}

// New creates an empty mapping for the given method, snapshotting the run
// configuration.
func New(method string, cfg *config.Config, seed string) *Mapping {
	return &Mapping{
		OriginalToObfuscated: make(map[string]string),
		ObfuscatedToOriginal: make(map[string]string),
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
		Method:               method,
		Seed:                 seed,
		RunID:                uuid.NewString(),
		Config:               cfg,
	}
}

// Add records one original -> obfuscated pair in both directions.
func (m *Mapping) Add(original, obfuscated string) {
	m.OriginalToObfuscated[original] = obfuscated
	m.ObfuscatedToOriginal[obfuscated] = original
}

// Merge copies every pair from pairs into the mapping.
func (m *Mapping) Merge(pairs map[string]string) {
	for original, obfuscated := range pairs {
		m.Add(original, obfuscated)
	}
}

// Len returns the number of recorded pairs.
func (m *Mapping) Len() int {
	return len(m.OriginalToObfuscated)
}

// Save serializes the mapping as indented JSON.
func (m *Mapping) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write mapping to %s: %w", path, err)
	}
	return nil
}

// Load reads a mapping file without checking its method.
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrLoad, path, err)
	}
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrLoad, path, err)
	}
	if m.OriginalToObfuscated == nil {
		m.OriginalToObfuscated = make(map[string]string)
	}
	if m.ObfuscatedToOriginal == nil {
		m.ObfuscatedToOriginal = make(map[string]string)
	}
	return &m, nil
}

// LoadForMethod reads a mapping file and rejects it when its method does not
// match the requested reversal operation.
func LoadForMethod(path, method string) (*Mapping, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	if m.Method != method {
		return nil, fmt.Errorf("%w: mapping %s was created by %q obfuscation, not %q",
			ErrLoad, path, m.Method, method)
	}
	return m, nil
}

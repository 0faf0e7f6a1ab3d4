package obfuscator

import (
	"time"

	"github.com/whit3rabbit/shroud/internal/safety"
	"github.com/whit3rabbit/shroud/internal/transformer"
)

// Report summarizes one run for the CLI and the API.
type Report struct {
	Method             string
	DryRun             bool
	Degraded           bool
	Files              []string
	SkippedFiles       []string
	RenamedIdentifiers int // distinct names mapped
	RenamedOccurrences int
	EncryptedStrings   int
	Violations         []safety.Violation
	Changes            []transformer.Change
	MappingPath        string
	ReversalScript     string
	BackupPath         string
	Duration           time.Duration
}

func reportRename(from, to string) transformer.Change {
	return transformer.Change{Kind: "rename", Original: from, Replacement: to}
}

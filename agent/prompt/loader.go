package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/datefmt.txt
	dateFormatterRaw string
)

// PromptSet holds loaded prompt content. The parameter-collection
// instruction is intentionally absent: it is built per call and never
// persisted to history.
type PromptSet struct {
	System        string
	DateFormatter string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System:        strings.TrimSpace(systemRaw),
		DateFormatter: strings.TrimSpace(dateFormatterRaw),
	}
}

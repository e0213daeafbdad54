package additives

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/foodlens/backend/internal/domain"
)

//go:embed additives.yaml
var embeddedData []byte

// Fallback values for codes missing from the knowledge base
const (
	unknownCategory    = "Unknown"
	unknownExplanation = "No safety data available."
)

// ErrInvalidData is returned when a knowledge-base file cannot be used
var ErrInvalidData = errors.New("invalid additive knowledge base")

// referenceFile is the on-disk layout of the knowledge base
type referenceFile struct {
	Version   int                            `yaml:"version"`
	Additives map[string]domain.AdditiveInfo `yaml:"additives"`
}

// KnowledgeBase maps additive codes to reference data. It is read-only after
// loading and safe for concurrent use.
type KnowledgeBase struct {
	version int
	entries map[string]domain.AdditiveInfo
}

// Load parses the knowledge base compiled into the binary
func Load() (*KnowledgeBase, error) {
	return Parse(embeddedData)
}

// LoadFile parses a knowledge base from disk, e.g. a locally curated override
func LoadFile(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read additive knowledge base: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML knowledge-base data
func Parse(data []byte) (*KnowledgeBase, error) {
	var file referenceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(file.Additives) == 0 {
		return nil, fmt.Errorf("%w: no additives defined", ErrInvalidData)
	}

	entries := make(map[string]domain.AdditiveInfo, len(file.Additives))
	for code, info := range file.Additives {
		key := normalizeCode(code)
		if key == "" {
			return nil, fmt.Errorf("%w: empty additive code", ErrInvalidData)
		}
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("%w: duplicate code %s", ErrInvalidData, key)
		}

		if info.Risk == "" {
			info.Risk = domain.RiskUnknown
		}
		if !info.Risk.Valid() {
			return nil, fmt.Errorf("%w: %s has unknown risk %q", ErrInvalidData, key, info.Risk)
		}
		if info.Name == "" {
			info.Name = key
		}
		if info.Category == "" {
			info.Category = unknownCategory
		}
		if info.Explanation == "" {
			info.Explanation = unknownExplanation
		}
		entries[key] = info
	}

	return &KnowledgeBase{version: file.Version, entries: entries}, nil
}

// Lookup returns the reference record for a code, case-insensitively
func (kb *KnowledgeBase) Lookup(code string) (domain.AdditiveInfo, bool) {
	info, ok := kb.entries[normalizeCode(code)]
	return info, ok
}

// Resolve returns the reference record for a code, or a synthesized record with
// unknown risk named after displayText (or the code when displayText is empty)
func (kb *KnowledgeBase) Resolve(code, displayText string) domain.AdditiveInfo {
	if info, ok := kb.Lookup(code); ok {
		return info
	}

	name := strings.TrimSpace(displayText)
	if name == "" {
		name = normalizeCode(code)
	}
	return domain.AdditiveInfo{
		Name:        name,
		Category:    unknownCategory,
		Risk:        domain.RiskUnknown,
		Explanation: unknownExplanation,
	}
}

// Version returns the data version declared by the file
func (kb *KnowledgeBase) Version() int {
	return kb.version
}

// Len returns the number of known codes
func (kb *KnowledgeBase) Len() int {
	return len(kb.entries)
}

// normalizeCode turns "en:e150a" into "E150A"
func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if _, after, found := strings.Cut(code, ":"); found {
		code = after
	}
	return strings.ToUpper(code)
}

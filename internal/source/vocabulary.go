package source

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

//go:embed vocabularies/*.yaml
var builtinVocabularies embed.FS

// Vocabulary maps a source's raw status tokens to canonical status names.
// Tokens missing from the map have no status.
type Vocabulary struct {
	Version  int                          `yaml:"version"`
	Source   string                       `yaml:"source"`
	Statuses map[string]domain.StatusName `yaml:"statuses"`
}

// ParseVocabulary decodes and validates a YAML vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	return &vocab, nil
}

// Validate checks the document is versioned, names a known source and only
// maps to canonical status names.
func (v *Vocabulary) Validate() error {
	if v.Version <= 0 {
		return errors.New("vocabulary version must be positive")
	}
	if _, err := domain.ParseSourceSystem(v.Source); err != nil {
		return err
	}
	if len(v.Statuses) == 0 {
		return fmt.Errorf("vocabulary for %s maps no statuses", v.Source)
	}
	for token, name := range v.Statuses {
		if !name.IsCanonical() {
			return fmt.Errorf("vocabulary for %s maps %q to unknown status %q", v.Source, token, name)
		}
	}
	return nil
}

// Normalize returns the canonical name of token. ok is false for unmapped tokens.
func (v *Vocabulary) Normalize(token string) (domain.StatusName, bool) {
	name, ok := v.Statuses[strings.TrimSpace(token)]
	return name, ok
}

// Tokens lists the mapped raw tokens in sorted order.
func (v *Vocabulary) Tokens() []string {
	tokens := make([]string, 0, len(v.Statuses))
	for token := range v.Statuses {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// LoadVocabulary returns the vocabulary for system. A <source>.yaml file in dir
// replaces the built-in document; an empty dir uses the built-in one.
func LoadVocabulary(system domain.SourceSystem, dir string) (*Vocabulary, error) {
	name := system.Key() + ".yaml"

	var (
		data []byte
		err  error
	)
	if dir != "" {
		data, err = os.ReadFile(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read vocabulary %s: %w", name, err)
		}
	}
	if data == nil {
		data, err = builtinVocabularies.ReadFile("vocabularies/" + name)
		if err != nil {
			return nil, fmt.Errorf("no vocabulary for %s: %w", system, err)
		}
	}

	vocab, err := ParseVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", name, err)
	}
	if !strings.EqualFold(vocab.Source, string(system)) {
		return nil, fmt.Errorf("vocabulary %s declares source %q", name, vocab.Source)
	}
	return vocab, nil
}

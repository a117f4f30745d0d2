package vocab

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"voicebutton/internal/domain"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

var (
	ErrDuplicatePhrase = errors.New("duplicate phrase")
	ErrCodeOutOfRange  = errors.New("command code out of range")
	ErrEmptyPhrase     = errors.New("empty phrase")
	ErrUnknownLanguage = errors.New("unknown language")
)

type file struct {
	Entries []domain.CommandEntry `yaml:"entries"`
}

// Table is the phrase -> command code lookup. It is never mutated after New
// returns, so it may be shared freely.
type Table struct {
	byPhrase map[string]domain.CommandCode
	entries  []domain.CommandEntry
}

func Default() (*Table, error) {
	return Parse(defaultVocabulary)
}

func LoadFile(fs afero.Fs, path string) (*Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return t, nil
}

func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	return New(f.Entries)
}

func New(entries []domain.CommandEntry) (*Table, error) {
	t := &Table{
		byPhrase: make(map[string]domain.CommandCode, len(entries)),
		entries:  make([]domain.CommandEntry, 0, len(entries)),
	}
	for i, e := range entries {
		key := domain.FoldCase(e.Phrase)
		if key == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyPhrase)
		}
		if !e.Code.Valid() {
			return nil, fmt.Errorf("entry %d %q: %w: %d", i, e.Phrase, ErrCodeOutOfRange, e.Code)
		}
		if e.Language != domain.LanguageEN && e.Language != domain.LanguageVI {
			return nil, fmt.Errorf("entry %d %q: %w: %q", i, e.Phrase, ErrUnknownLanguage, e.Language)
		}
		if prev, ok := t.byPhrase[key]; ok {
			return nil, fmt.Errorf("entry %d %q (code %d, already mapped to %d): %w", i, e.Phrase, e.Code, prev, ErrDuplicatePhrase)
		}
		t.byPhrase[key] = e.Code
		e.Phrase = key
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Resolve is an exact lookup of the case-folded text. Nothing else is
// normalized: stray spaces or punctuation make the phrase unresolved.
func (t *Table) Resolve(text string) (domain.CommandCode, bool) {
	code, ok := t.byPhrase[domain.FoldCase(text)]
	return code, ok
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Entries() []domain.CommandEntry {
	out := make([]domain.CommandEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Codes reports how many phrases map to each code.
func (t *Table) Codes() map[domain.CommandCode]int {
	out := make(map[domain.CommandCode]int)
	for _, e := range t.entries {
		out[e.Code]++
	}
	return out
}

// Phrases lists the phrases that resolve to code, in table order.
func (t *Table) Phrases(code domain.CommandCode) []string {
	var out []string
	for _, e := range t.entries {
		if e.Code == code {
			out = append(out, e.Phrase)
		}
	}
	return out
}

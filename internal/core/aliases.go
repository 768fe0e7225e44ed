package core

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliasYAML []byte

// Keyword length rules.
const (
	minKeywordRunes   = 3 // Shorter keywords are rejected
	tokenKeywordRunes = 5 // Shorter keywords must match a whole word
)

// aliasFile is the on-disk layout of the alias table.
type aliasFile struct {
	Aliases  map[string][]string `yaml:"aliases"`
	Keywords map[string][]string `yaml:"keywords"`
}

type keyword struct {
	field string
	word  string
	token bool
}

// AliasTable resolves normalized labels to canonical fields. It is
// immutable once loaded.
type AliasTable struct {
	aliases  map[string]string
	keywords []keyword
}

// DefaultAliasTable parses the embedded alias table.
func DefaultAliasTable() (*AliasTable, error) {
	return LoadAliasTable(defaultAliasYAML)
}

// LoadAliasFile reads an alias table from path.
func LoadAliasFile(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	return LoadAliasTable(data)
}

// LoadAliasTable parses YAML alias data. Aliases and keywords are
// normalized the same way labels are. An alias claimed by two fields or a
// keyword shorter than three characters is an error.
func LoadAliasTable(data []byte) (*AliasTable, error) {
	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}

	var errs []string
	t := &AliasTable{aliases: make(map[string]string)}

	for _, field := range sortedKeys(file.Aliases) {
		for _, raw := range file.Aliases[field] {
			alias := NormalizeLabel(raw)
			if alias == "" {
				continue
			}
			if prev, ok := t.aliases[alias]; ok && prev != field {
				errs = append(errs, fmt.Sprintf("alias %q maps to both %s and %s", alias, prev, field))
				continue
			}
			t.aliases[alias] = field
		}
	}

	for _, field := range sortedKeys(file.Keywords) {
		for _, raw := range file.Keywords[field] {
			word := NormalizeLabel(raw)
			n := utf8.RuneCountInString(word)
			if n < minKeywordRunes {
				errs = append(errs, fmt.Sprintf("keyword %q for %s is shorter than %d characters", raw, field, minKeywordRunes))
				continue
			}
			t.keywords = append(t.keywords, keyword{field: field, word: word, token: n < tokenKeywordRunes})
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid alias table:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return t, nil
}

// Lookup returns the field for an exact alias match.
func (t *AliasTable) Lookup(label string) (string, bool) {
	f, ok := t.aliases[label]
	return f, ok
}

// MatchKeyword returns the field whose keyword matches label, considering
// only fields in vocab. It fails when zero or several fields match.
func (t *AliasTable) MatchKeyword(label string, vocab map[string]bool) (string, bool) {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ReplaceAll(label, "_", " ")) {
		tokens[tok] = true
	}

	match := ""
	for _, kw := range t.keywords {
		if !vocab[kw.field] {
			continue
		}
		var hit bool
		if kw.token {
			hit = tokens[kw.word]
		} else {
			hit = strings.Contains(label, kw.word)
		}
		if !hit {
			continue
		}
		if match != "" && match != kw.field {
			return "", false
		}
		match = kw.field
	}
	return match, match != ""
}

// Size returns the number of aliases and keywords.
func (t *AliasTable) Size() (aliases, keywords int) {
	return len(t.aliases), len(t.keywords)
}

// Fields returns every canonical field the table refers to, sorted.
func (t *AliasTable) Fields() []string {
	seen := make(map[string][]string)
	for _, f := range t.aliases {
		seen[f] = nil
	}
	for _, kw := range t.keywords {
		seen[kw.field] = nil
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

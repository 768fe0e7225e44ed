package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FieldNormalizer cleans a raw value for one canonical field.
// It must be idempotent.
type FieldNormalizer func(string) string

// FieldSpec describes one canonical field of an entity kind.
type FieldSpec struct {
	Name       string
	Normalizer FieldNormalizer // Optional
}

// EntityDefinition contains everything needed to ingest one entity kind.
type EntityDefinition struct {
	Kind          EntityKind
	Label         string      // Display name
	Fields        []FieldSpec // Closed vocabulary
	Signature     []string    // Fields that strongly indicate this kind
	NaturalKey    string      // Field used for dedup and upsert
	KeyQualifiers []string    // Extra fields that complete a composite natural key
	Priority      int         // Classifier tie-break, higher wins
	Asset         bool        // Gets an AssetIdentifier when missing
}

// Key returns the natural key of fields, or "" when the key field is empty.
// Composite keys join the label-normalized parts with "|", so
// "Silla Fija" at "Bogotá" keys as "silla fija|bogota".
func (d EntityDefinition) Key(fields Fields) string {
	primary := fields[d.NaturalKey]
	if primary == "" || len(d.KeyQualifiers) == 0 {
		return primary
	}
	parts := make([]string, 0, 1+len(d.KeyQualifiers))
	parts = append(parts, NormalizeLabel(primary))
	for _, q := range d.KeyQualifiers {
		parts = append(parts, NormalizeLabel(fields[q]))
	}
	return strings.Join(parts, "|")
}

// HasField reports whether name is in the kind's vocabulary.
func (d EntityDefinition) HasField(name string) bool {
	for _, f := range d.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FieldNames returns the vocabulary in declaration order.
func (d EntityDefinition) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Normalize applies the field's normalizer, if any.
func (d EntityDefinition) Normalize(field, value string) string {
	for _, f := range d.Fields {
		if f.Name == field && f.Normalizer != nil {
			return f.Normalizer(value)
		}
	}
	return value
}

var (
	registry   = make(map[EntityKind]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the kind is already registered or a natural key field is not
// part of the vocabulary.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("entity kind already registered: %s", def.Kind))
	}
	for _, k := range append([]string{def.NaturalKey}, def.KeyQualifiers...) {
		if !def.HasField(k) {
			panic(fmt.Sprintf("natural key field %q not in vocabulary of %s", k, def.Kind))
		}
	}

	registry[def.Kind] = def
}

// Get returns an entity definition by kind.
func Get(kind EntityKind) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// All returns all registered definitions, highest classifier priority first.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].Kind < result[j].Kind
	})

	return result
}

// Vocabulary returns the union of all registered field names, sorted.
func Vocabulary() []string {
	seen := make(map[string]bool)
	for _, def := range All() {
		for _, f := range def.Fields {
			seen[f.Name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// KindCount returns the number of registered kinds.
func KindCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/tabingest/internal/logging"
)

// DefaultSuggestTimeout bounds one suggestion request.
const DefaultSuggestTimeout = 10 * time.Second

// Mapper resolves column labels to canonical fields in three tiers:
// alias table, external suggestion, keyword heuristics. Within a tier
// columns are processed left to right and the first column to claim a
// field keeps it.
type Mapper struct {
	mu        sync.RWMutex
	table     *AliasTable
	suggester Suggester
	cache     MappingCache
	timeout   time.Duration
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithSuggester enables the suggestion tier.
func WithSuggester(s Suggester) MapperOption {
	return func(m *Mapper) { m.suggester = s }
}

// WithMappingCache replaces the default in-memory cache.
func WithMappingCache(c MappingCache) MapperOption {
	return func(m *Mapper) { m.cache = c }
}

// WithSuggestTimeout sets the per-request suggestion timeout.
func WithSuggestTimeout(d time.Duration) MapperOption {
	return func(m *Mapper) { m.timeout = d }
}

// NewMapper creates a mapper over table.
func NewMapper(table *AliasTable, opts ...MapperOption) *Mapper {
	m := &Mapper{
		table:   table,
		cache:   NewMemoryMappingCache(),
		timeout: DefaultSuggestTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reload swaps the alias table and invalidates cached mappings.
func (m *Mapper) Reload(ctx context.Context, table *AliasTable) error {
	m.mu.Lock()
	m.table = table
	m.mu.Unlock()

	if err := m.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate mapping cache: %w", err)
	}
	return nil
}

// Map resolves labels against vocabulary, then applies overrides
// (label -> field). Override labels are normalized before matching.
// The returned warnings describe overrides that were dropped and
// suggestion failures.
func (m *Mapper) Map(ctx context.Context, labels, vocabulary []string, overrides map[string]string) (ColumnMapping, []string) {
	log := logging.FromContext(ctx)
	var warnings []string

	key := MappingCacheKey(labels, vocabulary)
	mapping, hit, err := m.cache.Get(ctx, key)
	if err != nil {
		log.Warn("mapping cache read failed", "error", err)
	}
	if !hit {
		var degraded bool
		mapping, degraded = m.resolve(ctx, labels, vocabulary)
		if degraded {
			warnings = append(warnings, "column suggestion unavailable, used alias and keyword rules only")
		} else if err := m.cache.Set(ctx, key, mapping); err != nil {
			log.Warn("mapping cache write failed", "error", err)
		}
	}

	mapping, ow := applyOverrides(mapping, vocabulary, overrides)
	return mapping, append(warnings, ow...)
}

// resolve runs the three tiers. degraded is true when the suggestion tier
// was enabled but failed.
func (m *Mapper) resolve(ctx context.Context, labels, vocabulary []string) (ColumnMapping, bool) {
	m.mu.RLock()
	table := m.table
	m.mu.RUnlock()

	vocab := make(map[string]bool, len(vocabulary))
	for _, f := range vocabulary {
		vocab[f] = true
	}

	cols := make([]ColumnAssignment, len(labels))
	claimed := make(map[string]bool)
	assign := func(i int, field string, tier MappingTier) bool {
		if field == "" || !vocab[field] || claimed[field] || cols[i].Field != "" {
			return false
		}
		cols[i] = ColumnAssignment{Label: labels[i], Field: field, Tier: tier}
		claimed[field] = true
		return true
	}
	for i, l := range labels {
		cols[i] = ColumnAssignment{Label: l, Tier: TierUnmapped}
	}

	// Tier 1: aliases.
	for i, l := range labels {
		if f, ok := table.Lookup(l); ok {
			assign(i, f, TierAlias)
		}
	}

	// Tier 2: external suggestion for whatever is left.
	degraded := false
	if m.suggester != nil {
		var pending []string
		var remaining []string
		for _, c := range cols {
			if c.Field == "" {
				pending = append(pending, c.Label)
			}
		}
		for _, f := range vocabulary {
			if !claimed[f] {
				remaining = append(remaining, f)
			}
		}
		if len(pending) > 0 && len(remaining) > 0 {
			suggested, err := m.suggest(ctx, pending, remaining)
			if err != nil {
				degraded = true
				recordSuggestion("failed")
				logging.FromContext(ctx).Warn("column suggestion failed, falling back to keywords",
					"labels", len(pending), "error", err)
			} else {
				recordSuggestion("ok")
				for i, l := range labels {
					if f, ok := suggested[l]; ok {
						assign(i, f, TierSuggestion)
					}
				}
			}
		}
	}

	// Tier 3: unambiguous keywords.
	for i, l := range labels {
		if cols[i].Field != "" {
			continue
		}
		if f, ok := table.MatchKeyword(l, vocab); ok {
			assign(i, f, TierHeuristic)
		}
	}

	return ColumnMapping{Columns: cols}, degraded
}

func (m *Mapper) suggest(ctx context.Context, labels, vocabulary []string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.suggester.Suggest(ctx, labels, vocabulary)
}

// applyOverrides assigns caller-chosen fields last. An override releases the
// field from any column that already held it.
func applyOverrides(mapping ColumnMapping, vocabulary []string, overrides map[string]string) (ColumnMapping, []string) {
	if len(overrides) == 0 {
		return mapping, nil
	}

	vocab := make(map[string]bool, len(vocabulary))
	for _, f := range vocabulary {
		vocab[f] = true
	}

	cols := append([]ColumnAssignment(nil), mapping.Columns...)
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Label] = i
	}

	rawLabels := make([]string, 0, len(overrides))
	for l := range overrides {
		rawLabels = append(rawLabels, l)
	}
	sort.Strings(rawLabels)

	var warnings []string
	for _, raw := range rawLabels {
		field := overrides[raw]
		label := NormalizeLabel(raw)
		i, ok := index[label]
		if !ok {
			i, ok = index[raw]
		}
		if !ok {
			continue
		}
		if !vocab[field] {
			warnings = append(warnings, fmt.Sprintf("override %q -> %q ignored: unknown field", raw, field))
			continue
		}
		for j := range cols {
			if cols[j].Field == field {
				cols[j] = ColumnAssignment{Label: cols[j].Label, Tier: TierUnmapped}
			}
		}
		cols[i] = ColumnAssignment{Label: cols[i].Label, Field: field, Tier: TierOverride}
	}
	return ColumnMapping{Columns: cols}, warnings
}

// Restrict unmaps every column whose field is not in keep.
func (m ColumnMapping) Restrict(keep func(field string) bool) ColumnMapping {
	cols := make([]ColumnAssignment, len(m.Columns))
	for i, c := range m.Columns {
		if c.Field != "" && !keep(c.Field) {
			c = ColumnAssignment{Label: c.Label, Tier: TierUnmapped}
		}
		cols[i] = c
	}
	return ColumnMapping{Columns: cols}
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/tabingest/internal/core"
)

type recordRef struct {
	kind core.EntityKind
	key  string
}

// MemoryStore is an in-process core.Store. It backs dry runs and tests.
type MemoryStore struct {
	mu          sync.Mutex
	records     map[core.EntityKind]map[string]core.Fields
	identifiers map[string]recordRef
	counters    map[string]int
	staged      []core.StagedRow
	sessions    []core.ImportSession
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[core.EntityKind]map[string]core.Fields),
		identifiers: make(map[string]recordRef),
		counters:    make(map[string]int),
	}
}

func (s *MemoryStore) FindByNaturalKey(_ context.Context, kind core.EntityKind, key string) (core.Fields, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.records[kind][key]
	if !ok {
		return nil, false, nil
	}
	return f.Clone(), true, nil
}

func (s *MemoryStore) Upsert(_ context.Context, kind core.EntityKind, key string, fields core.Fields) (core.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.records[kind]
	if !ok {
		byKey = make(map[string]core.Fields)
		s.records[kind] = byKey
	}

	existing, found := byKey[key]
	merged := core.MergeFields(existing, fields, core.IdentifierField)

	ref := recordRef{kind: kind, key: key}
	id := merged[core.IdentifierField]
	tracked := isAsset(kind) && id != ""
	if tracked {
		if owner, taken := s.identifiers[id]; taken && owner != ref {
			return 0, fmt.Errorf("%w: %s", core.ErrIdentifierTaken, id)
		}
	}

	byKey[key] = merged
	if tracked {
		s.identifiers[id] = ref
	}

	if found {
		return core.OutcomeUpdated, nil
	}
	return core.OutcomeInserted, nil
}

func (s *MemoryStore) Stage(_ context.Context, row core.StagedRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = append(s.staged, row)
	return nil
}

// NextIdentifier seeds the (site, category) counter from existing
// identifiers on first use and increments it afterwards.
func (s *MemoryStore) NextIdentifier(_ context.Context, site, category string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := core.IdentifierPrefix(site, category)
	ids := make([]string, 0, len(s.identifiers))
	for id := range s.identifiers {
		ids = append(ids, id)
	}
	seq := max(s.counters[prefix], core.MaxSequence(ids, prefix)) + 1
	s.counters[prefix] = seq
	return core.FormatIdentifier(site, category, seq), nil
}

func (s *MemoryStore) SaveSession(_ context.Context, session core.ImportSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

// ListStaged returns staged rows newest first.
func (s *MemoryStore) ListStaged(_ context.Context, filter core.StagedFilter) ([]core.StagedRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.StagedRow
	for i := len(s.staged) - 1; i >= 0; i-- {
		row := s.staged[i]
		if filter.Kind != "" && row.Kind != filter.Kind {
			continue
		}
		if filter.SessionID != "" && row.SessionID != filter.SessionID {
			continue
		}
		out = append(out, row)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Records returns a copy of every stored record of kind, sorted by key.
func (s *MemoryStore) Records(kind core.EntityKind) []core.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.records[kind]))
	for k := range s.records[kind] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]core.Fields, len(keys))
	for i, k := range keys {
		out[i] = s.records[kind][k].Clone()
	}
	return out
}

// Sessions returns saved sessions in order.
func (s *MemoryStore) Sessions() []core.ImportSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ImportSession(nil), s.sessions...)
}

func isAsset(kind core.EntityKind) bool {
	def, ok := core.Get(kind)
	return ok && def.Asset
}

package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EntityKind identifies a canonical target record family.
type EntityKind string

const (
	KindAssetIndividual EntityKind = "asset-individual"
	KindAssetGrouped    EntityKind = "asset-grouped"
	KindLicense         EntityKind = "license"
	KindEmployee        EntityKind = "employee"
	KindDecommission    EntityKind = "decommission"

	// KindUnknown is assigned to tables no signature matched. Their rows are staged.
	KindUnknown EntityKind = "unknown"
)

// ParseEntityKind validates a user-supplied kind name.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	switch k {
	case KindAssetIndividual, KindAssetGrouped, KindLicense, KindEmployee, KindDecommission:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind: %q", s)
}

// RawTable is one sheet as read from a file: rows of primitive cells with no
// guaranteed header.
type RawTable struct {
	Source    string  // File name
	Sheet     string  // Sheet name ("" for CSV)
	Section   string  // Set when split out of a multi-block sheet
	RowOffset int     // Sheet rows preceding Rows[0]
	Rows      [][]any // Cell values (string, float64, int, bool, time.Time, nil)
}

// Row is one data row of a NormalizedTable.
type Row struct {
	Index  int               // 1-based row position in the source sheet
	Values map[string]string // Label -> cleaned cell value
}

// NormalizedTable is a RawTable after header detection.
// Every row carries exactly the labels in Labels.
type NormalizedTable struct {
	Source    string
	Sheet     string
	Section   string // Section label for multi-block sheets
	HeaderRow int    // 1-based header row, 0 if none was found
	Labels    []string
	Rows      []Row
}

// SourceID identifies where a table came from: "file", "file#sheet" or "file#sheet/section".
func (t NormalizedTable) SourceID() string {
	id := t.Source
	if t.Sheet != "" {
		id += "#" + t.Sheet
	}
	if t.Section != "" {
		id += "/" + t.Section
	}
	return id
}

// labelSetKey returns an order-insensitive key for the table's label set.
func (t NormalizedTable) labelSetKey() string {
	labels := append([]string(nil), t.Labels...)
	sort.Strings(labels)
	key := ""
	for i, l := range labels {
		if i > 0 {
			key += "\x1f"
		}
		key += l
	}
	return key
}

// MappingTier records which resolution tier produced a column mapping.
type MappingTier string

const (
	TierAlias      MappingTier = "alias"
	TierSuggestion MappingTier = "suggestion"
	TierHeuristic  MappingTier = "heuristic"
	TierOverride   MappingTier = "override"
	TierUnmapped   MappingTier = "unmapped"
)

// ColumnAssignment is the resolution of a single label.
type ColumnAssignment struct {
	Label string      `json:"label"`
	Field string      `json:"field,omitempty"` // Empty when unmapped
	Tier  MappingTier `json:"tier"`
}

// ColumnMapping covers every label of one table, in label order.
type ColumnMapping struct {
	Columns []ColumnAssignment `json:"columns"`
}

// Field returns the canonical field for a label, or "" if unmapped.
func (m ColumnMapping) Field(label string) string {
	for _, c := range m.Columns {
		if c.Label == label {
			return c.Field
		}
	}
	return ""
}

// Fields returns the set of mapped canonical field names.
func (m ColumnMapping) Fields() []string {
	var out []string
	for _, c := range m.Columns {
		if c.Field != "" {
			out = append(out, c.Field)
		}
	}
	return out
}

// Unmapped returns the labels without a canonical field.
func (m ColumnMapping) Unmapped() []string {
	var out []string
	for _, c := range m.Columns {
		if c.Field == "" {
			out = append(out, c.Label)
		}
	}
	return out
}

// Fields holds canonical field values. Only non-empty values are stored.
type Fields map[string]string

// Clone returns a copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Provenance locates a record's source row.
type Provenance struct {
	Source  string `json:"source"`
	Sheet   string `json:"sheet,omitempty"`
	Section string `json:"section,omitempty"`
	Row     int    `json:"row"`
}

// SourceID mirrors NormalizedTable.SourceID.
func (p Provenance) SourceID() string {
	return NormalizedTable{Source: p.Source, Sheet: p.Sheet, Section: p.Section}.SourceID()
}

// CanonicalRecord is one source row expressed in canonical fields.
// Records are never edited; helpers return new records.
type CanonicalRecord struct {
	Kind       EntityKind
	Fields     Fields
	Provenance Provenance
	Labels     []string          // Column labels of the source table, in order
	Original   map[string]string // Label -> original cell value
	Unmapped   []string          // Labels whose non-empty value has no canonical field
}

// FilledCount returns the number of non-empty canonical fields.
func (r CanonicalRecord) FilledCount() int {
	n := 0
	for _, v := range r.Fields {
		if v != "" {
			n++
		}
	}
	return n
}

// WithFields returns a copy of r carrying fields.
func (r CanonicalRecord) WithFields(fields Fields) CanonicalRecord {
	r.Fields = fields
	return r
}

// StagedRow is a row parked for human reconciliation. It keeps the full
// original row so nothing is lost.
type StagedRow struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      EntityKind      `json:"kind"`
	SourceID  string          `json:"source_id"`
	RowIndex  int             `json:"row_index"`
	Payload   json.RawMessage `json:"payload"` // JSON object: label -> original value
	Labels    []string        `json:"labels"`
	Unmapped  []string        `json:"unmapped"`
	Partial   Fields          `json:"partial,omitempty"`
	StagedAt  time.Time       `json:"staged_at"`
}

// StagedFilter narrows ListStaged.
type StagedFilter struct {
	Kind      EntityKind
	SessionID string
	Limit     int
}

// UpsertOutcome reports what Upsert did.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota + 1
	OutcomeUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Store is the persistence boundary of the engine.
//
// Upsert must treat read-natural-key, merge and write as one transaction.
// NextIdentifier must never hand out the same identifier twice for a
// (site, category) pair, even under concurrent callers.
type Store interface {
	FindByNaturalKey(ctx context.Context, kind EntityKind, key string) (Fields, bool, error)
	Upsert(ctx context.Context, kind EntityKind, key string, fields Fields) (UpsertOutcome, error)
	Stage(ctx context.Context, row StagedRow) error
	NextIdentifier(ctx context.Context, site, category string) (string, error)
	SaveSession(ctx context.Context, session ImportSession) error
	ListStaged(ctx context.Context, filter StagedFilter) ([]StagedRow, error)
}

// Counts is the per-outcome tally of an import.
type Counts struct {
	Total      int `json:"total"`
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Staged     int `json:"staged"`
	Errored    int `json:"errored"`
	Duplicates int `json:"duplicates"`
}

// Accounted returns the number of rows with a recorded outcome.
func (c Counts) Accounted() int {
	return c.Inserted + c.Updated + c.Staged + c.Errored + c.Duplicates
}

// ImportSession summarises one ingestion run. Sessions are append-only.
type ImportSession struct {
	ID          string                `json:"id"`
	Target      string                `json:"target"`
	SourceLabel string                `json:"source_label"`
	Actor       string                `json:"actor,omitempty"`
	Counts                            // Overall tally
	ByKind      map[EntityKind]Counts `json:"by_kind"`
	Errors      []string              `json:"errors,omitempty"`
	StagedRows  []string              `json:"staged_rows,omitempty"`
	FileErrors  []string              `json:"file_errors,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
}

// Summary returns the user-facing one-line result.
func (s ImportSession) Summary() string {
	return fmt.Sprintf("%d inserted, %d updated, %d staged, %d errored",
		s.Inserted, s.Updated, s.Staged, s.Errored)
}

// ImportFile is one uploaded file.
type ImportFile struct {
	Name string
	Data []byte
}

// ImportRequest is the input of one ingestion run.
type ImportRequest struct {
	Files       []ImportFile
	Target      EntityKind        // Explicit target; empty means auto-detect
	Overrides   map[string]string // Source label -> canonical field
	MultiBlock  bool              // Split stacked mini-tables on section-label rows
	SourceLabel string            // Defaults to the joined file names
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tabingest/internal/logging"
)

var (
	// ErrNoReadableFiles is the only error that fails a whole import.
	ErrNoReadableFiles = errors.New("no readable files in import")

	// ErrMissingNaturalKey marks a row without the field its kind is keyed on.
	ErrMissingNaturalKey = errors.New("missing natural key")

	// ErrFileTooLarge is reported per file.
	ErrFileTooLarge = errors.New("file too large")
)

// ServiceConfig tunes the coordinator.
type ServiceConfig struct {
	HeaderScanRows    int   // Rows scored when detecting headers
	MaxFileSize       int64 // Bytes; 0 disables the check
	ErrorSampleSize   int   // Error messages kept on the session
	StagedSampleSize  int   // Staged row references kept on the session
	MaxMessageLength  int   // Runes per error message
	IdentifierRetries int   // Extra attempts after ErrIdentifierTaken
}

// DefaultServiceConfig returns the defaults used by the CLI.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		HeaderScanRows:    DefaultHeaderScanRows,
		MaxFileSize:       50 << 20,
		ErrorSampleSize:   20,
		StagedSampleSize:  20,
		MaxMessageLength:  200,
		IdentifierRetries: 3,
	}
}

// Service coordinates an import: read, normalize, map, classify, dedup,
// persist or stage, and record the session.
type Service struct {
	store   Store
	mapper  *Mapper
	limiter *ImportLimiter
	cfg     ServiceConfig
	now     func() time.Time
}

// NewService wires the coordinator. limiter may be nil for unbounded use.
func NewService(store Store, mapper *Mapper, limiter *ImportLimiter, cfg ServiceConfig) *Service {
	def := DefaultServiceConfig()
	if cfg.HeaderScanRows <= 0 {
		cfg.HeaderScanRows = def.HeaderScanRows
	}
	if cfg.ErrorSampleSize <= 0 {
		cfg.ErrorSampleSize = def.ErrorSampleSize
	}
	if cfg.StagedSampleSize <= 0 {
		cfg.StagedSampleSize = def.StagedSampleSize
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = def.MaxMessageLength
	}
	if cfg.IdentifierRetries < 0 {
		cfg.IdentifierRetries = 0
	}
	return &Service{store: store, mapper: mapper, limiter: limiter, cfg: cfg, now: time.Now}
}

// tableGroup is a set of tables with identical label sets, mapped and
// classified once.
type tableGroup struct {
	labels  []string
	tables  []NormalizedTable
	mapping ColumnMapping
	class   Classification
	kind    EntityKind
}

func (g *tableGroup) sourceIDs() []string {
	ids := make([]string, len(g.tables))
	for i, t := range g.tables {
		ids[i] = t.SourceID()
	}
	return ids
}

func (g *tableGroup) rowCount() int {
	n := 0
	for _, t := range g.tables {
		n += len(t.Rows)
	}
	return n
}

// analysis is everything learned about a batch before persistence.
type analysis struct {
	groups     []*tableGroup
	fileErrors []string
	warnings   []string
	readable   int
}

// Import runs one ingestion. Only ErrNoReadableFiles (and limiter errors)
// fail the call; every other problem is reported on the session.
//
// ctx bounds the wait for an import slot. Once the slot is taken the batch
// runs to completion and its session is saved even if ctx is cancelled;
// only the suggestion tier keeps its own deadline.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportSession, error) {
	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}
	ctx = context.WithoutCancel(ctx)

	session := &ImportSession{
		ID:          uuid.NewString(),
		Target:      string(req.Target),
		SourceLabel: req.SourceLabel,
		Actor:       ActorFromContext(ctx),
		ByKind:      make(map[EntityKind]Counts),
		StartedAt:   s.now(),
	}
	if session.SourceLabel == "" {
		session.SourceLabel = joinFileNames(req.Files)
	}
	if session.Target == "" {
		session.Target = "auto"
	}

	ctx = logging.WithRunID(ctx, session.ID)
	log := logging.WithFields(ctx, "target", session.Target, "files", len(req.Files))
	log.Info("import started", "source", session.SourceLabel, "actor", session.Actor)

	a, err := s.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	session.FileErrors = a.fileErrors
	session.Warnings = a.warnings

	if a.readable == 0 {
		session.FinishedAt = s.now()
		if err := s.store.SaveSession(ctx, *session); err != nil {
			log.Error("save session failed", "error", err)
		}
		return session, ErrNoReadableFiles
	}

	var staged, clean []CanonicalRecord
	for _, g := range a.groups {
		for _, rec := range buildRecords(g) {
			session.Total++
			kc := session.ByKind[rec.Kind]
			kc.Total++
			session.ByKind[rec.Kind] = kc

			if rec.Kind == KindUnknown || len(rec.Unmapped) > 0 {
				staged = append(staged, rec)
			} else {
				clean = append(clean, rec)
			}
		}
	}

	for _, rec := range staged {
		s.stage(ctx, session, rec)
	}

	deduped := Deduplicate(clean)
	session.Duplicates = deduped.Duplicates
	for kind, n := range duplicatesByKind(clean, deduped.Records) {
		kc := session.ByKind[kind]
		kc.Duplicates = n
		session.ByKind[kind] = kc
	}

	for _, rec := range deduped.Records {
		outcome, err := s.persist(ctx, rec)
		if err == nil && outcome != OutcomeInserted && outcome != OutcomeUpdated {
			err = fmt.Errorf("store reported no outcome for %s", rec.Provenance.SourceID())
		}
		kc := session.ByKind[rec.Kind]
		if err != nil {
			session.Errored++
			kc.Errored++
			session.ByKind[rec.Kind] = kc
			s.recordError(ctx, session, rec.Provenance, err)
			continue
		}
		switch outcome {
		case OutcomeInserted:
			session.Inserted++
			kc.Inserted++
		case OutcomeUpdated:
			session.Updated++
			kc.Updated++
		}
		session.ByKind[rec.Kind] = kc
	}

	session.FinishedAt = s.now()
	for kind, c := range session.ByKind {
		recordRows(kind, c)
	}
	recordSession(string(req.Target), session.FinishedAt.Sub(session.StartedAt))

	if err := s.store.SaveSession(ctx, *session); err != nil {
		log.Error("save session failed", "error", err)
		session.Warnings = append(session.Warnings, "session could not be saved: "+FormatUserError(err))
	}

	log.Info("import finished",
		"total", session.Total,
		"inserted", session.Inserted,
		"updated", session.Updated,
		"staged", session.Staged,
		"errored", session.Errored,
		"duplicates", session.Duplicates,
	)
	return session, nil
}

// analyze reads, normalizes, groups, maps and classifies every table.
func (s *Service) analyze(ctx context.Context, req ImportRequest) (*analysis, error) {
	log := logging.FromContext(ctx)
	a := &analysis{}

	var target *EntityDefinition
	if req.Target != "" {
		def, ok := Get(req.Target)
		if !ok {
			return nil, fmt.Errorf("unknown entity kind: %q", req.Target)
		}
		target = &def
	}

	var tables []NormalizedTable
	for _, f := range req.Files {
		if s.cfg.MaxFileSize > 0 && int64(len(f.Data)) > s.cfg.MaxFileSize {
			a.fileErrors = append(a.fileErrors, fmt.Sprintf("%s: %s", f.Name, FormatUserError(ErrFileTooLarge)))
			continue
		}
		raws, err := ReadFile(f.Name, f.Data)
		if err != nil {
			log.Warn("file unreadable", "file", f.Name, "error", err)
			a.fileErrors = append(a.fileErrors, fmt.Sprintf("%s: %s", f.Name, FormatUserError(err)))
			continue
		}
		a.readable++

		for _, raw := range raws {
			parts := []RawTable{raw}
			if req.MultiBlock {
				parts = SplitSections(raw)
			}
			for _, part := range parts {
				t, warns := NormalizeTable(part, s.cfg.HeaderScanRows)
				a.warnings = append(a.warnings, warns...)
				if len(t.Labels) == 0 || len(t.Rows) == 0 {
					continue
				}
				tables = append(tables, t)
			}
		}
	}

	byKey := make(map[string]*tableGroup)
	for _, t := range tables {
		key := t.labelSetKey()
		g, ok := byKey[key]
		if !ok {
			g = &tableGroup{labels: t.Labels}
			byKey[key] = g
			a.groups = append(a.groups, g)
		}
		g.tables = append(g.tables, t)
	}

	vocabulary := Vocabulary()
	if target != nil {
		vocabulary = target.FieldNames()
	}

	for _, g := range a.groups {
		mapping, warns := s.mapper.Map(ctx, g.labels, vocabulary, req.Overrides)
		a.warnings = append(a.warnings, warns...)

		g.class = Classify(mapping.Fields())
		g.kind = g.class.Kind
		if target != nil {
			g.kind = target.Kind
		}
		if def, ok := Get(g.kind); ok {
			mapping = mapping.Restrict(def.HasField)
		}
		g.mapping = mapping

		log.Info("table mapped",
			"sources", strings.Join(g.sourceIDs(), ","),
			"kind", g.kind,
			"score", g.class.Score,
			"mapped", len(mapping.Fields()),
			"unmapped", len(mapping.Unmapped()),
			"rows", g.rowCount(),
		)
		if g.kind == KindUnknown {
			a.warnings = append(a.warnings, fmt.Sprintf("%s: could not determine the entity kind, rows were staged",
				strings.Join(g.sourceIDs(), ", ")))
		}
	}

	return a, nil
}

// buildRecords turns every row of a group into a CanonicalRecord.
func buildRecords(g *tableGroup) []CanonicalRecord {
	def, hasDef := Get(g.kind)

	var out []CanonicalRecord
	for _, t := range g.tables {
		for _, row := range t.Rows {
			fields := make(Fields)
			var unmapped []string
			for _, c := range g.mapping.Columns {
				v := row.Values[c.Label]
				if v == "" {
					continue
				}
				if c.Field == "" {
					unmapped = append(unmapped, c.Label)
					continue
				}
				if hasDef {
					v = def.Normalize(c.Field, v)
				}
				if v != "" {
					fields[c.Field] = v
				}
			}

			original := make(map[string]string, len(row.Values))
			for k, v := range row.Values {
				original[k] = v
			}

			out = append(out, CanonicalRecord{
				Kind:   g.kind,
				Fields: fields,
				Provenance: Provenance{
					Source:  t.Source,
					Sheet:   t.Sheet,
					Section: t.Section,
					Row:     row.Index,
				},
				Labels:   t.Labels,
				Original: original,
				Unmapped: unmapped,
			})
		}
	}
	return out
}

func (s *Service) stage(ctx context.Context, session *ImportSession, rec CanonicalRecord) {
	payload, err := json.Marshal(rec.Original)
	if err == nil {
		row := StagedRow{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Kind:      rec.Kind,
			SourceID:  rec.Provenance.SourceID(),
			RowIndex:  rec.Provenance.Row,
			Payload:   payload,
			Labels:    rec.Labels,
			Unmapped:  rec.Unmapped,
			Partial:   rec.Fields,
			StagedAt:  s.now(),
		}
		err = s.store.Stage(ctx, row)
	}

	kc := session.ByKind[rec.Kind]
	if err != nil {
		session.Errored++
		kc.Errored++
		session.ByKind[rec.Kind] = kc
		s.recordError(ctx, session, rec.Provenance, fmt.Errorf("stage row: %w", err))
		return
	}
	session.Staged++
	kc.Staged++
	session.ByKind[rec.Kind] = kc

	if len(session.StagedRows) < s.cfg.StagedSampleSize {
		ref := fmt.Sprintf("%s row %d", rec.Provenance.SourceID(), rec.Provenance.Row)
		if len(rec.Unmapped) > 0 {
			ref += " (unmapped: " + strings.Join(rec.Unmapped, ", ") + ")"
		}
		session.StagedRows = append(session.StagedRows, truncate(ref, s.cfg.MaxMessageLength))
	}
}

// persist upserts one clean record, allocating an asset identifier when the
// record is new and has none.
func (s *Service) persist(ctx context.Context, rec CanonicalRecord) (UpsertOutcome, error) {
	def, ok := Get(rec.Kind)
	if !ok {
		return 0, fmt.Errorf("unknown entity kind: %q", rec.Kind)
	}

	fields := rec.Fields
	key := def.Key(fields)
	if key == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingNaturalKey, def.NaturalKey)
	}

	existing, found, err := s.store.FindByNaturalKey(ctx, rec.Kind, key)
	if err != nil {
		return 0, fmt.Errorf("find %s %q: %w", rec.Kind, key, err)
	}
	if found && def.Asset {
		current, incoming := existing[IdentifierField], fields[IdentifierField]
		if current != "" && incoming != "" && current != incoming {
			return 0, fmt.Errorf("%w: %s has %s, file has %s", ErrIdentifierConflict, key, current, incoming)
		}
	}

	allocate := def.Asset && !found && fields[IdentifierField] == ""
	for attempt := 0; ; attempt++ {
		upsertFields := fields
		if allocate {
			id, err := s.store.NextIdentifier(ctx, SiteCode(fields["site"]), CategoryCode(fields["category"]))
			if err != nil {
				return 0, fmt.Errorf("allocate identifier: %w", err)
			}
			upsertFields = fields.Clone()
			upsertFields[IdentifierField] = id
		}

		outcome, err := s.store.Upsert(ctx, rec.Kind, key, upsertFields)
		if err == nil {
			return outcome, nil
		}
		if allocate && errors.Is(err, ErrIdentifierTaken) && attempt < s.cfg.IdentifierRetries {
			logging.FromContext(ctx).Debug("identifier collision, retrying", "key", key, "attempt", attempt+1)
			continue
		}
		return 0, err
	}
}

func (s *Service) recordError(ctx context.Context, session *ImportSession, p Provenance, err error) {
	logging.FromContext(ctx).Debug("row failed", "source", p.SourceID(), "row", p.Row, "error", err)
	if len(session.Errors) >= s.cfg.ErrorSampleSize {
		return
	}
	msg := fmt.Sprintf("%s row %d: %s", p.SourceID(), p.Row, FormatUserError(err))
	session.Errors = append(session.Errors, truncate(msg, s.cfg.MaxMessageLength))
}

// duplicatesByKind counts, per kind, how many input records were folded.
func duplicatesByKind(before, after []CanonicalRecord) map[EntityKind]int {
	out := make(map[EntityKind]int)
	for _, r := range before {
		out[r.Kind]++
	}
	for _, r := range after {
		out[r.Kind]--
	}
	for k, n := range out {
		if n == 0 {
			delete(out, k)
		}
	}
	return out
}

func joinFileNames(files []ImportFile) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

// ListStaged returns parked rows for review.
func (s *Service) ListStaged(ctx context.Context, filter StagedFilter) ([]StagedRow, error) {
	return s.store.ListStaged(ctx, filter)
}
